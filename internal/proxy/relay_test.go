package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestContentTypeFor(t *testing.T) {
	cases := []struct {
		target, want string
	}{
		{"http://h/index.m3u8", "application/vnd.apple.mpegurl"},
		{"http://h/list.m3u?x=1", "application/vnd.apple.mpegurl"},
		{"http://h/seg001.ts", "video/mp2t"},
		{"http://h/movie.mp4", "video/mp4"},
		{"http://h/unknown", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := ContentTypeFor(tc.target); got != tc.want {
			t.Errorf("ContentTypeFor(%q) = %q; want %q", tc.target, got, tc.want)
		}
	}
}

func TestRelayOpen_forwardsRangeAndBrowserHeaders(t *testing.T) {
	var gotRange, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	resp, err := NewRelay().Open(context.Background(), srv.URL, "bytes=100-")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer resp.Body.Close()

	if gotRange != "bytes=100-" {
		t.Errorf("Range forwarded as %q", gotRange)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestRelayOpen_noRangeHeaderWhenAbsent(t *testing.T) {
	var sawRange bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawRange = r.Header["Range"]
	}))
	defer srv.Close()

	resp, err := NewRelay().Open(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resp.Body.Close()
	if sawRange {
		t.Error("Range header sent upstream despite no inbound Range")
	}
}

func TestRelayOpen_upstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewRelay().Open(context.Background(), srv.URL, ""); err == nil {
		t.Error("expected error for upstream 404")
	}
}

func TestRelayOpen_followsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("redirected payload"))
	}))
	defer final.Close()
	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer hop.Close()

	resp, err := NewRelay().Open(context.Background(), hop.URL, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "redirected payload" {
		t.Errorf("body = %q", body)
	}
}

func TestRelayStream_copiesAllBytes(t *testing.T) {
	// Payload larger than one chunk so the producer loop iterates.
	payload := bytes.Repeat([]byte("abc123"), 40_000) // ~234 KiB

	var out bytes.Buffer
	err := NewRelay().Stream(context.Background(), &out, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Errorf("copied %d bytes; want %d", out.Len(), len(payload))
	}
}

func TestRelayStream_stopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// An endless reader: Stream must not run forever once ctx dies.
	endless := io.MultiReader(bytes.NewReader(make([]byte, chunkSize)), neverEnding{})

	var out cancellingWriter
	out.cancel = cancel

	_ = NewRelay().Stream(ctx, &out, endless)
	if out.writes == 0 {
		t.Error("no chunk was written before cancellation")
	}
}

// neverEnding blocks until its chunk is requested, then keeps yielding zeros.
type neverEnding struct{}

func (neverEnding) Read(p []byte) (int, error) { return len(p), nil }

// cancellingWriter cancels the stream context after the first write and
// errors on subsequent writes, simulating a client disconnect.
type cancellingWriter struct {
	writes int
	cancel context.CancelFunc
}

func (w *cancellingWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes == 1 {
		w.cancel()
		return len(p), nil
	}
	return 0, io.ErrClosedPipe
}
