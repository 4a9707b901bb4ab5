package proxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asherpoirier/streamvault/internal/auth"
)

func testHandler() *Handler {
	return NewHandler(auth.New("test-secret", time.Hour))
}

func validToken(t *testing.T) string {
	t.Helper()
	tok, err := auth.New("test-secret", time.Hour).IssueToken("u1", "alice", false)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

func TestHandleStream_missingURL(t *testing.T) {
	rec := httptest.NewRecorder()
	testHandler().HandleStream(rec, httptest.NewRequest(http.MethodGet, "/api/proxy/stream", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", rec.Code)
	}
}

func TestHandleStream_noTokenSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("segment bytes"))
	}))
	defer srv.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/stream?url="+url.QueryEscape(srv.URL+"/seg001.ts"), nil)
	testHandler().HandleStream(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "segment bytes" {
		t.Errorf("body = %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp2t" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
	if rec.Header().Get("Cache-Control") != "no-cache" {
		t.Error("missing Cache-Control header")
	}
}

func TestHandleStream_invalidTokenRejectedBeforeUpstream(t *testing.T) {
	var upstreamHit atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHit.Store(true)
	}))
	defer srv.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/proxy/stream?url="+url.QueryEscape(srv.URL)+"&token=not-a-jwt", nil)
	testHandler().HandleStream(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", rec.Code)
	}
	if upstreamHit.Load() {
		t.Error("upstream was contacted despite invalid token")
	}
}

func TestHandleStream_validToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/proxy/stream?url="+url.QueryEscape(srv.URL)+"&token="+validToken(t), nil)
	testHandler().HandleStream(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", rec.Code)
	}
}

func TestHandleStream_upstreamFailureIs502(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/stream?url="+url.QueryEscape(srv.URL), nil)
	testHandler().HandleStream(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d; want 502", rec.Code)
	}
}

func TestHandleStream_unreachableUpstreamIs502(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/proxy/stream?url="+url.QueryEscape("http://127.0.0.1:1/dead.ts"), nil)
	testHandler().HandleStream(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d; want 502", rec.Code)
	}
}

func TestHandleStream_forwardsRange(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("partial"))
	}))
	defer srv.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/stream?url="+url.QueryEscape(srv.URL), nil)
	req.Header.Set("Range", "bytes=100-")
	testHandler().HandleStream(rec, req)

	if gotRange != "bytes=100-" {
		t.Errorf("upstream Range = %q; want bytes=100-", gotRange)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", rec.Code)
	}
}

func TestHandleM3U8_requiresBearer(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/m3u8?url=http://h/x.m3u8", nil)
	testHandler().HandleM3U8(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
}

func TestHandleM3U8_rejectsInvalidBearer(t *testing.T) {
	var upstreamHit atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHit.Store(true)
	}))
	defer srv.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/m3u8?url="+url.QueryEscape(srv.URL), nil)
	req.Header.Set("Authorization", "Bearer garbage")
	testHandler().HandleM3U8(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
	if upstreamHit.Load() {
		t.Error("upstream was contacted despite invalid token")
	}
}

func TestHandleM3U8_rewritesPlaylist(t *testing.T) {
	const upstreamBody = "#EXTM3U\n#EXTINF:-1,CNN\nlow/index.m3u8\n#EXTINF:-1,HBO\nseg001.ts\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(upstreamBody))
	}))
	defer srv.Close()

	target := srv.URL + "/live/index.m3u8"
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/m3u8?url="+url.QueryEscape(target), nil)
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	testHandler().HandleM3U8(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != playlistMime {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	wantSub := "/api/proxy/m3u8?url=" + url.QueryEscape(srv.URL+"/live/low/index.m3u8")
	if !strings.Contains(body, wantSub) {
		t.Errorf("sub-playlist not rewritten:\n%s", body)
	}
	wantSeg := "/api/proxy/stream?url=" + url.QueryEscape(srv.URL+"/live/seg001.ts")
	if !strings.Contains(body, wantSeg) {
		t.Errorf("segment not rewritten:\n%s", body)
	}
	if !strings.Contains(body, "#EXTM3U\n") || !strings.Contains(body, "#EXTINF:-1,CNN\n") {
		t.Errorf("directive lines altered:\n%s", body)
	}
}

func TestHandleM3U8_upstreamFailureIs502(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/proxy/m3u8?url="+url.QueryEscape("http://127.0.0.1:1/x.m3u8"), nil)
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	testHandler().HandleM3U8(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d; want 502", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header, want string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(r); got != tc.want {
			t.Errorf("bearerToken(%q) = %q; want %q", tc.header, got, tc.want)
		}
	}
}
