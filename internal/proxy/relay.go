package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// chunkSize is the fixed read size for relayed media bodies.
	chunkSize = 64 * 1024

	// chunkQueueDepth bounds how far the upstream reader may run ahead of
	// a slow client before blocking.
	chunkQueueDepth = 4

	playlistMime = "application/vnd.apple.mpegurl"
)

// browserHeaders is the fixed header set sent upstream. Providers that
// fingerprint players get a plain browser.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "*/*",
	"Accept-Language": "en-US,en;q=0.9",
	"Connection":      "keep-alive",
}

// Relay opens upstream media connections and streams their bodies to
// clients in fixed-size chunks.
type Relay struct {
	// Client follows redirects and has no overall timeout; media fetches
	// are long-lived by nature. Request contexts bound each fetch to its
	// inbound request instead.
	Client *http.Client
}

// NewRelay returns a Relay with a connection-pooled client.
func NewRelay() *Relay {
	return &Relay{
		Client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Open performs the upstream GET, forwarding the caller's Range header
// when present. The response body is live; the caller must close it.
// A transport failure or a >= 400 upstream status is an upstream fetch
// failure.
func (rl *Relay) Open(ctx context.Context, target, rangeHeader string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := rl.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: upstream HTTP %d", target, resp.StatusCode)
	}
	return resp, nil
}

type chunk struct {
	data []byte
	err  error
}

// Stream copies body to w, one chunk at a time, flushing after each write.
// A producer goroutine reads fixed-size chunks into a bounded channel; the
// channel's capacity is the only buffering between upstream and client, so
// memory stays bounded and a slow client applies backpressure upstream.
// When ctx is cancelled (client disconnect), the producer stops promptly.
func (rl *Relay) Stream(ctx context.Context, w io.Writer, body io.Reader) error {
	chunks := make(chan chunk, chunkQueueDepth)
	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, chunkSize)
			n, err := body.Read(buf)
			if n > 0 {
				select {
				case chunks <- chunk{data: buf[:n]}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					select {
					case chunks <- chunk{err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
		}
	}()

	flusher, _ := w.(http.Flusher)
	for c := range chunks {
		if c.err != nil {
			return fmt.Errorf("upstream read: %w", c.err)
		}
		if _, err := w.Write(c.data); err != nil {
			return fmt.Errorf("client write: %w", err)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}

// ContentTypeFor guesses the response media type from the target URL.
// Upstream Content-Type is not trusted or forwarded; providers lie about
// it often enough that the URL is the better signal. Substring matches,
// checked in priority order.
func ContentTypeFor(target string) string {
	switch {
	case strings.Contains(target, ".m3u8") || strings.Contains(target, ".m3u"):
		return playlistMime
	case strings.Contains(target, ".ts"):
		return "video/mp2t"
	case strings.Contains(target, ".mp4"):
		return "video/mp4"
	}
	return "application/octet-stream"
}
