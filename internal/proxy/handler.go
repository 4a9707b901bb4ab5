package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/asherpoirier/streamvault/internal/auth"
	"github.com/asherpoirier/streamvault/internal/metrics"
)

// TokenValidator is the narrow credential contract the proxy depends on:
// validate a bearer token and return its claims, or fail.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Handler serves the two proxy endpoints.
type Handler struct {
	Auth  TokenValidator
	Relay *Relay

	// fetchTimeout bounds the playlist fetch on /proxy/m3u8. The stream
	// relay is deliberately unbounded.
	fetchTimeout time.Duration
}

// NewHandler wires the proxy endpoints to a credential validator.
func NewHandler(v TokenValidator) *Handler {
	return &Handler{
		Auth:         v,
		Relay:        NewRelay(),
		fetchTimeout: 30 * time.Second,
	}
}

// HandleStream serves GET /api/proxy/stream?url=...&token=...
//
// The token is optional: raw media is fetched by <video> elements that
// cannot attach Authorization headers, so anonymous access is tolerated.
// A token that IS supplied must validate — a present-but-invalid token is
// rejected before any upstream call.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeProxyError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	if token := r.URL.Query().Get("token"); token != "" {
		if _, err := h.Auth.ValidateToken(token); err != nil {
			writeProxyError(w, http.StatusUnauthorized, err.Error())
			return
		}
	}

	resp, err := h.Relay.Open(r.Context(), target, r.Header.Get("Range"))
	if err != nil {
		metrics.StreamErrors.WithLabelValues("upstream").Inc()
		writeProxyError(w, http.StatusBadGateway, "failed to fetch stream: "+err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", ContentTypeFor(target))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	// Errors past this point cannot become an HTTP status — bytes are
	// already flowing. Terminate the connection instead of appending
	// error text to media bytes.
	if err := h.Relay.Stream(r.Context(), w, resp.Body); err != nil {
		if !isClientDisconnect(err, r) {
			metrics.StreamErrors.WithLabelValues("copy").Inc()
			log.Printf("proxy: stream %s aborted: %v", target, err)
		}
	}
}

// HandleM3U8 serves GET /api/proxy/m3u8?url=...&api_base=...
//
// Requires a valid bearer credential: the rewritten playlist reveals and
// re-routes the provider's whole channel topology.
func (h *Handler) HandleM3U8(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeProxyError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if _, err := h.Auth.ValidateToken(token); err != nil {
		writeProxyError(w, http.StatusUnauthorized, err.Error())
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		writeProxyError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.fetchTimeout)
	defer cancel()

	resp, err := h.Relay.Open(ctx, target, "")
	if err != nil {
		metrics.StreamErrors.WithLabelValues("upstream").Inc()
		writeProxyError(w, http.StatusBadGateway, "failed to fetch M3U8: "+err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.StreamErrors.WithLabelValues("upstream").Inc()
		writeProxyError(w, http.StatusBadGateway, "failed to read M3U8: "+err.Error())
		return
	}

	rewritten := Rewrite(string(body), target, r.URL.Query().Get("api_base"))

	w.Header().Set("Content-Type", playlistMime)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(rewritten)); err != nil {
		log.Printf("proxy: m3u8 %s write: %v", target, err)
	}
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

func isClientDisconnect(err error, r *http.Request) bool {
	return errors.Is(err, context.Canceled) || r.Context().Err() != nil
}

func writeProxyError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "error": http.StatusText(status), "detail": detail})
}
