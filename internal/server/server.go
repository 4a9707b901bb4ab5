package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/asherpoirier/streamvault/api"
	"github.com/asherpoirier/streamvault/internal/auth"
	"github.com/asherpoirier/streamvault/internal/cache"
	"github.com/asherpoirier/streamvault/internal/config"
	"github.com/asherpoirier/streamvault/internal/metrics"
	"github.com/asherpoirier/streamvault/internal/proxy"
	"github.com/asherpoirier/streamvault/internal/store"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	store store.Store
	cfg   *config.Config
	auth  *auth.Authenticator
	proxy *proxy.Handler
	rds   *cache.Redis // nil when REDIS_URL is not set
	mux   *http.ServeMux
}

// New creates a Server and registers routes.
// rds may be nil; async playlist refresh is then unavailable.
func New(s store.Store, cfg *config.Config, a *auth.Authenticator, rds *cache.Redis) *Server {
	srv := &Server{
		store: s,
		cfg:   cfg,
		auth:  a,
		proxy: proxy.NewHandler(a),
		rds:   rds,
		mux:   http.NewServeMux(),
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Auth
	s.mux.HandleFunc("POST /api/auth/setup", s.handleSetup)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/register", s.requireAdmin(s.handleRegister))
	s.mux.HandleFunc("GET /api/auth/me", s.requireUser(s.handleMe))

	// Users
	s.mux.HandleFunc("GET /api/users", s.requireAdmin(s.handleListUsers))
	s.mux.HandleFunc("DELETE /api/users/{id}", s.requireAdmin(s.handleDeleteUser))

	// Playlists
	s.mux.HandleFunc("GET /api/playlists", s.requireAdmin(s.handleListPlaylists))
	s.mux.HandleFunc("POST /api/playlists", s.requireAdmin(s.handleAddPlaylist))
	s.mux.HandleFunc("GET /api/playlists/{id}", s.requireAdmin(s.handleGetPlaylist))
	s.mux.HandleFunc("DELETE /api/playlists/{id}", s.requireAdmin(s.handleDeletePlaylist))
	s.mux.HandleFunc("PUT /api/playlists/{id}/refresh", s.requireAdmin(s.handleRefreshPlaylist))
	s.mux.HandleFunc("POST /api/playlists/{id}/refresh", s.requireAdmin(s.handleRefreshPlaylist))

	// Channels and providers
	s.mux.HandleFunc("GET /api/channels", s.requireUser(s.handleListChannels))
	s.mux.HandleFunc("GET /api/providers", s.requireUser(s.handleListProviders))

	// Streaming proxy. Credential handling is endpoint-specific and lives
	// in the proxy handlers, not in middleware.
	s.mux.HandleFunc("GET /api/proxy/stream", s.proxy.HandleStream)
	s.mux.HandleFunc("GET /api/proxy/m3u8", s.proxy.HandleM3U8)

	// Docs and metrics
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return withCORS(s.cfg.CORSOrigins, withLogging(s))
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// No write timeout: proxied streams run for as long as the
		// client keeps watching.
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth middleware ---

// currentUser validates the Authorization bearer token of a request.
func (s *Server) currentUser(r *http.Request) (*auth.Claims, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return nil, auth.ErrTokenInvalid
	}
	return s.auth.ValidateToken(h[len(prefix):])
}

// requireUser rejects requests without a valid bearer token.
func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, *auth.Claims)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.currentUser(r)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, err)
			return
		}
		next(w, r, claims)
	}
}

// requireAdmin rejects non-admin callers with 403.
func (s *Server) requireAdmin(next func(http.ResponseWriter, *http.Request, *auth.Claims)) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
		if !claims.IsAdmin {
			writeErr(w, http.StatusForbidden, fmt.Errorf("admin access required"))
			return
		}
		next(w, r, claims)
	})
}

// --- middleware ---

// withCORS adds CORS headers to every response and answers preflight
// OPTIONS requests with 200 so browser video players accept the proxy.
func withCORS(origins string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush passes through so the stream relay can keep flushing chunks.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging wraps a handler and logs each request with method, path, status, and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		statusCode := sw.status

		metrics.ObserveRequest(r.Method, r.URL.Path, statusCode, duration)

		// Color the status code for terminal readability.
		statusColor := colorForStatus(statusCode)
		methodColor := colorForMethod(r.Method)

		log.Printf("%s %-7s %s\x1b[0m  %s %3d %s\x1b[0m  %s",
			methodColor, r.Method, "\x1b[0m",
			statusColor, statusCode, "\x1b[0m",
			formatDuration(duration),
		)
		if r.URL.RawQuery != "" {
			log.Printf("         %s?%s", r.URL.Path, r.URL.RawQuery)
		} else {
			log.Printf("         %s", r.URL.Path)
		}
	})
}

func colorForStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "\x1b[32m" // green
	case code >= 300 && code < 400:
		return "\x1b[36m" // cyan
	case code >= 400 && code < 500:
		return "\x1b[33m" // yellow
	default:
		return "\x1b[31m" // red
	}
}

func colorForMethod(method string) string {
	switch method {
	case http.MethodGet:
		return "\x1b[36m" // cyan
	case http.MethodPost:
		return "\x1b[32m" // green
	case http.MethodPatch, http.MethodPut:
		return "\x1b[33m" // yellow
	case http.MethodDelete:
		return "\x1b[31m" // red
	default:
		return "\x1b[37m" // white
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Printf("ERROR %d: %v", status, err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>StreamVault API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`
