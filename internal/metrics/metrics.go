// Package metrics exposes Prometheus instrumentation for StreamVault.
// Handlers record into the package-level collectors; Handler() serves the
// scrape endpoint at GET /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ActiveStreams is the number of media relays currently serving bytes.
var ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "streamvault_active_streams",
	Help: "Number of concurrent proxy stream sessions.",
})

// HTTPRequests counts requests by method, path, and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "streamvault_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

// HTTPDuration observes request latency by method and path.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "streamvault_http_request_duration_seconds",
	Help:    "HTTP request latency.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// StreamErrors counts proxy failures by type (upstream, copy).
var StreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "streamvault_stream_errors_total",
	Help: "Streaming proxy errors by type.",
}, []string{"type"})

// ObserveRequest records one completed HTTP request.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
