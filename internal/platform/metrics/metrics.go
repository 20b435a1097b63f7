package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics. Domain counters live next
// to the services that emit them (internal/transfer/metrics).
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates and registers the HTTP metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medtrace_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		RequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "medtrace_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(route, status).Observe(elapsed.Seconds())
}
