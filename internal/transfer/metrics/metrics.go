// Package metrics holds the transfer domain's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts protocol outcomes. A nil *Metrics is safe to call, which
// keeps unit tests free of registry bookkeeping.
type Metrics struct {
	TransfersCreated   prometheus.Counter
	PickupsRecorded    prometheus.Counter
	DeliveriesRecorded prometheus.Counter
	TransfersVerified  prometheus.Counter
	TransfersDisputed  prometheus.Counter

	Anomalies     *prometheus.CounterVec
	MonitorAlerts *prometheus.CounterVec
}

// New creates and registers all transfer metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		TransfersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medtrace_transfers_created_total",
			Help: "Total transfers created.",
		}),
		PickupsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medtrace_pickups_recorded_total",
			Help: "Total pickups recorded.",
		}),
		DeliveriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medtrace_deliveries_recorded_total",
			Help: "Total deliveries recorded.",
		}),
		TransfersVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medtrace_transfers_verified_total",
			Help: "Total deliveries that settled as verified.",
		}),
		TransfersDisputed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medtrace_transfers_disputed_total",
			Help: "Total deliveries that settled as disputed.",
		}),
		Anomalies: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrace_verification_anomalies_total",
			Help: "Anomalies found by delivery-time verification, by kind.",
		}, []string{"kind"}),
		MonitorAlerts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrace_monitor_alerts_total",
			Help: "Alerts raised by the pending-anomaly monitor, by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncTransfersCreated() {
	if m != nil {
		m.TransfersCreated.Inc()
	}
}

func (m *Metrics) IncPickupsRecorded() {
	if m != nil {
		m.PickupsRecorded.Inc()
	}
}

func (m *Metrics) IncDeliveriesRecorded() {
	if m != nil {
		m.DeliveriesRecorded.Inc()
	}
}

func (m *Metrics) IncTransfersVerified() {
	if m != nil {
		m.TransfersVerified.Inc()
	}
}

func (m *Metrics) IncTransfersDisputed() {
	if m != nil {
		m.TransfersDisputed.Inc()
	}
}

func (m *Metrics) IncAnomaly(kind string) {
	if m != nil {
		m.Anomalies.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncMonitorAlert(kind string) {
	if m != nil {
		m.MonitorAlerts.WithLabelValues(kind).Inc()
	}
}
