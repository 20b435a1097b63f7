// Package monitor periodically scans non-terminal transfers for stage
// timeouts. It is read-only over the transfer store: it surfaces alerts
// through logs, metrics, and the custody trail, never by mutating records.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"medtrace/internal/transfer/metrics"
	"medtrace/internal/transfer/models"
	"medtrace/internal/transfer/store"
	"medtrace/internal/transfer/verify"
	"medtrace/pkg/platform/audit"
)

// DefaultInterval is how often the scan runs when the config does not say.
const DefaultInterval = 5 * time.Minute

// Monitor runs the pending-anomaly scan.
type Monitor struct {
	transfers store.Store
	publisher audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	interval  time.Duration
}

// New constructs a monitor. publisher and metrics may be nil.
func New(transfers store.Store, publisher audit.Publisher, m *metrics.Metrics, logger *slog.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		transfers: transfers,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		interval:  interval,
	}
}

// Run scans on a fixed interval until the context ends. An immediate first
// scan runs before the first tick so restarts don't delay alerting.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	if err := m.Scan(ctx); err != nil {
		m.logger.ErrorContext(ctx, "pending-anomaly scan failed", "error", err.Error())
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Scan(ctx); err != nil {
				m.logger.ErrorContext(ctx, "pending-anomaly scan failed", "error", err.Error())
			}
		}
	}
}

// Scan runs one pass and returns the alerts it raised. Also usable
// on-demand, which is how tests drive it.
func (m *Monitor) Scan(ctx context.Context) error {
	transfers, err := m.transfers.ListPending(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	alerts := verify.DetectPending(transfers, now)

	for _, alert := range alerts {
		m.metrics.IncMonitorAlert(string(alert.Kind))

		attrs := []any{
			"transfer_id", alert.TransferID,
			"from_district", alert.FromDistrict,
			"to_district", alert.ToDistrict,
			"elapsed_hours", alert.ElapsedHours,
		}
		switch alert.Severity {
		case models.SeverityCritical:
			m.logger.ErrorContext(ctx, alert.Message, attrs...)
		default:
			m.logger.WarnContext(ctx, alert.Message, attrs...)
		}

		if m.publisher != nil && alert.Severity == models.SeverityCritical {
			event := audit.Event{
				Timestamp:    now,
				TransferID:   alert.TransferID,
				Action:       audit.Action(alert.Kind),
				Actor:        "monitor",
				FromDistrict: alert.FromDistrict,
				ToDistrict:   alert.ToDistrict,
				Severity:     string(alert.Severity),
				Reason:       alert.Message,
			}
			if err := m.publisher.Publish(ctx, event); err != nil {
				m.logger.WarnContext(ctx, "failed to publish monitor alert",
					"transfer_id", alert.TransferID, "error", err.Error())
			}
		}
	}

	if len(alerts) > 0 {
		m.logger.InfoContext(ctx, "pending-anomaly scan complete",
			"pending", len(transfers), "alerts", len(alerts))
	}
	return nil
}
