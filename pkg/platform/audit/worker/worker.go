// Package worker drains channel-published custody events into a store. It
// keeps background processing testable without wiring a broker.
package worker

import (
	"context"
	"log/slog"

	"medtrace/pkg/platform/audit"
)

// Worker consumes custody events from a channel and persists them.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

// New constructs a worker over the given inbox.
func New(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context ends. Append failures are logged
// and skipped; the channel path is best-effort, Kafka deployments get broker
// durability instead.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to append audit event",
					"transfer_id", event.TransferID,
					"action", event.Action,
					"error", err.Error(),
				)
			}
		}
	}
}
