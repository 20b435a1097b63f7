// Package publisher provides the custody-trail publisher implementations:
// an in-process channel for dev and tests, and Kafka for deployments.
package publisher

import (
	"context"

	"medtrace/pkg/platform/audit"
)

// Channel publishes events onto a buffered channel drained by an
// audit.Worker. It backs dev setups and tests where no broker exists.
type Channel struct {
	events chan audit.Event
}

// NewChannel builds a channel publisher with the given buffer size.
func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = 256
	}
	return &Channel{events: make(chan audit.Event, buffer)}
}

// Events exposes the receive side for a worker.
func (c *Channel) Events() <-chan audit.Event { return c.events }

// Publish enqueues the event. A full buffer drops the event rather than
// blocking the custody action; the caller logs the error.
func (c *Channel) Publish(ctx context.Context, event audit.Event) error {
	select {
	case c.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}
