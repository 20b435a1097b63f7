// Package audit records the custody trail: every protocol action and monitor
// alert becomes an immutable event. Events are evidence, so publishing is
// fire-and-forget from the domain's point of view; a broken pipeline must
// never block a handoff in the field.
package audit

import (
	"context"
	"time"

	id "medtrace/pkg/domain"
)

// Action names what happened to a transfer.
type Action string

const (
	ActionTransferCreated  Action = "transfer_created"
	ActionPickupRecorded   Action = "pickup_recorded"
	ActionDeliveryRecorded Action = "delivery_recorded"
	ActionTransferVerified Action = "transfer_verified"
	ActionTransferDisputed Action = "transfer_disputed"

	// Monitor alerts.
	ActionStalledTransfer Action = "stalled_transfer"
	ActionOverdueDelivery Action = "overdue_delivery"
)

// Event is one entry in the custody trail. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time     `json:"timestamp"`
	TransferID id.TransferID `json:"transfer_id"`
	Action     Action        `json:"action"`
	// Actor is whoever triggered the action: creator, transporter, receiver,
	// or "monitor" for scan alerts.
	Actor        string        `json:"actor,omitempty"`
	FromDistrict id.DistrictID `json:"from_district,omitempty"`
	ToDistrict   id.DistrictID `json:"to_district,omitempty"`
	Severity     string        `json:"severity,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`
}

// Publisher delivers events to the custody trail.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Store is an append-only event sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}
