// Package store provides transfer persistence.
//
// Error contract, shared by every implementation:
//   - return sentinel.ErrNotFound (wrapped) when the transfer does not exist
//   - return sentinel.ErrConflict (wrapped) on uniqueness violations
//   - return wrapped infrastructure errors for everything else
//
// Execute is the store's contribution to the protocol's ordering guarantee:
// the validate callback runs under the same lock (mutex or FOR UPDATE row
// lock) as the mutation and the write, so concurrent actions on one transfer
// id serialize and exactly one wins a contested transition.
package store

import (
	"context"

	"medtrace/internal/transfer/models"
	id "medtrace/pkg/domain"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status         models.Status
	FromDistrict   id.DistrictID
	ToDistrict     id.DistrictID
	HasDiscrepancy *bool
	Limit          int
}

// DefaultListLimit and MaxListLimit bound List result sizes.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Normalize clamps the limit into its allowed range.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

// Summary aggregates the collection for the list endpoint.
type Summary struct {
	ByStatus          map[models.Status]int `json:"by_status"`
	WithDiscrepancies int                   `json:"with_discrepancies"`
}

// Store persists transfers and their batch items. Create and Execute write
// the transfer record and its items together or not at all.
type Store interface {
	// Create persists a new transfer with its items atomically.
	Create(ctx context.Context, t *models.Transfer, items []models.BatchItem) error

	// Get returns a consistent snapshot of a transfer and its items.
	Get(ctx context.Context, transferID id.TransferID) (*models.Transfer, []models.BatchItem, error)

	// List returns transfers matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]models.Transfer, error)

	// ListPending returns non-terminal transfers (created, picked_up) in
	// creation order, oldest first, so stalled ones surface on top.
	ListPending(ctx context.Context) ([]models.Transfer, error)

	// Summary counts transfers by status and discrepancy flag.
	Summary(ctx context.Context) (Summary, error)

	// Execute runs an atomic validate-then-mutate on one transfer. The
	// callbacks receive the current transfer and items; if validate returns
	// an error the transfer is left untouched and the error is returned
	// verbatim. Mutations to the transfer and items are persisted together.
	Execute(
		ctx context.Context,
		transferID id.TransferID,
		validate func(t *models.Transfer) error,
		mutate func(t *models.Transfer, items []models.BatchItem) error,
	) (*models.Transfer, []models.BatchItem, error)
}
