package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"medtrace/internal/transfer/models"
	id "medtrace/pkg/domain"
	"medtrace/pkg/platform/sentinel"
)

// InMemory stores transfers in memory for tests and single-node dev setups.
// All reads hand out deep copies so callers can never mutate stored state
// behind the mutex's back.
type InMemory struct {
	mu        sync.RWMutex
	transfers map[id.TransferID]*models.Transfer
	items     map[id.TransferID][]models.BatchItem
}

// NewInMemory constructs an empty in-memory transfer store.
func NewInMemory() *InMemory {
	return &InMemory{
		transfers: make(map[id.TransferID]*models.Transfer),
		items:     make(map[id.TransferID][]models.BatchItem),
	}
}

func (s *InMemory) Create(_ context.Context, t *models.Transfer, items []models.BatchItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transfers[t.ID]; exists {
		return fmt.Errorf("transfer %s already exists: %w", t.ID, sentinel.ErrConflict)
	}
	s.transfers[t.ID] = copyTransfer(t)
	s.items[t.ID] = copyItems(items)
	return nil
}

func (s *InMemory) Get(_ context.Context, transferID id.TransferID) (*models.Transfer, []models.BatchItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[transferID]
	if !ok {
		return nil, nil, fmt.Errorf("transfer %s: %w", transferID, sentinel.ErrNotFound)
	}
	return copyTransfer(t), copyItems(s.items[transferID]), nil
}

func (s *InMemory) List(_ context.Context, filter Filter) ([]models.Transfer, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transfer
	for _, t := range s.transfers {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.FromDistrict != "" && t.FromDistrict != filter.FromDistrict {
			continue
		}
		if filter.ToDistrict != "" && t.ToDistrict != filter.ToDistrict {
			continue
		}
		if filter.HasDiscrepancy != nil && t.HasDiscrepancy != *filter.HasDiscrepancy {
			continue
		}
		out = append(out, *copyTransfer(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemory) ListPending(_ context.Context) ([]models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transfer
	for _, t := range s.transfers {
		if t.Status == models.StatusCreated || t.Status == models.StatusPickedUp {
			out = append(out, *copyTransfer(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Summary(_ context.Context) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := Summary{ByStatus: make(map[models.Status]int)}
	for _, t := range s.transfers {
		summary.ByStatus[t.Status]++
		if t.HasDiscrepancy {
			summary.WithDiscrepancies++
		}
	}
	return summary, nil
}

func (s *InMemory) Execute(
	_ context.Context,
	transferID id.TransferID,
	validate func(t *models.Transfer) error,
	mutate func(t *models.Transfer, items []models.BatchItem) error,
) (*models.Transfer, []models.BatchItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.transfers[transferID]
	if !ok {
		return nil, nil, fmt.Errorf("transfer %s: %w", transferID, sentinel.ErrNotFound)
	}

	// Work on copies; the stored record is replaced only after both
	// callbacks succeed, keeping failed transitions mutation-free.
	t := copyTransfer(stored)
	items := copyItems(s.items[transferID])

	if err := validate(t); err != nil {
		return nil, nil, err
	}
	if err := mutate(t, items); err != nil {
		return nil, nil, err
	}

	s.transfers[transferID] = copyTransfer(t)
	s.items[transferID] = copyItems(items)
	return t, items, nil
}

func copyTransfer(t *models.Transfer) *models.Transfer {
	out := *t
	out.PickupAt = copyTime(t.PickupAt)
	out.ExpectedDeliveryAt = copyTime(t.ExpectedDeliveryAt)
	out.DeliveredAt = copyTime(t.DeliveredAt)
	out.VerifiedAt = copyTime(t.VerifiedAt)
	out.ReceivedQuantity = copyInt(t.ReceivedQuantity)
	out.PickupLocation = copyGeo(t.PickupLocation)
	out.DeliveryLocation = copyGeo(t.DeliveryLocation)
	return &out
}

func copyItems(items []models.BatchItem) []models.BatchItem {
	out := make([]models.BatchItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].ExpiryDate = copyTime(item.ExpiryDate)
		out[i].SenderScanTime = copyTime(item.SenderScanTime)
		out[i].ReceiverScanTime = copyTime(item.ReceiverScanTime)
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	out := *n
	return &out
}

func copyGeo(g *models.GeoPoint) *models.GeoPoint {
	if g == nil {
		return nil
	}
	out := *g
	return &out
}
