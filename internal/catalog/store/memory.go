package store

import (
	"context"
	"fmt"
	"sync"

	"medtrace/internal/catalog/models"
	id "medtrace/pkg/domain"
	"medtrace/pkg/platform/sentinel"
)

// InMemory keeps the catalog in maps for tests and single-node dev setups.
type InMemory struct {
	mu        sync.RWMutex
	districts map[id.DistrictID]models.District
	medicines map[id.MedicineID]models.Medicine
}

// NewInMemory constructs an empty in-memory catalog store.
func NewInMemory() *InMemory {
	return &InMemory{
		districts: make(map[id.DistrictID]models.District),
		medicines: make(map[id.MedicineID]models.Medicine),
	}
}

// PutDistrict inserts or replaces a district. Used by seeding and tests.
func (s *InMemory) PutDistrict(d models.District) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.districts[d.ID] = d
}

// PutMedicine inserts or replaces a medicine. Used by seeding and tests.
func (s *InMemory) PutMedicine(m models.Medicine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.medicines[m.ID] = m
}

func (s *InMemory) GetDistrict(_ context.Context, districtID id.DistrictID) (*models.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.districts[districtID]; ok {
		out := d
		return &out, nil
	}
	return nil, fmt.Errorf("district %s: %w", districtID, sentinel.ErrNotFound)
}

func (s *InMemory) GetMedicine(_ context.Context, medicineID id.MedicineID) (*models.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.medicines[medicineID]; ok {
		out := m
		return &out, nil
	}
	return nil, fmt.Errorf("medicine %s: %w", medicineID, sentinel.ErrNotFound)
}
