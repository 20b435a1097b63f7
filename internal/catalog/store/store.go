// Package store provides the catalog's persistence implementations.
//
// Error contract, shared by every implementation:
//   - return sentinel.ErrNotFound (wrapped) when the entity does not exist
//   - return wrapped infrastructure errors for everything else
package store

import (
	"context"

	"medtrace/internal/catalog/models"
	id "medtrace/pkg/domain"
)

// Store reads reference catalog data.
type Store interface {
	GetDistrict(ctx context.Context, districtID id.DistrictID) (*models.District, error)
	GetMedicine(ctx context.Context, medicineID id.MedicineID) (*models.Medicine, error)
}
