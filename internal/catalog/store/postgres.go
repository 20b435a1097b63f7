package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medtrace/internal/catalog/models"
	id "medtrace/pkg/domain"
	"medtrace/pkg/platform/sentinel"
)

// Postgres reads the catalog from PostgreSQL. This store is pure I/O; the
// resolver service owns caching and error translation.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) GetDistrict(ctx context.Context, districtID id.DistrictID) (*models.District, error) {
	query := `
		SELECT id, name, population, type, lat, lng
		FROM districts
		WHERE id = $1
	`
	var d models.District
	err := s.db.QueryRowContext(ctx, query, string(districtID)).Scan(
		&d.ID, &d.Name, &d.Population, &d.Type, &d.Lat, &d.Lng,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("district %s: %w", districtID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get district: %w", err)
	}
	return &d, nil
}

func (s *Postgres) GetMedicine(ctx context.Context, medicineID id.MedicineID) (*models.Medicine, error) {
	query := `
		SELECT id, name, category, unit, shelf_life_days, cold_chain, units_per_case
		FROM medicines
		WHERE id = $1
	`
	var m models.Medicine
	err := s.db.QueryRowContext(ctx, query, string(medicineID)).Scan(
		&m.ID, &m.Name, &m.Category, &m.Unit, &m.ShelfLifeDays, &m.ColdChain, &m.UnitsPerCase,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("medicine %s: %w", medicineID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get medicine: %w", err)
	}
	return &m, nil
}
