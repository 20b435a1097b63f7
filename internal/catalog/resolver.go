// Package catalog exposes the lookup surface the transfer protocol depends
// on. The core never owns districts or medicines; it only asks whether a
// referenced id resolves.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"medtrace/internal/catalog/models"
	"medtrace/internal/catalog/store"
	id "medtrace/pkg/domain"
)

// DefaultCacheTTL bounds staleness for cached catalog rows. Catalog data is
// near-immutable reference data, so minutes of staleness is acceptable.
const DefaultCacheTTL = 5 * time.Minute

// Resolver answers district and medicine lookups, with an optional Redis
// read-through cache in front of the store. A nil cache client disables
// caching entirely.
type Resolver struct {
	store  store.Store
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(s store.Store, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Resolver{store: s, cache: cache, ttl: ttl, logger: logger}
}

// ResolveDistrict fetches a district, consulting the cache first. Cache
// failures degrade to store reads; they never fail the lookup.
func (r *Resolver) ResolveDistrict(ctx context.Context, districtID id.DistrictID) (*models.District, error) {
	key := "catalog:district:" + string(districtID)
	if d, ok := cacheGet[models.District](ctx, r, key); ok {
		return d, nil
	}
	d, err := r.store.GetDistrict(ctx, districtID)
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, key, d)
	return d, nil
}

// ResolveMedicine fetches a medicine, consulting the cache first.
func (r *Resolver) ResolveMedicine(ctx context.Context, medicineID id.MedicineID) (*models.Medicine, error) {
	key := "catalog:medicine:" + string(medicineID)
	if m, ok := cacheGet[models.Medicine](ctx, r, key); ok {
		return m, nil
	}
	m, err := r.store.GetMedicine(ctx, medicineID)
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, key, m)
	return m, nil
}

func cacheGet[T any](ctx context.Context, r *Resolver, key string) (*T, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil && r.logger != nil {
			r.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err.Error())
		}
		return nil, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return &out, true
}

func (r *Resolver) cacheSet(ctx context.Context, key string, v any) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl).Err(); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err.Error())
	}
}
