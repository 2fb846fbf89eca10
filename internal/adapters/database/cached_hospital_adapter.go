package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/internal/domain/repositories"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
)

// Cache TTLs (in seconds)
const (
	hospitalByIDTTL  = 300
	hospitalCountTTL = 60
)

func hospitalCacheKey(id int64) string {
	return fmt.Sprintf("hospital:%d", id)
}

func hospitalCountCacheKey(filter repositories.HospitalFilter) string {
	return fmt.Sprintf("hospitals:count:%s:%s", filter.Type, filter.Status)
}

// CachedHospitalAdapter wraps a HospitalRepository with read-through caching of
// single rows and counts. Lists and radius searches always hit the database.
type CachedHospitalAdapter struct {
	adapter repositories.HospitalRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedHospitalAdapter creates a new cached hospital adapter
func NewCachedHospitalAdapter(adapter repositories.HospitalRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.HospitalRepository {
	return &CachedHospitalAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

// Create inserts through and drops cached counts
func (a *CachedHospitalAdapter) Create(ctx context.Context, hospital *entities.Hospital) (*entities.Hospital, error) {
	created, err := a.adapter.Create(ctx, hospital)
	if err != nil {
		return nil, err
	}
	a.invalidateCounts(ctx)
	return created, nil
}

// FindByID retrieves a hospital with caching
func (a *CachedHospitalAdapter) FindByID(ctx context.Context, id int64) (*entities.Hospital, error) {
	key := hospitalCacheKey(id)

	if cached, err := a.cache.Get(ctx, key); err == nil {
		var hospital entities.Hospital
		if err := json.Unmarshal(cached, &hospital); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "hospital")
			return &hospital, nil
		}
	} else if !errors.Is(err, providers.ErrCacheMiss) {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Hospital cache read failed")
	}
	observability.RecordCacheMiss(ctx, a.metrics, "hospital")

	hospital, err := a.adapter.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, hospital, hospitalByIDTTL)
	return hospital, nil
}

// FindAll passes through to the database
func (a *CachedHospitalAdapter) FindAll(ctx context.Context, filter repositories.HospitalFilter, page repositories.Pagination) ([]*entities.Hospital, error) {
	return a.adapter.FindAll(ctx, filter, page)
}

// FindNearby passes through to the database
func (a *CachedHospitalAdapter) FindNearby(ctx context.Context, query repositories.NearbyQuery) ([]*entities.HospitalWithDistance, error) {
	return a.adapter.FindNearby(ctx, query)
}

// Update writes through and drops the cached row and counts
func (a *CachedHospitalAdapter) Update(ctx context.Context, id int64, patch entities.HospitalPatch) (*entities.Hospital, error) {
	updated, err := a.adapter.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	a.invalidate(ctx, id)
	return updated, nil
}

// Delete removes the row and drops the cached row and counts
func (a *CachedHospitalAdapter) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := a.adapter.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		a.invalidate(ctx, id)
	}
	return deleted, nil
}

// Count counts hospitals with caching
func (a *CachedHospitalAdapter) Count(ctx context.Context, filter repositories.HospitalFilter) (int64, error) {
	key := hospitalCountCacheKey(filter)

	if cached, err := a.cache.Get(ctx, key); err == nil {
		var count int64
		if err := json.Unmarshal(cached, &count); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "hospital_count")
			return count, nil
		}
	}
	observability.RecordCacheMiss(ctx, a.metrics, "hospital_count")

	count, err := a.adapter.Count(ctx, filter)
	if err != nil {
		return 0, err
	}
	a.store(ctx, key, count, hospitalCountTTL)
	return count, nil
}

func (a *CachedHospitalAdapter) store(ctx context.Context, key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to cache hospital data")
	}
}

func (a *CachedHospitalAdapter) invalidate(ctx context.Context, id int64) {
	if err := a.cache.Delete(ctx, hospitalCacheKey(id)); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Int64("hospital_id", id).Msg("Failed to invalidate cached hospital")
	}
	a.invalidateCounts(ctx)
}

func (a *CachedHospitalAdapter) invalidateCounts(ctx context.Context) {
	if err := a.cache.DeletePattern(ctx, "hospitals:count:*"); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to invalidate cached hospital counts")
	}
}
