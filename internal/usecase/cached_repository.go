package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/financeager/internal/domain"
)

// CachedEntryRepository caches period listings in front of another
// EntryRepository. Every write to a period drops its cached listing.
type CachedEntryRepository struct {
	EntryRepository
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedEntryRepository wraps repo with cache.
func NewCachedEntryRepository(repo EntryRepository, cache Cache, logger zerolog.Logger) *CachedEntryRepository {
	return &CachedEntryRepository{
		EntryRepository: repo,
		cache:           cache,
		ttl:             ListCacheTTL,
		logger:          logger,
	}
}

func listCacheKey(period string) string {
	return "entries:" + period
}

// List returns the cached listing of period, loading it on a miss.
func (r *CachedEntryRepository) List(ctx context.Context, period string) ([]domain.EntryRecord, error) {
	key := listCacheKey(period)

	data, err := r.cache.Get(ctx, key)
	if err == nil {
		var records []domain.EntryRecord
		if err := json.Unmarshal(data, &records); err == nil {
			return records, nil
		}
	} else if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn().Err(err).Str("period", period).Msg("cache read failed")
	}

	records, err := r.EntryRepository.List(ctx, period)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("period", period).Msg("cache write failed")
		}
	}

	return records, nil
}

// Add stores record and invalidates the period listing.
func (r *CachedEntryRepository) Add(ctx context.Context, period string, record domain.EntryRecord) (uint64, error) {
	id, err := r.EntryRepository.Add(ctx, period, record)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, period)
	return id, nil
}

// Update rewrites an entry and invalidates the period listing.
func (r *CachedEntryRepository) Update(ctx context.Context, period string, id uint64, record domain.EntryRecord) error {
	if err := r.EntryRepository.Update(ctx, period, id, record); err != nil {
		return err
	}
	r.invalidate(ctx, period)
	return nil
}

// Remove deletes an entry and invalidates the period listing.
func (r *CachedEntryRepository) Remove(ctx context.Context, period string, id uint64) error {
	if err := r.EntryRepository.Remove(ctx, period, id); err != nil {
		return err
	}
	r.invalidate(ctx, period)
	return nil
}

func (r *CachedEntryRepository) invalidate(ctx context.Context, period string) {
	if err := r.cache.Delete(ctx, listCacheKey(period)); err != nil {
		r.logger.Warn().Err(err).Str("period", period).Msg("cache invalidation failed")
	}
}
