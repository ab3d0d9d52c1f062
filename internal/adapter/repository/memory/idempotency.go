package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iho/financeager/internal/usecase"
)

type idempotencyEntry struct {
	value     []byte
	expiresAt time.Time
}

// IdempotencyStore implements usecase.IdempotencyStore in process memory.
// It serves single-instance servers running without Redis.
type IdempotencyStore struct {
	mu   sync.Mutex
	data map[string]idempotencyEntry
	now  func() time.Time
}

// NewIdempotencyStore creates an empty IdempotencyStore.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		data: make(map[string]idempotencyEntry),
		now:  time.Now,
	}
}

// CheckAndSet claims key, or returns the value stored under it.
func (s *IdempotencyStore) CheckAndSet(_ context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.data[key]; ok && now.Before(existing.expiresAt) {
		return true, existing.value, nil
	}

	value := response
	if value == nil {
		value = []byte(usecase.IdempotencyPending)
	}
	s.data[key] = idempotencyEntry{value: value, expiresAt: now.Add(ttl)}
	s.evictExpired(now)

	return false, nil, nil
}

// Update stores the final response for key.
func (s *IdempotencyStore) Update(_ context.Context, key string, response []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = idempotencyEntry{value: response, expiresAt: s.now().Add(ttl)}
	return nil
}

// Release deletes key.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *IdempotencyStore) evictExpired(now time.Time) {
	for key, entry := range s.data {
		if !now.Before(entry.expiresAt) {
			delete(s.data, key)
		}
	}
}
