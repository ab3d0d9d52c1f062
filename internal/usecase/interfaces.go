package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/financeager/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// EntryRepository defines data access for entries. Entries live in named
// periods; ids are assigned by the store and are unique within a period.
type EntryRepository interface {
	Add(ctx context.Context, period string, record domain.EntryRecord) (uint64, error)
	Get(ctx context.Context, period string, id uint64) (*domain.EntryRecord, error)
	Update(ctx context.Context, period string, id uint64, record domain.EntryRecord) error
	Remove(ctx context.Context, period string, id uint64) error
	// List returns the entries of a period ordered by id. Unknown periods are empty.
	List(ctx context.Context, period string) ([]domain.EntryRecord, error)
	Periods(ctx context.Context) ([]string, error)
	Close() error
}

// LedgerService defines the ledger operations exposed through commands.
type LedgerService interface {
	AddEntry(ctx context.Context, input AddEntryInput) (uint64, error)
	GetEntry(ctx context.Context, period string, id uint64) (*domain.EntryRecord, error)
	RemoveEntry(ctx context.Context, period string, id uint64) error
	UpdateEntry(ctx context.Context, input UpdateEntryInput) error
	ListEntries(ctx context.Context, input ListEntriesInput) (*domain.Elements, error)
	ListPeriods(ctx context.Context) ([]string, error)
}

// CommandRunner executes a named command. CommandService implements it; the
// transports and servers depend on this interface.
type CommandRunner interface {
	Run(ctx context.Context, command string, params domain.Params) (*domain.Response, error)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}
