package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/financeager/internal/adapter/repository/memory"
	"github.com/iho/financeager/internal/adapter/repository/postgres"
	"github.com/iho/financeager/internal/adapter/repository/redis"
	"github.com/iho/financeager/internal/adapter/repository/sqlite"
	"github.com/iho/financeager/internal/infrastructure/config"
	pginfra "github.com/iho/financeager/internal/infrastructure/postgres"
	redisinfra "github.com/iho/financeager/internal/infrastructure/redis"
	sqliteinfra "github.com/iho/financeager/internal/infrastructure/sqlite"
	"github.com/iho/financeager/internal/usecase"
)

// ErrUnknownStore is returned for store names the factory cannot open.
var ErrUnknownStore = errors.New("unknown store")

// Config selects and configures a store.
type Config struct {
	Store      string
	SQLitePath string

	DatabaseURL      string
	DatabaseMaxConns int
	DatabaseMinConns int
	DatabaseTimeout  time.Duration

	// RedisURL enables the listing cache when set.
	RedisURL       string
	RedisNamespace string
}

// ConfigFromAppConfig extracts the store settings from the application config.
func ConfigFromAppConfig(cfg *config.Config) Config {
	return Config{
		Store:            cfg.Store,
		SQLitePath:       cfg.SQLitePath,
		DatabaseURL:      cfg.DatabaseURL,
		DatabaseMaxConns: cfg.DatabaseMaxConns,
		DatabaseMinConns: cfg.DatabaseMinConns,
		DatabaseTimeout:  cfg.DatabaseTimeout,
		RedisURL:         cfg.RedisURL,
		RedisNamespace:   cfg.RedisNamespace,
	}
}

// Factory opens entry repositories.
type Factory struct {
	logger zerolog.Logger
}

// NewFactory creates a new Factory.
func NewFactory(logger zerolog.Logger) *Factory {
	return &Factory{logger: logger}
}

// Open opens the configured store. The caller owns the returned repository
// and must Close it.
func (f *Factory) Open(ctx context.Context, cfg Config) (usecase.EntryRepository, error) {
	repo, err := f.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL == "" {
		return repo, nil
	}

	client, err := redisinfra.NewClient(ctx, redisinfra.ClientConfig{URL: cfg.RedisURL, ConnectTimeout: cfg.DatabaseTimeout})
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	f.logger.Debug().Str("namespace", cfg.RedisNamespace).Msg("listing cache enabled")

	return &cachedRepository{
		CachedEntryRepository: usecase.NewCachedEntryRepository(repo, redis.NewCache(client, cfg.RedisNamespace), f.logger),
		client:                client,
	}, nil
}

func (f *Factory) openStore(ctx context.Context, cfg Config) (usecase.EntryRepository, error) {
	switch cfg.Store {
	case config.StoreMemory:
		f.logger.Debug().Msg("opened memory store")
		return memory.NewEntryRepository(), nil

	case config.StoreSQLite:
		db, err := sqliteinfra.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		f.logger.Debug().Str("path", cfg.SQLitePath).Msg("opened sqlite store")
		return sqlite.NewEntryRepository(db), nil

	case config.StorePostgres:
		if err := pginfra.RunMigrations(cfg.DatabaseURL, f.logger); err != nil {
			return nil, err
		}

		pool, err := pginfra.NewPoolWithConfig(ctx, pginfra.PoolConfig{
			DatabaseURL:    cfg.DatabaseURL,
			MaxConns:       cfg.DatabaseMaxConns,
			MinConns:       cfg.DatabaseMinConns,
			ConnectTimeout: cfg.DatabaseTimeout,
		})
		if err != nil {
			return nil, err
		}
		f.logger.Debug().Msg("opened postgres store")
		return postgres.NewEntryRepository(pool, postgres.NewRetrier(f.logger)), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Store)
	}
}

// OpenIdempotencyStore returns a Redis-backed store when Redis is
// configured and an in-process one otherwise. The returned function
// releases the store.
func (f *Factory) OpenIdempotencyStore(ctx context.Context, cfg Config) (usecase.IdempotencyStore, func() error, error) {
	if cfg.RedisURL == "" {
		return memory.NewIdempotencyStore(), func() error { return nil }, nil
	}

	client, err := redisinfra.NewClient(ctx, redisinfra.ClientConfig{URL: cfg.RedisURL, ConnectTimeout: cfg.DatabaseTimeout})
	if err != nil {
		return nil, nil, err
	}

	return redis.NewIdempotencyStore(client, cfg.RedisNamespace), client.Close, nil
}

type cachedRepository struct {
	*usecase.CachedEntryRepository
	client *goredis.Client
}

func (r *cachedRepository) Close() error {
	return errors.Join(r.CachedEntryRepository.Close(), r.client.Close())
}
