package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/financeager/internal/adapter/repository/memory"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/infrastructure/config"
)

func TestFactoryOpen(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(zerolog.Nop())

	t.Run("memory", func(t *testing.T) {
		repo, err := f.Open(ctx, Config{Store: config.StoreMemory})
		require.NoError(t, err)
		defer repo.Close()

		assert.IsType(t, &memory.EntryRepository{}, repo)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")
		repo, err := f.Open(ctx, Config{Store: config.StoreSQLite, SQLitePath: path})
		require.NoError(t, err)
		defer repo.Close()

		_, err = repo.Add(ctx, "2024", domain.EntryRecord{Name: "x", Value: 1, Date: "2024-01-01"})
		assert.NoError(t, err)
	})

	t.Run("unknown store", func(t *testing.T) {
		_, err := f.Open(ctx, Config{Store: "tinydb"})
		assert.True(t, errors.Is(err, ErrUnknownStore), "got %v", err)
	})

	t.Run("redis cache wraps the store", func(t *testing.T) {
		mr := miniredis.RunT(t)

		repo, err := f.Open(ctx, Config{
			Store:          config.StoreMemory,
			RedisURL:       fmt.Sprintf("redis://%s", mr.Addr()),
			RedisNamespace: "test",
		})
		require.NoError(t, err)

		_, err = repo.List(ctx, "2024")
		require.NoError(t, err)
		assert.True(t, mr.Exists("test:cache:entries:2024"))

		assert.NoError(t, repo.Close())
	})

	t.Run("unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		url := fmt.Sprintf("redis://%s", mr.Addr())
		mr.Close()

		_, err := f.Open(ctx, Config{Store: config.StoreMemory, RedisURL: url})
		assert.Error(t, err)
	})
}

func TestFactoryOpenIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(zerolog.Nop())

	store, release, err := f.OpenIdempotencyStore(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &memory.IdempotencyStore{}, store)
	assert.NoError(t, release())

	mr := miniredis.RunT(t)
	store, release, err = f.OpenIdempotencyStore(ctx, Config{RedisURL: fmt.Sprintf("redis://%s", mr.Addr()), RedisNamespace: "test"})
	require.NoError(t, err)
	defer release()

	exists, _, err := store.CheckAndSet(ctx, "k", nil, 0)
	require.NoError(t, err)
	assert.False(t, exists)
}
