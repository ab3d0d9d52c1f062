package redis

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/financeager/internal/adapter/repository/memory"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/usecase"
)

func TestCachedRepositoryServesAndInvalidatesListings(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	repo := usecase.NewCachedEntryRepository(memory.NewEntryRepository(), NewCache(client, "test"), zerolog.Nop())

	id, err := repo.Add(ctx, "2024", domain.EntryRecord{Name: "bread", Value: -2, Date: "2024-01-01", Category: "groceries"})
	require.NoError(t, err)

	records, err := repo.List(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, mr.Exists("test:cache:entries:2024"))

	// A listing cached in Redis is served as stored.
	mr.Set("test:cache:entries:2024", `[{"eid":42,"name":"cached","value":1,"date":"2024-01-01"}]`)
	records, err = repo.List(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "cached", records[0].Name)

	require.NoError(t, repo.Update(ctx, "2024", id, domain.EntryRecord{Name: "rolls", Value: -3, Date: "2024-01-01", Category: "groceries"}))
	assert.False(t, mr.Exists("test:cache:entries:2024"))

	records, err = repo.List(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rolls", records[0].Name)

	require.NoError(t, repo.Remove(ctx, "2024", id))
	records, err = repo.List(ctx, "2024")
	require.NoError(t, err)
	assert.Empty(t, records)
}
