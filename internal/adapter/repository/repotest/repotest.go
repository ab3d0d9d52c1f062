// Package repotest holds behavior tests shared by every EntryRepository
// implementation.
package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/usecase"
)

// Factory returns a fresh, empty repository.
type Factory func(t *testing.T) usecase.EntryRepository

// Run exercises repo construction through the full entry lifecycle.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("add assigns increasing ids per period", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Add(ctx, "2024", record("bread", -2, "2024-01-01", "groceries"))
		require.NoError(t, err)
		second, err := repo.Add(ctx, "2024", record("salary", 1000, "2024-01-02", "income"))
		require.NoError(t, err)
		other, err := repo.Add(ctx, "2023", record("rent", -500, "2023-03-01", "home"))
		require.NoError(t, err)

		assert.Greater(t, second, first)
		assert.Equal(t, first, other)
	})

	t.Run("get returns the stored record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.Add(ctx, "2024", record("bread", -2.5, "2024-01-01", "groceries"))
		require.NoError(t, err)

		got, err := repo.Get(ctx, "2024", id)
		require.NoError(t, err)
		require.NotNil(t, got.ID)
		assert.Equal(t, id, *got.ID)
		assert.Equal(t, "bread", got.Name)
		assert.InDelta(t, -2.5, got.Value, 1e-9)
		assert.Equal(t, "2024-01-01", got.Date)
		assert.Equal(t, "groceries", got.Category)
	})

	t.Run("missing entries and periods", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Get(ctx, "1999", 1)
		assert.True(t, errors.Is(err, domain.ErrPeriodNotFound), "got %v", err)

		id, err := repo.Add(ctx, "2024", record("bread", -2, "2024-01-01", "groceries"))
		require.NoError(t, err)

		_, err = repo.Get(ctx, "2024", id+100)
		assert.True(t, errors.Is(err, domain.ErrEntryNotFound), "got %v", err)

		err = repo.Remove(ctx, "2024", id+100)
		assert.True(t, errors.Is(err, domain.ErrEntryNotFound), "got %v", err)

		err = repo.Update(ctx, "1999", id, record("x", 1, "1999-01-01", "y"))
		assert.True(t, errors.Is(err, domain.ErrPeriodNotFound), "got %v", err)
	})

	t.Run("update replaces fields and keeps the id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id, err := repo.Add(ctx, "2024", record("bread", -2, "2024-01-01", "groceries"))
		require.NoError(t, err)

		require.NoError(t, repo.Update(ctx, "2024", id, record("rolls", -3, "2024-01-05", "bakery")))

		got, err := repo.Get(ctx, "2024", id)
		require.NoError(t, err)
		assert.Equal(t, id, *got.ID)
		assert.Equal(t, "rolls", got.Name)
		assert.InDelta(t, -3.0, got.Value, 1e-9)
		assert.Equal(t, "2024-01-05", got.Date)
		assert.Equal(t, "bakery", got.Category)
	})

	t.Run("remove deletes and ids are not reused", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Add(ctx, "2024", record("bread", -2, "2024-01-01", "groceries"))
		require.NoError(t, err)
		second, err := repo.Add(ctx, "2024", record("milk", -1, "2024-01-01", "groceries"))
		require.NoError(t, err)

		require.NoError(t, repo.Remove(ctx, "2024", second))

		_, err = repo.Get(ctx, "2024", second)
		assert.True(t, errors.Is(err, domain.ErrEntryNotFound), "got %v", err)

		third, err := repo.Add(ctx, "2024", record("eggs", -4, "2024-01-02", "groceries"))
		require.NoError(t, err)
		assert.NotEqual(t, second, third)
		assert.Greater(t, third, first)
	})

	t.Run("list orders by id and is empty for unknown periods", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		records, err := repo.List(ctx, "2024")
		require.NoError(t, err)
		assert.Empty(t, records)

		for _, name := range []string{"a", "b", "c"} {
			_, err := repo.Add(ctx, "2024", record(name, 1, "2024-01-01", "misc"))
			require.NoError(t, err)
		}

		records, err = repo.List(ctx, "2024")
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i, want := range []string{"a", "b", "c"} {
			assert.Equal(t, want, records[i].Name)
			require.NotNil(t, records[i].ID)
		}
		assert.Less(t, *records[0].ID, *records[1].ID)
		assert.Less(t, *records[1].ID, *records[2].ID)
	})

	t.Run("periods lists written periods", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		periods, err := repo.Periods(ctx)
		require.NoError(t, err)
		assert.Empty(t, periods)

		for _, p := range []string{"2024", "2023", "2024"} {
			_, err := repo.Add(ctx, p, record("x", 1, p+"-01-01", "misc"))
			require.NoError(t, err)
		}

		periods, err = repo.Periods(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"2023", "2024"}, periods)
	})
}

func record(name string, value float64, date, category string) domain.EntryRecord {
	return domain.EntryRecord{Name: name, Value: value, Date: date, Category: category}
}
