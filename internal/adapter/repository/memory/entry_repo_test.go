package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/iho/financeager/internal/adapter/repository/repotest"
	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/usecase"
)

func TestEntryRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) usecase.EntryRepository {
		return NewEntryRepository()
	})
}

func TestEntryRepository_ConcurrentAdds(t *testing.T) {
	repo := NewEntryRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.Add(context.Background(), "2024", domain.EntryRecord{Name: "x", Value: 1, Date: "2024-01-01"})
		}()
	}
	wg.Wait()

	records, err := repo.List(context.Background(), "2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 50 {
		t.Fatalf("expected 50 records, got %d", len(records))
	}
	for i, r := range records {
		if *r.ID != uint64(i+1) {
			t.Fatalf("expected id %d at position %d, got %d", i+1, i, *r.ID)
		}
	}
}
