package usecase_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/iho/financeager/internal/domain"
	"github.com/iho/financeager/internal/usecase"
	"github.com/iho/financeager/internal/usecase/mocks"
)

func ptr[T any](v T) *T { return &v }

func TestLedgerUseCase_AddEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockEntryRepository(ctrl)
	repo.EXPECT().Add(gomock.Any(), "2024", domain.EntryRecord{
		Name:     "lunch",
		Value:    -12.5,
		Date:     "2024-05-01",
		Category: "food",
	}).Return(uint64(3), nil)

	uc := usecase.NewLedgerUseCase(repo, "")

	id, err := uc.AddEntry(context.Background(), usecase.AddEntryInput{
		Period:   "2024",
		Name:     "  Lunch ",
		Category: "Food",
		Date:     "2024-05-01",
		Value:    -12.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 3 {
		t.Errorf("expected id 3, got %d", id)
	}
}

func TestLedgerUseCase_AddEntryDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	today := domain.Today().Format(domain.DateLayout)
	year := strconv.Itoa(time.Now().Year())

	repo := mocks.NewMockEntryRepository(ctrl)
	repo.EXPECT().Add(gomock.Any(), year, domain.EntryRecord{
		Name:     "salary",
		Value:    1000,
		Date:     today,
		Category: "misc",
	}).Return(uint64(0), nil)

	uc := usecase.NewLedgerUseCase(repo, "Misc")

	if _, err := uc.AddEntry(context.Background(), usecase.AddEntryInput{Name: "Salary", Value: 1000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLedgerUseCase_AddEntryValidation(t *testing.T) {
	tests := []struct {
		name  string
		input usecase.AddEntryInput
	}{
		{name: "empty name", input: usecase.AddEntryInput{Name: "  ", Value: 1}},
		{name: "bad date", input: usecase.AddEntryInput{Name: "x", Value: 1, Date: "yesterday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No repository call is expected.
			uc := usecase.NewLedgerUseCase(mocks.NewMockEntryRepository(ctrl), "")

			_, err := uc.AddEntry(context.Background(), tt.input)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLedgerUseCase_UpdateEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockEntryRepository(ctrl)
	gomock.InOrder(
		repo.EXPECT().Get(gomock.Any(), "2024", uint64(1)).Return(&domain.EntryRecord{
			ID:       ptr(uint64(1)),
			Name:     "bread",
			Value:    -2,
			Date:     "2024-01-01",
			Category: "groceries",
		}, nil),
		repo.EXPECT().Update(gomock.Any(), "2024", uint64(1), domain.EntryRecord{
			ID:       ptr(uint64(1)),
			Name:     "bread",
			Value:    -2.5,
			Date:     "2024-01-01",
			Category: "bakery",
		}).Return(nil),
	)

	uc := usecase.NewLedgerUseCase(repo, "")

	err := uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{
		Period:   "2024",
		ID:       1,
		Value:    ptr(-2.5),
		Category: ptr("Bakery"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLedgerUseCase_UpdateEntryNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockEntryRepository(ctrl)
	repo.EXPECT().Get(gomock.Any(), "2024", uint64(9)).Return(nil, domain.ErrEntryNotFound)

	uc := usecase.NewLedgerUseCase(repo, "")

	err := uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{Period: "2024", ID: 9, Name: ptr("x")})
	if !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestLedgerUseCase_UpdateEntryRejectsInvalidChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockEntryRepository(ctrl)
	repo.EXPECT().Get(gomock.Any(), "2024", uint64(1)).Return(&domain.EntryRecord{
		ID: ptr(uint64(1)), Name: "bread", Value: -2, Date: "2024-01-01", Category: "groceries",
	}, nil)

	uc := usecase.NewLedgerUseCase(repo, "")

	err := uc.UpdateEntry(context.Background(), usecase.UpdateEntryInput{Period: "2024", ID: 1, Name: ptr("")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLedgerUseCase_ListEntries(t *testing.T) {
	records := []domain.EntryRecord{
		{ID: ptr(uint64(0)), Name: "bread", Value: -2, Date: "2024-01-01", Category: "groceries"},
		{ID: ptr(uint64(1)), Name: "salary", Value: 1000, Date: "2024-01-02", Category: "income"},
		{ID: ptr(uint64(2)), Name: "apples", Value: -3, Date: "2024-01-02", Category: "groceries"},
	}

	tests := []struct {
		name       string
		input      usecase.ListEntriesInput
		wantNames  []string
		wantTotals []float64
		wantCount  int
	}{
		{
			name:       "no filter groups in first-seen order",
			input:      usecase.ListEntriesInput{Period: "2024"},
			wantNames:  []string{"groceries", "income"},
			wantTotals: []float64{-5, 1000},
			wantCount:  3,
		},
		{
			name:       "name filter",
			input:      usecase.ListEntriesInput{Period: "2024", Name: "APP"},
			wantNames:  []string{"groceries"},
			wantTotals: []float64{-3},
			wantCount:  1,
		},
		{
			name:       "date filter",
			input:      usecase.ListEntriesInput{Period: "2024", Date: "01-02"},
			wantNames:  []string{"income", "groceries"},
			wantTotals: []float64{1000, -3},
			wantCount:  2,
		},
		{
			name:       "category filter without match",
			input:      usecase.ListEntriesInput{Period: "2024", Category: "rent"},
			wantNames:  []string{},
			wantTotals: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := mocks.NewMockEntryRepository(ctrl)
			repo.EXPECT().List(gomock.Any(), "2024").Return(records, nil)

			uc := usecase.NewLedgerUseCase(repo, "")

			elements, err := uc.ListEntries(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(elements.Categories) != len(tt.wantNames) {
				t.Fatalf("expected %d categories, got %d", len(tt.wantNames), len(elements.Categories))
			}

			count := 0
			for i, c := range elements.Categories {
				if c.Name != tt.wantNames[i] {
					t.Errorf("category %d: expected %q, got %q", i, tt.wantNames[i], c.Name)
				}
				if c.Value != tt.wantTotals[i] {
					t.Errorf("category %d: expected total %v, got %v", i, tt.wantTotals[i], c.Value)
				}
				count += len(c.Entries)
			}
			if count != tt.wantCount {
				t.Errorf("expected %d entries, got %d", tt.wantCount, count)
			}
		})
	}
}

func TestLedgerUseCase_ListPeriods(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockEntryRepository(ctrl)
	repo.EXPECT().Periods(gomock.Any()).Return([]string{"2025", "2023", "2024"}, nil)

	uc := usecase.NewLedgerUseCase(repo, "")

	periods, err := uc.ListPeriods(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"2023", "2024", "2025"}
	for i := range want {
		if periods[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, periods)
		}
	}
}

func TestLedgerUseCase_RemoveEntryUsesDefaultPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockEntryRepository(ctrl)
	repo.EXPECT().Remove(gomock.Any(), usecase.DefaultPeriod(), uint64(4)).Return(nil)

	uc := usecase.NewLedgerUseCase(repo, "")

	if err := uc.RemoveEntry(context.Background(), "", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
