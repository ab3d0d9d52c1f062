package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/financeager/internal/domain"
)

var entryColumns = []string{"id", "name", "value", "date", "category"}

func newTestRepository(t *testing.T) (*EntryRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mockPool := newMockPool(t)
	return newEntryRepositoryWithPool(mockPool, fastRetrier()), mockPool
}

func testDate(t *testing.T, s string) pgtype.Date {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return pgtype.Date{Time: d, Valid: true}
}

func TestEntryRepositoryAdd(t *testing.T) {
	repo, mockPool := newTestRepository(t)

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("INSERT INTO periods").
		WithArgs("2024").
		WillReturnRows(pgxmock.NewRows([]string{"last_id"}).AddRow(int64(4)))
	mockPool.ExpectExec("INSERT INTO entries").
		WithArgs("2024", int64(4), "bread", pgxmock.AnyArg(), testDate(t, "2024-01-01"), "groceries").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()

	id, err := repo.Add(context.Background(), "2024", domain.EntryRecord{
		Name: "bread", Value: -2.5, Date: "2024-01-01", Category: "groceries",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 4 {
		t.Fatalf("expected id 4, got %d", id)
	}

	assertExpectations(t, mockPool)
}

func TestEntryRepositoryAddRetriesSerializationFailure(t *testing.T) {
	repo, mockPool := newTestRepository(t)

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("INSERT INTO periods").
		WithArgs("2024").
		WillReturnError(&pgconn.PgError{Code: "40001"})
	mockPool.ExpectRollback()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery("INSERT INTO periods").
		WithArgs("2024").
		WillReturnRows(pgxmock.NewRows([]string{"last_id"}).AddRow(int64(1)))
	mockPool.ExpectExec("INSERT INTO entries").
		WithArgs("2024", int64(1), "bread", pgxmock.AnyArg(), pgxmock.AnyArg(), "groceries").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()

	id, err := repo.Add(context.Background(), "2024", domain.EntryRecord{
		Name: "bread", Value: -2, Date: "2024-01-01", Category: "groceries",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}

	assertExpectations(t, mockPool)
}

func TestEntryRepositoryAddRejectsBadDate(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Add(context.Background(), "2024", domain.EntryRecord{Name: "x", Value: 1, Date: "01-01"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEntryRepositoryGet(t *testing.T) {
	repo, mockPool := newTestRepository(t)

	mockPool.ExpectQuery("SELECT id, name, value, date, category FROM entries").
		WithArgs("2024", int64(2)).
		WillReturnRows(pgxmock.NewRows(entryColumns).
			AddRow(int64(2), "bread", floatToNumeric(-2.5), testDate(t, "2024-01-01"), "groceries"))

	got, err := repo.Get(context.Background(), "2024", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID == nil || *got.ID != 2 {
		t.Fatalf("expected id 2, got %v", got.ID)
	}
	if got.Value != -2.5 {
		t.Errorf("expected value -2.5, got %v", got.Value)
	}
	if got.Date != "2024-01-01" {
		t.Errorf("expected date 2024-01-01, got %s", got.Date)
	}

	assertExpectations(t, mockPool)
}

func TestEntryRepositoryGetNotFound(t *testing.T) {
	tests := []struct {
		name         string
		periodExists bool
		want         error
	}{
		{name: "unknown entry", periodExists: true, want: domain.ErrEntryNotFound},
		{name: "unknown period", periodExists: false, want: domain.ErrPeriodNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mockPool := newTestRepository(t)

			mockPool.ExpectQuery("SELECT id, name, value, date, category FROM entries").
				WithArgs("2024", int64(9)).
				WillReturnRows(pgxmock.NewRows(entryColumns))
			mockPool.ExpectQuery("SELECT EXISTS").
				WithArgs("2024").
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.periodExists))

			_, err := repo.Get(context.Background(), "2024", 9)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}

			assertExpectations(t, mockPool)
		})
	}
}

func TestEntryRepositoryUpdate(t *testing.T) {
	repo, mockPool := newTestRepository(t)

	mockPool.ExpectExec("UPDATE entries").
		WithArgs("2024", int64(1), "rolls", pgxmock.AnyArg(), testDate(t, "2024-01-05"), "bakery").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), "2024", 1, domain.EntryRecord{
		Name: "rolls", Value: -3, Date: "2024-01-05", Category: "bakery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestEntryRepositoryRemoveNotFound(t *testing.T) {
	repo, mockPool := newTestRepository(t)

	mockPool.ExpectExec("DELETE FROM entries").
		WithArgs("2024", int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mockPool.ExpectQuery("SELECT EXISTS").
		WithArgs("2024").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Remove(context.Background(), "2024", 3)
	if !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestEntryRepositoryList(t *testing.T) {
	repo, mockPool := newTestRepository(t)

	mockPool.ExpectQuery("SELECT id, name, value, date, category FROM entries").
		WithArgs("2024").
		WillReturnRows(pgxmock.NewRows(entryColumns).
			AddRow(int64(1), "bread", floatToNumeric(-2), testDate(t, "2024-01-01"), "groceries").
			AddRow(int64(2), "salary", floatToNumeric(1000), testDate(t, "2024-01-02"), "income"))

	records, err := repo.List(context.Background(), "2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Name != "salary" || records[1].Value != 1000 {
		t.Errorf("unexpected record: %+v", records[1])
	}

	assertExpectations(t, mockPool)
}

func TestEntryRepositoryPeriods(t *testing.T) {
	repo, mockPool := newTestRepository(t)

	mockPool.ExpectQuery("SELECT name FROM periods").
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("2023").AddRow("2024"))

	periods, err := repo.Periods(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(periods) != 2 || periods[0] != "2023" || periods[1] != "2024" {
		t.Fatalf("unexpected periods: %v", periods)
	}

	assertExpectations(t, mockPool)
}

func TestNumericRoundTrip(t *testing.T) {
	for _, v := range []float64{0, -2.5, 1000, 123.45, -0.01} {
		if got := numericToFloat(floatToNumeric(v)); got != v {
			t.Errorf("round trip of %v gave %v", v, got)
		}
	}
}
