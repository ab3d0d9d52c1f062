package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/financeager/internal/domain"
)

const (
	nextIDQuery = `INSERT INTO periods (name, last_id) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET last_id = periods.last_id + 1
RETURNING last_id`

	insertEntryQuery = `INSERT INTO entries (period, id, name, value, date, category) VALUES ($1, $2, $3, $4, $5, $6)`

	getEntryQuery = `SELECT id, name, value, date, category FROM entries WHERE period = $1 AND id = $2`

	listEntriesQuery = `SELECT id, name, value, date, category FROM entries WHERE period = $1 ORDER BY id`

	updateEntryQuery = `UPDATE entries SET name = $3, value = $4, date = $5, category = $6 WHERE period = $1 AND id = $2`

	deleteEntryQuery = `DELETE FROM entries WHERE period = $1 AND id = $2`

	periodExistsQuery = `SELECT EXISTS (SELECT 1 FROM periods WHERE name = $1)`

	listPeriodsQuery = `SELECT name FROM periods ORDER BY name`
)

// EntryRepository implements usecase.EntryRepository on PostgreSQL.
type EntryRepository struct {
	pool    pgxPool
	retrier *Retrier
}

// NewEntryRepository creates a new EntryRepository. The repository takes
// ownership of pool.
func NewEntryRepository(pool *pgxpool.Pool, retrier *Retrier) *EntryRepository {
	return newEntryRepositoryWithPool(pool, retrier)
}

func newEntryRepositoryWithPool(pool pgxPool, retrier *Retrier) *EntryRepository {
	return &EntryRepository{pool: pool, retrier: retrier}
}

// Add stores record under the next id of period. The id counter row is
// locked for the duration of the transaction.
func (r *EntryRepository) Add(ctx context.Context, period string, record domain.EntryRecord) (uint64, error) {
	value, date, err := recordColumns(record)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.retrier.Retry(ctx, "add", func() error {
		return inTx(ctx, r.pool, func(tx pgx.Tx) error {
			if err := tx.QueryRow(ctx, nextIDQuery, period).Scan(&id); err != nil {
				return fmt.Errorf("allocate entry id: %w", err)
			}

			_, err := tx.Exec(ctx, insertEntryQuery, period, id, record.Name, value, date, record.Category)
			if err != nil {
				return fmt.Errorf("insert entry: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	return uint64(id), nil
}

// Get retrieves an entry by id.
func (r *EntryRepository) Get(ctx context.Context, period string, id uint64) (*domain.EntryRecord, error) {
	record, err := scanRecord(r.pool.QueryRow(ctx, getEntryQuery, period, int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.notFound(ctx, period, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}

	return &record, nil
}

// Update replaces the stored fields of an entry.
func (r *EntryRepository) Update(ctx context.Context, period string, id uint64, record domain.EntryRecord) error {
	value, date, err := recordColumns(record)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, updateEntryQuery, period, int64(id), record.Name, value, date, record.Category)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.notFound(ctx, period, id)
	}

	return nil
}

// Remove deletes an entry by id.
func (r *EntryRepository) Remove(ctx context.Context, period string, id uint64) error {
	tag, err := r.pool.Exec(ctx, deleteEntryQuery, period, int64(id))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.notFound(ctx, period, id)
	}

	return nil
}

// List returns the entries of a period ordered by id.
func (r *EntryRepository) List(ctx context.Context, period string) ([]domain.EntryRecord, error) {
	rows, err := r.pool.Query(ctx, listEntriesQuery, period)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	records := []domain.EntryRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Periods returns the names of all periods that have been written to.
func (r *EntryRepository) Periods(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listPeriodsQuery)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	periods := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, name)
	}

	return periods, rows.Err()
}

// Close closes the connection pool.
func (r *EntryRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (domain.EntryRecord, error) {
	var (
		id       int64
		name     string
		value    pgtype.Numeric
		date     pgtype.Date
		category string
	)
	if err := row.Scan(&id, &name, &value, &date, &category); err != nil {
		return domain.EntryRecord{}, err
	}

	uid := uint64(id)
	return domain.EntryRecord{
		ID:       &uid,
		Name:     name,
		Value:    numericToFloat(value),
		Date:     dateToString(date),
		Category: category,
	}, nil
}

// notFound tells a missing period from a missing entry.
func (r *EntryRepository) notFound(ctx context.Context, period string, id uint64) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, periodExistsQuery, period).Scan(&exists); err != nil {
		return fmt.Errorf("check period: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrPeriodNotFound, period)
	}
	return fmt.Errorf("%w: %d", domain.ErrEntryNotFound, id)
}
