package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iho/financeager/internal/domain"
)

const (
	nextIDQuery = `INSERT INTO periods (name, last_id) VALUES (?, 1)
ON CONFLICT (name) DO UPDATE SET last_id = last_id + 1
RETURNING last_id`

	insertEntryQuery = `INSERT INTO entries (period, id, name, value, date, category) VALUES (?, ?, ?, ?, ?, ?)`

	getEntryQuery = `SELECT id, name, value, date, category FROM entries WHERE period = ? AND id = ?`

	listEntriesQuery = `SELECT id, name, value, date, category FROM entries WHERE period = ? ORDER BY id`

	updateEntryQuery = `UPDATE entries SET name = ?, value = ?, date = ?, category = ? WHERE period = ? AND id = ?`

	deleteEntryQuery = `DELETE FROM entries WHERE period = ? AND id = ?`

	periodExistsQuery = `SELECT EXISTS (SELECT 1 FROM periods WHERE name = ?)`

	listPeriodsQuery = `SELECT name FROM periods ORDER BY name`
)

// EntryRepository implements usecase.EntryRepository on a SQLite database.
type EntryRepository struct {
	db *sql.DB
}

// NewEntryRepository creates a new EntryRepository. The database must
// already be migrated; the repository takes ownership of db.
func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Add stores record under the next id of period.
func (r *EntryRepository) Add(ctx context.Context, period string, record domain.EntryRecord) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	if err := tx.QueryRowContext(ctx, nextIDQuery, period).Scan(&id); err != nil {
		return 0, fmt.Errorf("allocate entry id: %w", err)
	}

	_, err = tx.ExecContext(ctx, insertEntryQuery, period, id, record.Name, record.Value, record.Date, record.Category)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return uint64(id), nil
}

// Get retrieves an entry by id.
func (r *EntryRepository) Get(ctx context.Context, period string, id uint64) (*domain.EntryRecord, error) {
	record, err := scanRecord(r.db.QueryRowContext(ctx, getEntryQuery, period, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.notFound(ctx, period, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}

	return &record, nil
}

// Update replaces the stored fields of an entry.
func (r *EntryRepository) Update(ctx context.Context, period string, id uint64, record domain.EntryRecord) error {
	res, err := r.db.ExecContext(ctx, updateEntryQuery, record.Name, record.Value, record.Date, record.Category, period, int64(id))
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}

	return r.checkAffected(ctx, res, period, id)
}

// Remove deletes an entry by id.
func (r *EntryRepository) Remove(ctx context.Context, period string, id uint64) error {
	res, err := r.db.ExecContext(ctx, deleteEntryQuery, period, int64(id))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	return r.checkAffected(ctx, res, period, id)
}

// List returns the entries of a period ordered by id.
func (r *EntryRepository) List(ctx context.Context, period string) ([]domain.EntryRecord, error) {
	rows, err := r.db.QueryContext(ctx, listEntriesQuery, period)
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
	rows, err := r.db.QueryContext(ctx, listPeriodsQuery)
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

// Close closes the underlying database.
func (r *EntryRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.EntryRecord, error) {
	var (
		record domain.EntryRecord
		id     int64
	)
	if err := row.Scan(&id, &record.Name, &record.Value, &record.Date, &record.Category); err != nil {
		return domain.EntryRecord{}, err
	}

	uid := uint64(id)
	record.ID = &uid
	return record, nil
}

func (r *EntryRepository) checkAffected(ctx context.Context, res sql.Result, period string, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return r.notFound(ctx, period, id)
	}
	return nil
}

// notFound tells a missing period from a missing entry.
func (r *EntryRepository) notFound(ctx context.Context, period string, id uint64) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, periodExistsQuery, period).Scan(&exists); err != nil {
		return fmt.Errorf("check period: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrPeriodNotFound, period)
	}
	return fmt.Errorf("%w: %d", domain.ErrEntryNotFound, id)
}
