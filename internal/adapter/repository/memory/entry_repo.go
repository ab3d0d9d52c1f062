package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iho/financeager/internal/domain"
)

type period struct {
	lastID  uint64
	entries map[uint64]domain.EntryRecord
}

// EntryRepository implements usecase.EntryRepository in process memory.
type EntryRepository struct {
	mu      sync.RWMutex
	periods map[string]*period
}

// NewEntryRepository creates an empty EntryRepository.
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{periods: make(map[string]*period)}
}

// Add stores record under the next id of period, creating the period on first use.
func (r *EntryRepository) Add(_ context.Context, name string, record domain.EntryRecord) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.periods[name]
	if !ok {
		p = &period{entries: make(map[uint64]domain.EntryRecord)}
		r.periods[name] = p
	}

	p.lastID++
	id := p.lastID
	record.ID = &id
	p.entries[id] = record

	return id, nil
}

// Get retrieves an entry by id.
func (r *EntryRepository) Get(_ context.Context, name string, id uint64) (*domain.EntryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, err := r.lookup(name, id)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Update replaces the stored fields of an entry.
func (r *EntryRepository) Update(_ context.Context, name string, id uint64, record domain.EntryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.lookup(name, id); err != nil {
		return err
	}

	record.ID = &id
	r.periods[name].entries[id] = record
	return nil
}

// Remove deletes an entry by id.
func (r *EntryRepository) Remove(_ context.Context, name string, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.lookup(name, id); err != nil {
		return err
	}

	delete(r.periods[name].entries, id)
	return nil
}

// List returns the entries of a period ordered by id.
func (r *EntryRepository) List(_ context.Context, name string) ([]domain.EntryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.periods[name]
	if !ok {
		return []domain.EntryRecord{}, nil
	}

	records := make([]domain.EntryRecord, 0, len(p.entries))
	for _, record := range p.entries {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return *records[i].ID < *records[j].ID })

	return records, nil
}

// Periods returns the names of all periods that have been written to.
func (r *EntryRepository) Periods(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.periods))
	for name := range r.periods {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// Close is a no-op; the data lives as long as the repository.
func (r *EntryRepository) Close() error {
	return nil
}

func (r *EntryRepository) lookup(name string, id uint64) (domain.EntryRecord, error) {
	p, ok := r.periods[name]
	if !ok {
		return domain.EntryRecord{}, fmt.Errorf("%w: %s", domain.ErrPeriodNotFound, name)
	}

	record, ok := p.entries[id]
	if !ok {
		return domain.EntryRecord{}, fmt.Errorf("%w: %d", domain.ErrEntryNotFound, id)
	}

	return record, nil
}
