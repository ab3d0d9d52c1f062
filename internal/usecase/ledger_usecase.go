package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iho/financeager/internal/domain"
)

// LedgerUseCase handles entry business logic.
type LedgerUseCase struct {
	repo            EntryRepository
	defaultCategory string
}

// NewLedgerUseCase creates a new LedgerUseCase. Entries added without a
// category are filed under defaultCategory.
func NewLedgerUseCase(repo EntryRepository, defaultCategory string) *LedgerUseCase {
	if domain.NormalizeName(defaultCategory) == "" {
		defaultCategory = domain.DefaultCategory
	}
	return &LedgerUseCase{
		repo:            repo,
		defaultCategory: domain.NormalizeName(defaultCategory),
	}
}

// DefaultPeriod returns the period used when none is given: the current year.
func DefaultPeriod() string {
	return strconv.Itoa(time.Now().Year())
}

// AddEntryInput represents input for adding an entry.
type AddEntryInput struct {
	Period   string
	Name     string
	Category string
	Date     string
	Value    float64
}

// AddEntry validates and stores a new entry, returning its id.
func (uc *LedgerUseCase) AddEntry(ctx context.Context, input AddEntryInput) (uint64, error) {
	entry, err := domain.NewBaseEntry(input.Name, input.Value, input.Date)
	if err != nil {
		return 0, err
	}

	return uc.repo.Add(ctx, uc.period(input.Period), entry.Record(uc.category(input.Category)))
}

// GetEntry retrieves an entry by id.
func (uc *LedgerUseCase) GetEntry(ctx context.Context, period string, id uint64) (*domain.EntryRecord, error) {
	return uc.repo.Get(ctx, uc.period(period), id)
}

// RemoveEntry deletes an entry by id.
func (uc *LedgerUseCase) RemoveEntry(ctx context.Context, period string, id uint64) error {
	return uc.repo.Remove(ctx, uc.period(period), id)
}

// UpdateEntryInput represents input for updating an entry. Nil fields keep
// their stored value.
type UpdateEntryInput struct {
	Name     *string
	Value    *float64
	Category *string
	Date     *string
	Period   string
	ID       uint64
}

// UpdateEntry rebuilds the entry from its stored fields and the given
// changes. The result is validated as a whole before it is written.
func (uc *LedgerUseCase) UpdateEntry(ctx context.Context, input UpdateEntryInput) error {
	period := uc.period(input.Period)

	current, err := uc.repo.Get(ctx, period, input.ID)
	if err != nil {
		return err
	}

	name, value, date, category := current.Name, current.Value, current.Date, current.Category
	if input.Name != nil {
		name = *input.Name
	}
	if input.Value != nil {
		value = *input.Value
	}
	if input.Date != nil {
		date = *input.Date
	}
	if input.Category != nil {
		category = *input.Category
	}

	entry, err := domain.NewBaseEntry(name, value, date)
	if err != nil {
		return err
	}

	return uc.repo.Update(ctx, period, input.ID, entry.WithID(domain.NewEntryID(input.ID)).Record(uc.category(category)))
}

// ListEntriesInput represents input for listing a period. Filters match
// substrings of the stored name, category and canonical date.
type ListEntriesInput struct {
	Period   string
	Name     string
	Category string
	Date     string
}

// ListEntries returns the period's entries grouped by category. Categories
// appear in the order their first entry was added.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, input ListEntriesInput) (*domain.Elements, error) {
	records, err := uc.repo.List(ctx, uc.period(input.Period))
	if err != nil {
		return nil, err
	}

	nameFilter := domain.NormalizeName(input.Name)
	categoryFilter := domain.NormalizeName(input.Category)
	dateFilter := strings.TrimSpace(input.Date)

	var order []string
	grouped := make(map[string][]domain.BaseEntry)

	for _, r := range records {
		if !strings.Contains(r.Name, nameFilter) ||
			!strings.Contains(r.Category, categoryFilter) ||
			!strings.Contains(r.Date, dateFilter) {
			continue
		}

		entry, err := domain.BaseEntryFromStored(r)
		if err != nil {
			return nil, err
		}

		category := uc.category(r.Category)
		if _, ok := grouped[category]; !ok {
			order = append(order, category)
		}
		grouped[category] = append(grouped[category], entry)
	}

	elements := &domain.Elements{Categories: make([]domain.CategoryRecord, 0, len(order))}
	for _, name := range order {
		c, err := domain.NewCategoryEntry(name, grouped[name]...)
		if err != nil {
			return nil, err
		}
		elements.Categories = append(elements.Categories, c.Record())
	}

	return elements, nil
}

// ListPeriods returns the names of all periods in ascending order.
func (uc *LedgerUseCase) ListPeriods(ctx context.Context) ([]string, error) {
	periods, err := uc.repo.Periods(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(periods)
	return periods, nil
}

func (uc *LedgerUseCase) period(period string) string {
	period = strings.TrimSpace(period)
	if period == "" {
		return DefaultPeriod()
	}
	return period
}

func (uc *LedgerUseCase) category(category string) string {
	category = domain.NormalizeName(category)
	if category == "" {
		return uc.defaultCategory
	}
	return category
}
