package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// EntryID identifies a stored entry. The zero value is unassigned, which is
// distinct from an assigned id 0.
type EntryID struct {
	value    uint64
	assigned bool
}

// NewEntryID returns an assigned id.
func NewEntryID(v uint64) EntryID {
	return EntryID{value: v, assigned: true}
}

// EntryIDFromPtr converts an optional record id.
func EntryIDFromPtr(p *uint64) EntryID {
	if p == nil {
		return EntryID{}
	}
	return NewEntryID(*p)
}

// Value returns the id and whether it is assigned.
func (id EntryID) Value() (uint64, bool) {
	return id.value, id.assigned
}

// IsAssigned reports whether the id was given by a store.
func (id EntryID) IsAssigned() bool {
	return id.assigned
}

// Ptr returns the id as an optional record field.
func (id EntryID) Ptr() *uint64 {
	if !id.assigned {
		return nil
	}
	v := id.value
	return &v
}

func (id EntryID) String() string {
	if !id.assigned {
		return "-"
	}
	return strconv.FormatUint(id.value, 10)
}

// BaseEntry is a single dated, valued ledger record. Values are immutable
// once constructed.
type BaseEntry struct {
	date  time.Time
	name  string
	value float64
	id    EntryID
}

// NewBaseEntry validates and constructs an entry. An empty date means today.
func NewBaseEntry(name string, value float64, date string) (BaseEntry, error) {
	d := Today()
	if date != "" {
		var err error
		d, err = ParseDate(date)
		if err != nil {
			return BaseEntry{}, err
		}
	}

	return newBaseEntry(name, value, d, EntryID{})
}

// BaseEntryFromStored adapts a persistence record. Records without an id
// produce an entry with an unassigned id.
func BaseEntryFromStored(r EntryRecord) (BaseEntry, error) {
	d, err := ParseDate(r.Date)
	if err != nil {
		return BaseEntry{}, err
	}

	return newBaseEntry(r.Name, r.Value, d, EntryIDFromPtr(r.ID))
}

func newBaseEntry(name string, value float64, date time.Time, id EntryID) (BaseEntry, error) {
	if err := ValidateName(name); err != nil {
		return BaseEntry{}, err
	}
	if err := ValidateValue(value); err != nil {
		return BaseEntry{}, err
	}

	return BaseEntry{
		name:  NormalizeName(name),
		value: value,
		date:  time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		id:    id,
	}, nil
}

// Name returns the stored lowercase name.
func (e BaseEntry) Name() string { return e.name }

// Value returns the signed amount.
func (e BaseEntry) Value() float64 { return e.value }

// Date returns the entry date.
func (e BaseEntry) Date() time.Time { return e.date }

// ID returns the store-assigned id.
func (e BaseEntry) ID() EntryID { return e.id }

// WithID returns a copy of the entry carrying id.
func (e BaseEntry) WithID(id EntryID) BaseEntry {
	e.id = id
	return e
}

// Record converts the entry into its persistence form.
func (e BaseEntry) Record(category string) EntryRecord {
	return EntryRecord{
		ID:       e.id.Ptr(),
		Name:     e.name,
		Value:    e.value,
		Date:     e.date.Format(DateLayout),
		Category: category,
	}
}

// CategoryEntry groups entries under a name. Its value is the sum of its
// entries unless set explicitly from a server-computed aggregate.
type CategoryEntry struct {
	name    string
	entries []BaseEntry
	value   float64
}

// NewCategoryEntry validates the name and derives the value from entries.
// Entries keep their insertion order.
func NewCategoryEntry(name string, entries ...BaseEntry) (CategoryEntry, error) {
	if err := ValidateName(name); err != nil {
		return CategoryEntry{}, err
	}

	owned := make([]BaseEntry, len(entries))
	copy(owned, entries)

	return CategoryEntry{
		name:    NormalizeName(name),
		entries: owned,
		value:   sumValues(owned),
	}, nil
}

// CategoryEntryFromRecord adapts a category record. The record's value is
// kept as-is so aggregates survive even when entries are filtered out.
func CategoryEntryFromRecord(r CategoryRecord) (CategoryEntry, error) {
	entries := make([]BaseEntry, 0, len(r.Entries))
	for _, er := range r.Entries {
		e, err := BaseEntryFromStored(er)
		if err != nil {
			return CategoryEntry{}, err
		}
		entries = append(entries, e)
	}

	c, err := NewCategoryEntry(r.Name, entries...)
	if err != nil {
		return CategoryEntry{}, err
	}

	return c.WithValue(r.Value)
}

// Name returns the stored lowercase name.
func (c CategoryEntry) Name() string { return c.name }

// Value returns the category total.
func (c CategoryEntry) Value() float64 { return c.value }

// Entries returns a copy of the contained entries in insertion order.
func (c CategoryEntry) Entries() []BaseEntry {
	out := make([]BaseEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// WithValue returns a copy with an explicit total.
func (c CategoryEntry) WithValue(value float64) (CategoryEntry, error) {
	if err := ValidateValue(value); err != nil {
		return CategoryEntry{}, err
	}
	c.entries = c.Entries()
	c.value = value
	return c, nil
}

// Record converts the category into its wire form.
func (c CategoryEntry) Record() CategoryRecord {
	records := make([]EntryRecord, len(c.entries))
	for i, e := range c.entries {
		records[i] = e.Record("")
	}
	return CategoryRecord{
		Name:    c.name,
		Value:   c.value,
		Entries: records,
	}
}

func sumValues(entries []BaseEntry) float64 {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(decimal.NewFromFloat(e.value))
	}
	f, _ := total.Float64()
	return f
}
