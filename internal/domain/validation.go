package domain

import (
	"math"
	"strings"
	"time"
)

// Date formats accepted on input. DateLayout is the canonical one used for
// serialization; the month-day form is kept for records written by older
// clients.
const (
	DateLayout       = "2006-01-02"
	LegacyDateLayout = "01-02"
)

// DefaultCategory names the category of entries added without one.
const DefaultCategory = "unspecified"

// NormalizeName returns the stored form of an entry or category name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateName validates an entry or category name.
func ValidateName(name string) error {
	if NormalizeName(name) == "" {
		return newValidationError("name", "name cannot be empty")
	}
	return nil
}

// ValidateValue validates an entry value.
func ValidateValue(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return newValidationError("value", "value must be a finite number")
	}
	return nil
}

// ParseDate parses an entry date in the canonical or legacy layout. Legacy
// month-day dates are placed in the current year.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, newValidationError("date", "date cannot be empty")
	}

	if d, err := time.Parse(DateLayout, value); err == nil {
		return d, nil
	}

	d, err := time.Parse(LegacyDateLayout, value)
	if err != nil {
		return time.Time{}, newValidationError("date", "unrecognized date "+value)
	}

	// Year 0 is a leap year, so 02-29 parses above even when the current year has no such day.
	year := time.Now().Year()
	fixed := time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if fixed.Month() != d.Month() {
		return time.Time{}, newValidationError("date", "day out of range for "+value)
	}

	return fixed, nil
}

// Today returns the current date at midnight UTC.
func Today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
