package dto

import (
	"github.com/iho/financeager/internal/usecase"
)

// AddEntryRequest represents a request to add an entry to a period.
type AddEntryRequest struct {
	Name     string   `json:"name"               mapstructure:"name"`
	Value    *float64 `json:"value"              mapstructure:"value"`
	Category string   `json:"category,omitempty" mapstructure:"category"`
	Date     string   `json:"date,omitempty"     mapstructure:"date"`
}

// ToUseCaseInput converts to use case input. Value must be set.
func (r *AddEntryRequest) ToUseCaseInput(period string) usecase.AddEntryInput {
	return usecase.AddEntryInput{
		Period:   period,
		Name:     r.Name,
		Category: r.Category,
		Date:     r.Date,
		Value:    *r.Value,
	}
}

// UpdateEntryRequest represents a partial update of an entry. Absent fields
// keep their stored values.
type UpdateEntryRequest struct {
	Name     *string  `json:"name,omitempty"     mapstructure:"name"`
	Value    *float64 `json:"value,omitempty"    mapstructure:"value"`
	Category *string  `json:"category,omitempty" mapstructure:"category"`
	Date     *string  `json:"date,omitempty"     mapstructure:"date"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateEntryRequest) ToUseCaseInput(period string, id uint64) usecase.UpdateEntryInput {
	return usecase.UpdateEntryInput{
		Period:   period,
		ID:       id,
		Name:     r.Name,
		Value:    r.Value,
		Category: r.Category,
		Date:     r.Date,
	}
}
