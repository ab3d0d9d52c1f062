package domain

import (
	"errors"
	"fmt"
)

var (
	// Entry errors
	ErrValidation    = errors.New("validation failed")
	ErrEntryNotFound = errors.New("entry not found")

	// Period errors
	ErrPeriodNotFound = errors.New("period not found")

	// Command errors
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidParams  = errors.New("invalid command parameters")
)

// ValidationError reports the field that failed validation on entry construction.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
