package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/iho/financeager/internal/adapter/grpc/converter"
	"github.com/iho/financeager/internal/domain"
)

// MapDomainError converts errors to gRPC status errors without exposing
// internal details to clients.
func MapDomainError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	// Not Found errors
	case errors.Is(err, domain.ErrEntryNotFound):
		return status.Error(codes.NotFound, "entry not found")
	case errors.Is(err, domain.ErrPeriodNotFound):
		return status.Error(codes.NotFound, "period not found")

	// Invalid Argument errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidParams),
		errors.Is(err, domain.ErrUnknownCommand),
		errors.Is(err, converter.ErrMalformedRequest):
		return status.Error(codes.InvalidArgument, err.Error())

	// Context errors (timeouts, cancellations)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "operation timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "operation was canceled")

	default:
		return status.Error(codes.Internal, "an internal error occurred")
	}
}
