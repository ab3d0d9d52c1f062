package usecase

import "time"

const (
	// DefaultCommandTimeout bounds a single command on the server side.
	DefaultCommandTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending marks a key whose request is still being handled.
	IdempotencyPending = "processing"

	// ListCacheTTL is how long a listed period stays cached
	ListCacheTTL = 5 * time.Minute
)
