package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLSTATE codes of transactions that lost a race with a concurrent writer
// and may succeed when rerun.
var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// Retrier reruns ledger write transactions that failed on a transient
// conflict, typically two adds racing for the id counter of one period.
type Retrier struct {
	attempts        uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	logger          zerolog.Logger
}

// NewRetrier creates a Retrier that reruns a transaction up to three times.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return &Retrier{
		attempts:        3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     time.Second,
		logger:          logger,
	}
}

// Retry runs tx and reruns it while it fails with a transient conflict.
// Other errors and cancellation of ctx end the loop immediately.
func (r *Retrier) Retry(ctx context.Context, op string, tx func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initialInterval
	policy.MaxInterval = r.maxInterval
	policy.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		r.logger.Warn().
			Err(err).
			Str("op", op).
			Str("sqlstate", sqlState(err)).
			Dur("backoff", wait).
			Msg("transaction conflict, rerunning")
	}

	return backoff.RetryNotify(func() error {
		err := tx()
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, r.attempts), ctx), notify)
}

func isTransient(err error) bool {
	return transientCodes[sqlState(err)]
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
