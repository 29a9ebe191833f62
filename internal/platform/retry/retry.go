// Package retry repeats failed upstream calls with exponential backoff.
// Pool and wallet hiccups are routine during a block change, so callers
// treat transport errors as transient unless marked Permanent.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how often and how fast an operation is repeated. The
// backoff doubles after every failed attempt.
type Policy struct {
	Attempts int
	Backoff  time.Duration
	OnRetry  func(attempt int, err error, backoff time.Duration)
}

type Operation[T any] func() (T, error)

// Do runs op until it succeeds, the attempts are exhausted, the error is
// Permanent, or ctx is cancelled.
func Do[T any](ctx context.Context, p Policy, op Operation[T]) (T, error) {
	var zero T
	backoff := p.Backoff

	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			return zero, err
		}

		if attempt == p.Attempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.Attempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
