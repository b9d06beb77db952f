// Package retry wraps flaky operations with fixed-delay retry. The
// upstream portals fail intermittently on login and fetch; a few spaced
// attempts per poll cycle absorb that without backoff machinery.
package retry

import (
	"context"
	"fmt"
	"time"
)

// ExhaustedError is returned when every attempt failed. It wraps the
// last attempt's error so errors.Is/As reach through to the cause.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Do runs op up to attempts times, sleeping delay between failures.
//
// The first nil return wins. Context cancellation aborts the wait
// between attempts and returns ctx.Err(); an in-flight op is expected to
// honor ctx itself. attempts < 1 is treated as 1.
func Do(ctx context.Context, attempts int, delay time.Duration, op func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = op(ctx)
		if last == nil {
			return nil
		}

		if attempt < attempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return &ExhaustedError{Attempts: attempts, Last: last}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, attempts int, delay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, attempts, delay, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
