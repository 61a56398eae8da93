// Package retry wraps avast/retry-go with the fibonacci backoff the
// handshake driver needs: delays grow 1s, 1s, 2s, 3s, 5s, 8s... clamped to
// a per-attempt ceiling, with the whole retry loop additionally bounded by
// a total-elapsed-time ceiling. Two ceilings rather than one because a
// single "give up after N attempts" count doesn't mean anything once the
// per-attempt delay itself is unbounded — the caller cares about wall
// time, not attempt count.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// InitialDelay is the first retry's delay.
	InitialDelay = time.Second
	// MaxDelay caps any single retry's delay.
	MaxDelay = 60 * time.Second
	// MaxTotalDelay caps the sum of all delays across one Do call.
	MaxTotalDelay = 10 * time.Minute
)

// MaxRetryError is returned when Do exhausts the total delay budget
// without its function succeeding.
type MaxRetryError struct {
	Description string
	Tries       uint
	TotalDelay  time.Duration
	Source      error
}

func (e *MaxRetryError) Error() string {
	return fmt.Sprintf("%s: giving up after %d tries, %s elapsed: %v", e.Description, e.Tries, e.TotalDelay, e.Source)
}

func (e *MaxRetryError) Unwrap() error { return e.Source }

// fibonacci yields 1s, 1s, 2s, 3s, 5s, 8s, 13s... capped at MaxDelay.
func fibonacci(n uint) time.Duration {
	a, b := InitialDelay, InitialDelay
	for i := uint(0); i < n; i++ {
		a, b = b, a+b
		if a > MaxDelay {
			return MaxDelay
		}
	}
	if a > MaxDelay {
		return MaxDelay
	}
	return a
}

// retryable is satisfied by errors that know whether retrying can help.
// Errors that don't implement it are always retried.
type retryable interface {
	Retryable() bool
}

// Do runs fn, retrying with fibonacci backoff until it succeeds, the
// context is cancelled, the cumulative delay would exceed MaxTotalDelay,
// or fn reports an error that declares itself non-retryable — those fail
// fast and come back unwrapped. All other exhaustions are reported as a
// MaxRetryError labelled with description.
func Do(ctx context.Context, description string, fn func() error) error {
	var tries uint
	var totalDelay time.Duration
	var lastErr error

	err := retry.Do(
		func() error {
			tries++
			err := fn()
			lastErr = err
			return err
		},
		retry.Context(ctx),
		retry.Attempts(0), // unbounded attempts; MaxTotalDelay via DelayType is the real bound
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			d := fibonacci(n)
			totalDelay += d
			if totalDelay > MaxTotalDelay {
				return 0
			}
			return d
		}),
		retry.RetryIf(func(err error) bool {
			var r retryable
			if errors.As(err, &r) && !r.Retryable() {
				return false
			}
			return totalDelay <= MaxTotalDelay
		}),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}
	if lastErr == nil {
		lastErr = err
	}
	var r retryable
	if errors.As(lastErr, &r) && !r.Retryable() {
		return lastErr
	}
	return &MaxRetryError{
		Description: description,
		Tries:       tries,
		TotalDelay:  totalDelay,
		Source:      lastErr,
	}
}
