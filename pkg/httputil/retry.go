package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network errors, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy bounds how often [Retry] runs an operation.
type Policy struct {
	Attempts int           // total attempts; values below 1 mean 1
	Delay    time.Duration // wait before the second attempt, doubled after each
}

// NoRetry runs an operation exactly once.
var NoRetry = Policy{Attempts: 1}

// Retry executes fn up to p.Attempts times. Errors not wrapped in
// [RetryableError] are returned immediately. It returns the last error if
// every attempt fails, or ctx.Err() if ctx is cancelled while waiting.
func Retry(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// IsRetryable reports whether err is wrapped in a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
