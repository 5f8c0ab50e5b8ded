package retry

import (
	"errors"
	"fmt"
)

var (
	ErrAttemptTimeout = errors.New("provider attempt timed out")
	ErrCircuitOpen    = errors.New("circuit breaker open")
	ErrProviderPanic  = errors.New("provider panicked")
)

// PermanentError wraps an error that must not be retried.
type PermanentError struct {
	Cause error
}

func (e PermanentError) Error() string {
	if e.Cause == nil {
		return "permanent error"
	}
	return fmt.Sprintf("permanent error: %v", e.Cause)
}

func (e PermanentError) Unwrap() error {
	return e.Cause
}

// NonRetryable marks an error as not eligible for retries.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return PermanentError{Cause: err}
}

// IsRetryable reports whether Execute may try again after err.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perm PermanentError
	if errors.As(err, &perm) {
		return false
	}
	return !errors.Is(err, ErrCircuitOpen)
}
