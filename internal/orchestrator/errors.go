package orchestrator

import (
	"errors"
	"fmt"
)

var (
	ErrExhausted            = errors.New("all providers exhausted")
	ErrNoCompatibleProvider = errors.New("no compatible provider")
)

// ExhaustedError is returned when every candidate failed or was skipped.
// Unwrap yields the last underlying failure, or ErrNoCompatibleProvider when
// no candidate was ever called.
type ExhaustedError struct {
	Primary  string
	Attempts []Attempt
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%s: %s for request (primary %q)", ErrExhausted, ErrNoCompatibleProvider, e.Primary)
	}
	return fmt.Sprintf("%s: last error: %v", ErrExhausted, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	if e.Last == nil {
		return ErrNoCompatibleProvider
	}
	return e.Last
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}
