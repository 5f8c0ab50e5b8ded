package adapters

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey     = errors.New("missing api key")
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrToolsUnsupported  = errors.New("provider does not support tool calls")
	ErrNilConstructor    = errors.New("provider constructor is nil")
	ErrEmptyProviderName = errors.New("provider name is empty")
)

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}
