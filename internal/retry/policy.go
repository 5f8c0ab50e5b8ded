package retry

import (
	"fmt"
	"strings"
	"time"
)

// BackoffStrategy defines retry wait behavior.
type BackoffStrategy string

const (
	BackoffLinear            BackoffStrategy = "linear"
	BackoffExponential       BackoffStrategy = "exponential"
	BackoffExponentialJitter BackoffStrategy = "exponential_jitter"
)

const defaultBaseDelay = 100 * time.Millisecond

// Policy configures how many times one provider is tried within a single
// candidate slot. The zero value means one try and no waiting.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffStrategy
	BaseDelay   time.Duration
}

// BreakerPolicy configures failure threshold and reset behavior.
type BreakerPolicy struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	// ProbeTimeout bounds how long a half-open probe holds the slot.
	ProbeTimeout time.Duration
}

func (p BreakerPolicy) resetTimeout() time.Duration {
	if p.ResetTimeout <= 0 {
		return 60 * time.Second
	}
	return p.ResetTimeout
}

func (p BreakerPolicy) probeTimeout() time.Duration {
	if p.ProbeTimeout <= 0 {
		return p.resetTimeout()
	}
	return p.ProbeTimeout
}

// ParseBackoff maps a config string to a strategy. Empty means linear.
func ParseBackoff(raw string) (BackoffStrategy, error) {
	switch s := BackoffStrategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return BackoffLinear, nil
	case BackoffLinear, BackoffExponential, BackoffExponentialJitter:
		return s, nil
	default:
		return "", fmt.Errorf("unknown backoff strategy %q", raw)
	}
}
