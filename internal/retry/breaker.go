package retry

import (
	"context"
	"sync"
	"time"
)

// Breaker tracks per-provider failure state. Allow reports whether a call
// may proceed and whether it is the single half-open probe.
type Breaker interface {
	Allow(ctx context.Context, key string, now time.Time) (allowed bool, probe bool, err error)
	RecordSuccess(ctx context.Context, key string) error
	RecordFailure(ctx context.Context, key string, now time.Time) error
}

// MemoryBreaker keeps breaker state in process.
type MemoryBreaker struct {
	policy BreakerPolicy

	mu     sync.Mutex
	states map[string]circuitState
}

type circuitState struct {
	consecutiveFailures int
	openUntil           time.Time
	halfOpen            bool
	probeUntil          time.Time
}

func NewMemoryBreaker(policy BreakerPolicy) *MemoryBreaker {
	return &MemoryBreaker{policy: policy, states: make(map[string]circuitState)}
}

func (cb *MemoryBreaker) Allow(_ context.Context, key string, now time.Time) (bool, bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.policy.FailureThreshold <= 0 {
		return true, false, nil
	}

	s := cb.states[key]
	if !s.openUntil.IsZero() {
		if now.Before(s.openUntil) {
			return false, false, nil
		}
		s.openUntil = time.Time{}
		s.halfOpen = true
	}
	if s.halfOpen {
		if !s.probeUntil.IsZero() && now.Before(s.probeUntil) {
			cb.states[key] = s
			return false, false, nil
		}
		s.probeUntil = now.Add(cb.policy.probeTimeout())
		cb.states[key] = s
		return true, true, nil
	}
	return true, false, nil
}

func (cb *MemoryBreaker) RecordSuccess(_ context.Context, key string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	delete(cb.states, key)
	return nil
}

func (cb *MemoryBreaker) RecordFailure(_ context.Context, key string, now time.Time) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.policy.FailureThreshold <= 0 {
		return nil
	}

	s := cb.states[key]
	s.consecutiveFailures++
	// A failed probe reopens immediately.
	if s.halfOpen || s.consecutiveFailures >= cb.policy.FailureThreshold {
		s = circuitState{openUntil: now.Add(cb.policy.resetTimeout())}
	}
	cb.states[key] = s
	return nil
}
