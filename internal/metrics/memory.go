package metrics

import (
	"sync"
	"time"
)

// ProviderStats aggregates counters for one provider.
type ProviderStats struct {
	Successes     int           `json:"successes"`
	Failures      int           `json:"failures"`
	Retries       int           `json:"retries"`
	Skips         int           `json:"skips"`
	CircuitOpens  int           `json:"circuit_opens"`
	FallbackWins  int           `json:"fallback_wins"`
	TotalDuration time.Duration `json:"total_duration"`
}

// Snapshot is a point-in-time copy of InMemoryRecorder state.
type Snapshot struct {
	TotalAttempts  int                      `json:"total_attempts"`
	FailedAttempts int                      `json:"failed_attempts"`
	Fallbacks      int                      `json:"fallbacks"`
	Exhausted      int                      `json:"exhausted"`
	ByProvider     map[string]ProviderStats `json:"by_provider"`
}

// InMemoryRecorder keeps counters in process, for tests and the CLI.
type InMemoryRecorder struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{snap: Snapshot{ByProvider: map[string]ProviderStats{}}}
}

func (r *InMemoryRecorder) update(provider string, fn func(*ProviderStats)) {
	s := r.snap.ByProvider[provider]
	fn(&s)
	r.snap.ByProvider[provider] = s
}

func (r *InMemoryRecorder) ObserveAttempt(provider string, outcome string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.TotalAttempts++
	if outcome != OutcomeOK {
		r.snap.FailedAttempts++
	}
	r.update(provider, func(s *ProviderStats) {
		if outcome == OutcomeOK {
			s.Successes++
		} else {
			s.Failures++
		}
		s.TotalDuration += duration
	})
}

func (r *InMemoryRecorder) ObserveRetry(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.update(provider, func(s *ProviderStats) { s.Retries++ })
}

func (r *InMemoryRecorder) ObserveSkip(provider string, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.update(provider, func(s *ProviderStats) { s.Skips++ })
}

func (r *InMemoryRecorder) ObserveFallback(_ string, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Fallbacks++
	r.update(provider, func(s *ProviderStats) { s.FallbackWins++ })
}

func (r *InMemoryRecorder) ObserveExhausted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Exhausted++
}

func (r *InMemoryRecorder) ObserveCircuitOpen(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.update(provider, func(s *ProviderStats) { s.CircuitOpens++ })
}

// Snapshot returns a copy safe to read after further observations.
func (r *InMemoryRecorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.snap
	out.ByProvider = make(map[string]ProviderStats, len(r.snap.ByProvider))
	for k, v := range r.snap.ByProvider {
		out.ByProvider[k] = v
	}
	return out
}
