package metrics

import "time"

// MultiRecorder fans out metrics to multiple recorders.
type MultiRecorder struct {
	recorders []Recorder
}

func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	nonNil := make([]Recorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			nonNil = append(nonNil, r)
		}
	}
	return &MultiRecorder{recorders: nonNil}
}

func (m *MultiRecorder) ObserveAttempt(provider string, outcome string, duration time.Duration) {
	for _, r := range m.recorders {
		r.ObserveAttempt(provider, outcome, duration)
	}
}

func (m *MultiRecorder) ObserveRetry(provider string) {
	for _, r := range m.recorders {
		r.ObserveRetry(provider)
	}
}

func (m *MultiRecorder) ObserveSkip(provider string, reason string) {
	for _, r := range m.recorders {
		r.ObserveSkip(provider, reason)
	}
}

func (m *MultiRecorder) ObserveFallback(primary string, provider string) {
	for _, r := range m.recorders {
		r.ObserveFallback(primary, provider)
	}
}

func (m *MultiRecorder) ObserveExhausted(primary string) {
	for _, r := range m.recorders {
		r.ObserveExhausted(primary)
	}
}

func (m *MultiRecorder) ObserveCircuitOpen(provider string) {
	for _, r := range m.recorders {
		r.ObserveCircuitOpen(provider)
	}
}
