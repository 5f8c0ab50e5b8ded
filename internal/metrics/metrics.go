package metrics

import "time"

// Outcome labels for ObserveAttempt.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Recorder defines the metric hooks the orchestrator calls.
type Recorder interface {
	ObserveAttempt(provider string, outcome string, duration time.Duration)
	ObserveRetry(provider string)
	ObserveSkip(provider string, reason string)
	ObserveFallback(primary string, provider string)
	ObserveExhausted(primary string)
	ObserveCircuitOpen(provider string)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveAttempt(string, string, time.Duration) {}
func (NoopRecorder) ObserveRetry(string)                          {}
func (NoopRecorder) ObserveSkip(string, string)                   {}
func (NoopRecorder) ObserveFallback(string, string)               {}
func (NoopRecorder) ObserveExhausted(string)                      {}
func (NoopRecorder) ObserveCircuitOpen(string)                    {}
