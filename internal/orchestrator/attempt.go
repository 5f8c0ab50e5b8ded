package orchestrator

import (
	"time"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

// Outcome is the result kind of one candidate.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Reasons attached to skipped or failed attempts.
const (
	ReasonToolsUnsupported = "tools_unsupported"
	ReasonUnknownProvider  = "unknown_provider"
	ReasonConstructFailed  = "construct_failed"
	ReasonCircuitOpen      = "circuit_open"
	ReasonTimeout          = "timeout"
	ReasonPanic            = "panic"
	ReasonCanceled         = "canceled"
	ReasonError            = "error"
)

// Attempt records what happened to one candidate during a Generate call.
type Attempt struct {
	Index    int
	Provider string
	Outcome  Outcome
	Reason   string
	Err      error
	// Tries counts provider calls made, more than one only under a retry policy.
	Tries    int
	Duration time.Duration
}

// Result is a successful Generate call with its candidate history.
type Result struct {
	Response adapters.GenerationResponse
	Provider string
	Attempts []Attempt
}
