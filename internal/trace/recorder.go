package trace

import (
	"sort"
	"sync"
	"time"
)

// Recorder collects candidate steps and finalizes them in candidate order.
type Recorder struct {
	mu    sync.Mutex
	trace GenerationTrace
}

func NewRecorder(requestID string, primary string, start time.Time) *Recorder {
	return &Recorder{trace: GenerationTrace{RequestID: requestID, Primary: primary, StartTime: start}}
}

func (r *Recorder) AddStep(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Steps = append(r.trace.Steps, step)
}

// Finalize stamps the end time and the overall result. provider is the
// candidate that answered, empty on failure.
func (r *Recorder) Finalize(end time.Time, provider string, err error) GenerationTrace {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := GenerationTrace{
		RequestID:    r.trace.RequestID,
		Primary:      r.trace.Primary,
		Provider:     provider,
		Outcome:      "ok",
		StartTime:    r.trace.StartTime,
		EndTime:      end,
		TotalLatency: end.Sub(r.trace.StartTime),
		Steps:        append([]Step(nil), r.trace.Steps...),
	}
	if err != nil {
		out.Outcome = "exhausted"
		out.Error = err.Error()
	}

	sort.SliceStable(out.Steps, func(i, j int) bool {
		return out.Steps[i].Index < out.Steps[j].Index
	})
	return out
}
