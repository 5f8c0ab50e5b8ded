package trace

import "time"

// GenerationTrace captures one orchestrated generate call for later inspection.
type GenerationTrace struct {
	RequestID    string        `json:"request_id"`
	Primary      string        `json:"primary"`
	Provider     string        `json:"provider,omitempty"`
	Outcome      string        `json:"outcome"`
	Error        string        `json:"error,omitempty"`
	Steps        []Step        `json:"steps"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	TotalLatency time.Duration `json:"total_latency"`
}

// Step is a single candidate record.
type Step struct {
	Index    int           `json:"index"`
	Provider string        `json:"provider"`
	Outcome  string        `json:"outcome"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Tries    int           `json:"tries"`
	Duration time.Duration `json:"duration"`
}
