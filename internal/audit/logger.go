package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one audit-log record describing a generate or capability call.
type Event struct {
	Timestamp        string  `json:"ts"`
	RequestID        string  `json:"request_id"`
	Actor            string  `json:"actor"`
	Action           string  `json:"action"`
	Primary          string  `json:"primary"`
	Provider         string  `json:"provider,omitempty"`
	Status           string  `json:"status"`
	Confidence       string  `json:"confidence,omitempty"`
	Attempts         int     `json:"attempts"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	LatencyMS        float64 `json:"latency_ms"`
	Error            string  `json:"error,omitempty"`
}

// Logger writes JSONL audit records. A Logger with an empty path is disabled.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewLogger(path string) *Logger {
	return &Logger{path: path, now: time.Now}
}

func (l *Logger) Enabled() bool {
	return l != nil && l.path != ""
}

func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Write appends ev, stamping the timestamp when it is empty.
func (l *Logger) Write(ev Event) error {
	if !l.Enabled() {
		return nil
	}

	if ev.Timestamp == "" {
		ev.Timestamp = l.now().UTC().Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit marshal: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("audit mkdir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit open: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("audit write: %w", err)
	}
	return nil
}
