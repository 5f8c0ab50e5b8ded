package audit

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAuditWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.log")
	l := NewLogger(path)
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := l.Write(Event{RequestID: "r1", Actor: "cli", Action: "generate", Primary: "openai", Provider: "openai", Status: "ok"}); err != nil {
		t.Fatalf("audit write failed: %v", err)
	}
	if err := l.Write(Event{RequestID: "r2", Actor: "cli", Action: "generate", Primary: "openai", Status: "exhausted", Error: "boom"}); err != nil {
		t.Fatalf("audit write failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if ev.Timestamp != "2026-01-02T03:04:05Z" || ev.Error != "boom" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	var nilLogger *Logger
	if nilLogger.Enabled() {
		t.Fatal("nil logger must be disabled")
	}
	if err := nilLogger.Write(Event{}); err != nil {
		t.Fatalf("nil logger write: %v", err)
	}
	if err := NewLogger("").Write(Event{}); err != nil {
		t.Fatalf("empty path write: %v", err)
	}
}

func TestAuditExportJSONLToCSV(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "audit.log")
	outPath := filepath.Join(dir, "audit.csv")

	l := NewLogger(inPath)
	if err := l.Write(Event{RequestID: "r1", Action: "generate", Primary: "openai", Provider: "anthropic", Status: "ok", Confidence: "degraded", Attempts: 2, PromptTokens: 5, CompletionTokens: 7, LatencyMS: 12.5}); err != nil {
		t.Fatalf("write audit log: %v", err)
	}

	if err := ExportJSONLToCSV(inPath, outPath); err != nil {
		t.Fatalf("export audit csv: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(records))
	}
	if records[1][5] != "anthropic" || records[1][7] != "degraded" || records[1][11] != "12.500" {
		t.Fatalf("unexpected row: %v", records[1])
	}
}

func TestAuditExportRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "audit.log")
	if err := os.WriteFile(inPath, []byte("{not json}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ExportJSONLToCSV(inPath, filepath.Join(dir, "out.csv")); err == nil {
		t.Fatal("expected parse error")
	}
}
