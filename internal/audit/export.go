package audit

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

var csvHeader = []string{
	"ts", "request_id", "actor", "action", "primary", "provider", "status",
	"confidence", "attempts", "prompt_tokens", "completion_tokens", "latency_ms", "error",
}

// ExportJSONLToCSV converts line-delimited JSON audit logs into CSV.
func ExportJSONLToCSV(inputPath string, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input audit log: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output csv: %w", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for s.Scan() {
		line++
		b := s.Bytes()
		if len(b) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return fmt.Errorf("parse audit line %d: %w", line, err)
		}
		if err := w.Write(row(ev)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("scan audit log: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func row(ev Event) []string {
	return []string{
		ev.Timestamp, ev.RequestID, ev.Actor, ev.Action, ev.Primary, ev.Provider, ev.Status,
		ev.Confidence,
		strconv.Itoa(ev.Attempts),
		strconv.Itoa(ev.PromptTokens),
		strconv.Itoa(ev.CompletionTokens),
		strconv.FormatFloat(ev.LatencyMS, 'f', 3, 64),
		ev.Error,
	}
}
