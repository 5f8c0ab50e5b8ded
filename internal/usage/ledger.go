// Package usage keeps a SQLite ledger of orchestrated generate calls.
package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Status values stored per entry.
const (
	StatusOK        = "ok"
	StatusExhausted = "exhausted"
)

// Entry is one generate call.
type Entry struct {
	ID               int64     `json:"id"`
	RequestID        string    `json:"request_id"`
	Primary          string    `json:"primary"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Status           string    `json:"status"`
	Confidence       string    `json:"confidence"`
	Attempts         int       `json:"attempts"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	LatencyMS        float64   `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// ProviderSummary aggregates entries by answering provider. Exhausted calls
// are attributed to their primary.
type ProviderSummary struct {
	Provider         string  `json:"provider"`
	Calls            int     `json:"calls"`
	Successes        int     `json:"successes"`
	FallbackAnswers  int     `json:"fallback_answers"`
	Exhausted        int     `json:"exhausted"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	AvgLatencyMS     float64 `json:"avg_latency_ms"`
}

type Ledger struct {
	db *sql.DB
}

// Open creates the database file and schema when missing.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("usage: database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("usage: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("usage: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("usage: pragma %q: %w", p, err)
		}
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("usage: migration: %w", err)
	}
	return l, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS generations (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id        TEXT NOT NULL,
			primary_provider  TEXT NOT NULL,
			provider          TEXT NOT NULL DEFAULT '',
			model             TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL,
			confidence        TEXT NOT NULL DEFAULT '',
			attempts          INTEGER NOT NULL DEFAULT 0,
			prompt_tokens     INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			latency_ms        REAL NOT NULL DEFAULT 0,
			created_at_ms     INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at_ms);
		CREATE INDEX IF NOT EXISTS idx_generations_provider ON generations(provider);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Record inserts e. A zero CreatedAt is stamped with the current time.
func (l *Ledger) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO generations (request_id, primary_provider, provider, model, status, confidence,
			attempts, prompt_tokens, completion_tokens, latency_ms, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Primary, e.Provider, e.Model, e.Status, e.Confidence,
		e.Attempts, e.PromptTokens, e.CompletionTokens, e.LatencyMS, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("usage: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("usage: last insert id: %w", err)
	}
	return id, nil
}

// Summary aggregates entries created at or after since, ordered by provider.
func (l *Ledger) Summary(ctx context.Context, since time.Time) ([]ProviderSummary, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT
			CASE WHEN provider = '' THEN primary_provider ELSE provider END AS p,
			COUNT(*),
			SUM(CASE WHEN status = 'ok' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'ok' AND provider <> primary_provider THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'exhausted' THEN 1 ELSE 0 END),
			SUM(prompt_tokens),
			SUM(completion_tokens),
			AVG(latency_ms)
		FROM generations
		WHERE created_at_ms >= ?
		GROUP BY p
		ORDER BY p`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("usage: summary: %w", err)
	}
	defer rows.Close()

	var out []ProviderSummary
	for rows.Next() {
		var s ProviderSummary
		if err := rows.Scan(&s.Provider, &s.Calls, &s.Successes, &s.FallbackAnswers, &s.Exhausted,
			&s.PromptTokens, &s.CompletionTokens, &s.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("usage: scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Recent returns up to limit entries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, request_id, primary_provider, provider, model, status, confidence,
			attempts, prompt_tokens, completion_tokens, latency_ms, created_at_ms
		FROM generations
		ORDER BY created_at_ms DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("usage: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdMS int64
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Primary, &e.Provider, &e.Model, &e.Status, &e.Confidence,
			&e.Attempts, &e.PromptTokens, &e.CompletionTokens, &e.LatencyMS, &createdMS); err != nil {
			return nil, fmt.Errorf("usage: scan entry: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdMS).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
