package usage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "data", "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndSummary(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	base := time.Now().Add(-time.Minute)

	entries := []Entry{
		{RequestID: "a", Primary: "openai", Provider: "openai", Status: StatusOK, Confidence: "high", Attempts: 1, PromptTokens: 10, CompletionTokens: 5, LatencyMS: 100, CreatedAt: base},
		{RequestID: "b", Primary: "openai", Provider: "anthropic", Status: StatusOK, Confidence: "degraded", Attempts: 2, PromptTokens: 8, CompletionTokens: 4, LatencyMS: 300, CreatedAt: base.Add(time.Second)},
		{RequestID: "c", Primary: "openai", Status: StatusExhausted, Attempts: 2, LatencyMS: 50, CreatedAt: base.Add(2 * time.Second)},
		{RequestID: "d", Primary: "openai", Provider: "openai", Status: StatusOK, PromptTokens: 2, CompletionTokens: 2, LatencyMS: 300, CreatedAt: base.Add(3 * time.Second)},
	}
	for _, e := range entries {
		_, err := l.Record(ctx, e)
		require.NoError(t, err)
	}

	sum, err := l.Summary(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, sum, 2)

	assert.Equal(t, "anthropic", sum[0].Provider)
	assert.Equal(t, 1, sum[0].FallbackAnswers)

	openai := sum[1]
	assert.Equal(t, "openai", openai.Provider)
	assert.Equal(t, 3, openai.Calls)
	assert.Equal(t, 2, openai.Successes)
	assert.Equal(t, 1, openai.Exhausted)
	assert.Equal(t, 12, openai.PromptTokens)
	assert.InDelta(t, 150.0, openai.AvgLatencyMS, 0.001)
}

func TestSummarySince(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	old := time.Now().Add(-48 * time.Hour)

	_, err := l.Record(ctx, Entry{RequestID: "old", Primary: "gemini", Provider: "gemini", Status: StatusOK, CreatedAt: old})
	require.NoError(t, err)
	_, err = l.Record(ctx, Entry{RequestID: "new", Primary: "local", Provider: "local", Status: StatusOK})
	require.NoError(t, err)

	sum, err := l.Summary(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, sum, 1)
	assert.Equal(t, "local", sum[0].Provider)
}

func TestRecent(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	now := time.Now()
	for i, id := range []string{"first", "second", "third"} {
		_, err := l.Record(ctx, Entry{RequestID: id, Primary: "openai", Provider: "openai", Status: StatusOK, CreatedAt: now.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}

	got, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].RequestID)
	assert.Equal(t, "second", got[1].RequestID)
	assert.Equal(t, now.Add(2*time.Second).UnixMilli(), got[0].CreatedAt.UnixMilli())
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)

	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("driver unavailable") }

	_, err = Open(filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorContains(t, err, "driver unavailable")
}
