package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/llm-orchestrator/internal/audit"
	"github.com/your-org/llm-orchestrator/internal/config"
	"github.com/your-org/llm-orchestrator/internal/orchestrator"
	"github.com/your-org/llm-orchestrator/internal/security"
	"github.com/your-org/llm-orchestrator/internal/trace"
	"github.com/your-org/llm-orchestrator/internal/usage"
	"github.com/your-org/llm-orchestrator/pkg/adapters"
	"github.com/your-org/llm-orchestrator/pkg/sdk"
)

func TestBuildWiresManifest(t *testing.T) {
	rt, built := buildRuntime(t, testConfig(t))

	assert.Equal(t, "alpha", rt.Orchestrator.Primary())
	assert.Equal(t, []string{"alpha", "beta"}, rt.Orchestrator.Candidates())
	assert.InDelta(t, 0.3, rt.Defaults.Temperature, 1e-9)

	_, err := rt.Capabilities(security.RoleViewer, "")
	require.NoError(t, err)
	require.Contains(t, built, "alpha")
	assert.Equal(t, "sk-alpha", built["alpha"].cfg.APIKey)
	assert.Equal(t, "alpha-large", built["alpha"].cfg.Model)
}

func TestBuildRejectsUnknownBinding(t *testing.T) {
	cfg := testConfig(t)
	body := stubManifest + "  - name: gamma\n"
	require.NoError(t, os.WriteFile(cfg.ManifestPath, []byte(body), 0o644))

	reg, _ := stubRegistry()
	_, err := Build(cfg, Options{Registry: reg, Logger: slog.Default()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapters.ErrUnknownProvider))
}

func TestBuildRejectsUnknownPrimary(t *testing.T) {
	cfg := testConfig(t)
	cfg.PrimaryProvider = "gamma"

	reg, _ := stubRegistry()
	_, err := Build(cfg, Options{Registry: reg, Logger: slog.Default()})
	assert.True(t, errors.Is(err, adapters.ErrUnknownProvider))
}

func TestBuildDefaultManifestWithBuiltinProviders(t *testing.T) {
	rt, err := Build(config.Config{PrimaryProvider: "anthropic", AttemptTimeout: time.Second}, Options{
		Logger: slog.Default(),
		Getenv: func(string) string { return "" },
	})
	require.NoError(t, err)
	defer func() { _ = rt.Close(context.Background()) }()

	assert.Equal(t, []string{"anthropic", "openai", "gemini", "local"}, rt.Orchestrator.Candidates())
	assert.Equal(t, []string{"anthropic", "gemini", "local", "openai"}, rt.Registry.Names())
	assert.Nil(t, rt.Usage)
}

func TestGenerateFallbackIsRecorded(t *testing.T) {
	cfg := testConfig(t)
	rt, _ := buildRuntime(t, cfg, "alpha")

	out, err := rt.Generate(context.Background(), security.RoleOperator, adapters.GenerateRequest{Prompt: "ping"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.RequestID)
	assert.Equal(t, "beta", out.Provider)
	assert.Equal(t, adapters.ConfidenceDegraded, out.Response.ConfidenceState)
	require.Len(t, out.Attempts, 2)
	assert.Equal(t, orchestrator.OutcomeFailed, out.Attempts[0].Outcome)

	events := readAudit(t, cfg.AuditLogPath)
	require.Len(t, events, 1)
	assert.Equal(t, out.RequestID, events[0].RequestID)
	assert.Equal(t, "operator", events[0].Actor)
	assert.Equal(t, "beta", events[0].Provider)
	assert.Equal(t, "degraded", events[0].Confidence)
	assert.Equal(t, 2, events[0].Attempts)

	summary, err := rt.UsageSummary(context.Background(), security.RoleOperator, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, "beta", summary[0].Provider)
	assert.Equal(t, 1, summary[0].FallbackAnswers)

	tr, err := trace.LoadFromFile(filepath.Join(cfg.TraceOutput, out.RequestID+".json"))
	require.NoError(t, err)
	assert.Equal(t, "ok", tr.Outcome)
	require.Len(t, tr.Steps, 2)
	assert.Contains(t, tr.Steps[0].Error, "upstream 503")
}

func TestGenerateExhaustedIsRecorded(t *testing.T) {
	cfg := testConfig(t)
	rt, _ := buildRuntime(t, cfg, "alpha", "beta")

	out, err := rt.Generate(context.Background(), security.RoleAdmin, adapters.GenerateRequest{Prompt: "ping"})
	var exhausted *orchestrator.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Len(t, out.Attempts, 2)

	events := readAudit(t, cfg.AuditLogPath)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Status)

	recent, err := rt.Usage.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, usage.StatusExhausted, recent[0].Status)
}

func TestGenerateAppliesDefaultsAndValidates(t *testing.T) {
	cfg := testConfig(t)
	rt, built := buildRuntime(t, cfg)

	bad := adapters.DefaultSettings()
	bad.Temperature = 5
	rejected, err := rt.Generate(context.Background(), security.RoleOperator, adapters.GenerateRequest{Prompt: "x", Settings: &bad})
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Empty(t, built)

	events := readAudit(t, cfg.AuditLogPath)
	require.Len(t, events, 1)
	assert.Equal(t, rejected.RequestID, events[0].RequestID)
	assert.Equal(t, "error", events[0].Status)
	assert.Contains(t, events[0].Error, "invalid request")

	out, err := rt.Generate(context.Background(), security.RoleOperator, adapters.GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "alpha", out.Provider)
}

func TestGenerateForbiddenForViewer(t *testing.T) {
	cfg := testConfig(t)
	rt, built := buildRuntime(t, cfg)

	_, err := rt.Generate(context.Background(), security.RoleViewer, adapters.GenerateRequest{Prompt: "x"})
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Empty(t, built, "no adapter should be built for a denied call")

	events := readAudit(t, cfg.AuditLogPath)
	require.Len(t, events, 1)
	assert.Equal(t, "viewer", events[0].Actor)
	assert.Equal(t, "error", events[0].Status)
}

func TestGenerateAppliesMemoryContext(t *testing.T) {
	cfg := testConfig(t)
	rt, _ := buildRuntime(t, cfg)
	var seen string
	rt.Context = sdk.ContextProviderFunc(func(_ context.Context, prompt string) ([]string, error) {
		seen = prompt
		return nil, errors.New("memory offline")
	})

	_, err := rt.Generate(context.Background(), security.RoleOperator, adapters.GenerateRequest{Prompt: "recall"})
	require.Error(t, err)
	assert.Equal(t, "recall", seen)
	assert.Contains(t, err.Error(), "memory offline")

	events := readAudit(t, cfg.AuditLogPath)
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Status)
	assert.Contains(t, events[0].Error, "memory offline")
}

func TestUsageSummaryDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.UsageDBPath = ""
	rt, _ := buildRuntime(t, cfg)

	_, err := rt.UsageSummary(context.Background(), security.RoleOperator, time.Time{})
	assert.True(t, errors.Is(err, ErrUsageDisabled))
}

func TestProviders(t *testing.T) {
	rt, _ := buildRuntime(t, testConfig(t))
	assert.Equal(t, []ProviderInfo{
		{Name: "alpha", Primary: true, Candidate: true, Position: 0},
		{Name: "beta", Candidate: true, Position: 1},
	}, rt.Providers())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))

	var buf bytes.Buffer
	NewLogger(&buf, "warn").Info("hidden")
	assert.Empty(t, buf.String())
}

func readAudit(t *testing.T, path string) []audit.Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []audit.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev audit.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}
