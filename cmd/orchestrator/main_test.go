package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/llm-orchestrator/internal/version"
)

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// isolateEnv clears the variables the commands read so tests do not pick up
// the developer's environment.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ORCH_MANIFEST", "ORCH_PRIMARY_PROVIDER", "ORCH_ROLE", "AUDIT_LOG_PATH", "USAGE_DB_PATH",
		"METRICS_ENABLED", "TRACE_ENABLED", "TRACE_OUTPUT", "OLLAMA_HOST", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "llama3.1",
			"message":           map[string]string{"role": "assistant", "content": "pong"},
			"done":              true,
			"done_reason":       "stop",
			"prompt_eval_count": 4,
			"eval_count":        1,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version", "-o", "json")
	require.NoError(t, err)

	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestProvidersCommand(t *testing.T) {
	isolateEnv(t)
	out, _, err := execute(t, "", "providers", "--primary", "gemini")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "NAME")
	assert.Regexp(t, `^gemini\s+primary\s+0$`, lines[2])
	assert.Regexp(t, `^openai\s+fallback\s+1$`, lines[4])
}

func TestCapabilitiesCommand(t *testing.T) {
	isolateEnv(t)
	out, _, err := execute(t, "", "capabilities", "local", "-o", "json")
	require.NoError(t, err)

	var caps map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &caps))
	assert.Equal(t, "none", caps["tool_call_support"])

	_, _, err = execute(t, "", "capabilities", "nope")
	assert.Error(t, err)
}

func TestGenerateCommandAgainstLocal(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OLLAMA_HOST", fakeOllama(t).URL)
	dir := t.TempDir()
	t.Setenv("USAGE_DB_PATH", filepath.Join(dir, "usage.db"))

	out, stderr, err := execute(t, "", "generate", "--primary", "local", "--fallback", "", "--temperature", "0.1", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong\n", out)
	assert.Contains(t, stderr, "provider=local")

	out, _, err = execute(t, `{"prompt":"ping again"}`, "generate", "--primary", "local", "-o", "json")
	require.NoError(t, err)
	var view struct {
		Provider string `json:"provider"`
		Response struct {
			Text string `json:"text"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "local", view.Provider)
	assert.Equal(t, "pong", view.Response.Text)

	out, _, err = execute(t, "", "usage", "-o", "json", "--recent", "5")
	require.NoError(t, err)
	var report struct {
		Summary []struct {
			Provider string `json:"provider"`
			Calls    int    `json:"calls"`
		} `json:"summary"`
		Recent []json.RawMessage `json:"recent"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Summary, 1)
	assert.Equal(t, 2, report.Summary[0].Calls)
	assert.Len(t, report.Recent, 2)
}

func TestGenerateCommandRejectsBadSafety(t *testing.T) {
	isolateEnv(t)
	t.Setenv("OLLAMA_HOST", fakeOllama(t).URL)

	_, _, err := execute(t, "", "generate", "--primary", "local", "--safety", "paranoid", "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paranoid")
}

func TestAuditExportRequiresAdmin(t *testing.T) {
	isolateEnv(t)
	_, _, err := execute(t, "", "audit-export", "missing.jsonl", "--role", "operator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rbac denied")
}

func TestTraceCommand(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv("TRACE_OUTPUT", dir)
	t.Setenv("OLLAMA_HOST", fakeOllama(t).URL)

	out, _, err := execute(t, "", "generate", "--primary", "local", "-o", "json", "ping")
	require.NoError(t, err)
	var view struct {
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))

	out, _, err = execute(t, "", "trace", filepath.Join(dir, view.RequestID+".json"))
	require.NoError(t, err)
	assert.Contains(t, out, "outcome=ok provider=local")
	assert.Regexp(t, `(?m)^0\s+local\s+ok`, out)
}

func TestEnvFileFlag(t *testing.T) {
	isolateEnv(t)
	srv := fakeOllama(t)
	os.Unsetenv("OLLAMA_HOST")

	envFile := filepath.Join(t.TempDir(), "orchestrator.env")
	require.NoError(t, os.WriteFile(envFile, []byte("OLLAMA_HOST="+srv.URL+"\n"), 0o600))

	out, _, err := execute(t, "", "generate", "--env-file", envFile, "--primary", "local", "--fallback", "", "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong\n", out)

	_, _, err = execute(t, "", "version", "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}
