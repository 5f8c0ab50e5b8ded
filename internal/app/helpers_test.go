package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/llm-orchestrator/internal/config"
	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

type stubProvider struct {
	name string
	caps adapters.Capabilities
	err  error
	cfg  adapters.ProviderConfig
}

func (s *stubProvider) Name() string                              { return s.name }
func (s *stubProvider) DetectCapabilities() adapters.Capabilities { return s.caps }

func (s *stubProvider) Generate(_ context.Context, req adapters.GenerateRequest) (adapters.GenerationResponse, error) {
	if s.err != nil {
		return adapters.GenerationResponse{}, s.err
	}
	resp := adapters.NewResponse(s.name, s.name+"-model", 3, 5, 1.5)
	resp.Text = s.name + " says " + req.Prompt
	return resp, nil
}

var stubCaps = adapters.Capabilities{
	MaxContextTokens:   4096,
	MaxOutputTokens:    1024,
	ToolCallSupport:    adapters.ToolCallStructured,
	FunctionCallFormat: adapters.FunctionCallOpenAI,
	Availability:       adapters.AvailabilityHigh,
}

// stubRegistry registers alpha and beta; failing names return errUpstream.
func stubRegistry(failing ...string) (*adapters.Registry, map[string]*stubProvider) {
	built := map[string]*stubProvider{}
	fails := map[string]bool{}
	for _, n := range failing {
		fails[n] = true
	}
	ctor := func(name string) adapters.Constructor {
		return func(cfg adapters.ProviderConfig) (adapters.Provider, error) {
			p := &stubProvider{name: name, caps: stubCaps, cfg: cfg}
			if fails[name] {
				p.err = errUpstream
			}
			built[name] = p
			return p, nil
		}
	}
	return adapters.MustRegistry(map[string]adapters.Constructor{
		"alpha": ctor("alpha"),
		"beta":  ctor("beta"),
	}), built
}

var errUpstream = errors.New("upstream 503")

const stubManifest = `
orchestrator:
  primary: alpha
  fallback_chain: [beta]
defaults:
  temperature: 0.3
providers:
  - name: alpha
    model: alpha-large
    api_key_env: ALPHA_KEY
  - name: beta
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "orchestrator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(stubManifest), 0o644))
	return config.Config{
		ManifestPath: path,
		AuditLogPath: filepath.Join(dir, "audit.jsonl"),
		UsageDBPath:  filepath.Join(dir, "usage.db"),
		TraceOutput:  filepath.Join(dir, "traces"),
		LogLevel:     "debug",
		Role:         "operator",
	}
}

func buildRuntime(t *testing.T, cfg config.Config, failing ...string) (*Runtime, map[string]*stubProvider) {
	t.Helper()
	reg, built := stubRegistry(failing...)
	rt, err := Build(cfg, Options{
		Registry: reg,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Getenv: func(key string) string {
			if key == "ALPHA_KEY" {
				return "sk-alpha"
			}
			return ""
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt, built
}
