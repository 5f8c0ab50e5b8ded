package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

var (
	structuredCaps = adapters.Capabilities{
		MaxContextTokens: 128000, MaxOutputTokens: 4096,
		ToolCallSupport: adapters.ToolCallStructured, FunctionCallFormat: adapters.FunctionCallOpenAI,
		Streaming: true, JSONMode: true, Availability: adapters.AvailabilityHigh,
	}
	noToolCaps = adapters.Capabilities{
		MaxContextTokens: 8192, MaxOutputTokens: 2048,
		ToolCallSupport: adapters.ToolCallNone, FunctionCallFormat: adapters.FunctionCallNone,
		Availability: adapters.AvailabilityVariable,
	}
)

type generateFunc func(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerationResponse, error)

type fakeProvider struct {
	name  string
	caps  adapters.Capabilities
	gen   generateFunc
	calls atomic.Int32
}

func (f *fakeProvider) Name() string                              { return f.name }
func (f *fakeProvider) DetectCapabilities() adapters.Capabilities { return f.caps }

func (f *fakeProvider) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerationResponse, error) {
	f.calls.Add(1)
	if f.gen != nil {
		return f.gen(ctx, req)
	}
	return ok(f.name)(ctx, req)
}

func ok(name string) generateFunc {
	return func(context.Context, adapters.GenerateRequest) (adapters.GenerationResponse, error) {
		resp := adapters.NewResponse(name, name+"-model", 3, 4, 1.5)
		resp.Text = "hello from " + name
		return resp, nil
	}
}

func fail(err error) generateFunc {
	return func(context.Context, adapters.GenerateRequest) (adapters.GenerationResponse, error) {
		return adapters.GenerationResponse{}, err
	}
}

// fakeSet owns one fake per provider name and counts constructions.
type fakeSet struct {
	mu          sync.Mutex
	providers   map[string]*fakeProvider
	constructed map[string]int
	lastConfig  map[string]adapters.ProviderConfig
}

func newFakeSet(providers ...*fakeProvider) *fakeSet {
	s := &fakeSet{
		providers:   map[string]*fakeProvider{},
		constructed: map[string]int{},
		lastConfig:  map[string]adapters.ProviderConfig{},
	}
	for _, p := range providers {
		s.providers[p.name] = p
	}
	return s
}

func (s *fakeSet) registry() *adapters.Registry {
	entries := map[string]adapters.Constructor{}
	for name := range s.providers {
		name := name
		entries[name] = func(cfg adapters.ProviderConfig) (adapters.Provider, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.constructed[name]++
			s.lastConfig[name] = cfg
			return s.providers[name], nil
		}
	}
	return adapters.MustRegistry(entries)
}

func (s *fakeSet) constructions(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.constructed[name]
}

func (s *fakeSet) calls(name string) int32 {
	return s.providers[name].calls.Load()
}

// standardSet mirrors the built-in provider names with fake behavior.
func standardSet() *fakeSet {
	return newFakeSet(
		&fakeProvider{name: "openai", caps: structuredCaps},
		&fakeProvider{name: "anthropic", caps: structuredCaps},
		&fakeProvider{name: "gemini", caps: structuredCaps},
		&fakeProvider{name: "local", caps: noToolCaps},
	)
}

var weatherTool = adapters.ToolSchema{
	"get_weather": map[string]any{
		"description": "Look up the weather",
		"parameters": map[string]any{
			"type":       "object",
			"properties": map[string]any{"city": map[string]any{"type": "string"}},
		},
	},
}
