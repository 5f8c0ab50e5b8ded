// Package sdk holds helpers for code that calls the orchestrator from the
// outside: memory-context injection and prompt extraction.
package sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

// Generator is anything that turns a request into one response. Both
// adapters.Provider and *orchestrator.Orchestrator satisfy it.
type Generator interface {
	Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerationResponse, error)
}

// ContextProvider supplies memory snippets relevant to a prompt.
type ContextProvider interface {
	Snippets(ctx context.Context, prompt string) ([]string, error)
}

// ContextProviderFunc adapts a function to ContextProvider.
type ContextProviderFunc func(ctx context.Context, prompt string) ([]string, error)

func (f ContextProviderFunc) Snippets(ctx context.Context, prompt string) ([]string, error) {
	return f(ctx, prompt)
}

// StaticContext always returns the same snippets.
type StaticContext []string

func (s StaticContext) Snippets(context.Context, string) ([]string, error) {
	return append([]string(nil), s...), nil
}

const contextHeader = "Relevant context:"

// ApplyContext returns a copy of req whose system text is prefixed with the
// provider's snippets. Blank snippets are dropped; with none left req is
// returned unchanged.
func ApplyContext(ctx context.Context, cp ContextProvider, req adapters.GenerateRequest) (adapters.GenerateRequest, error) {
	if cp == nil {
		return req, nil
	}
	snippets, err := cp.Snippets(ctx, req.Prompt)
	if err != nil {
		return req, fmt.Errorf("memory context: %w", err)
	}

	var b strings.Builder
	for _, s := range snippets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(contextHeader)
		}
		b.WriteString("\n- ")
		b.WriteString(s)
	}
	if b.Len() == 0 {
		return req, nil
	}

	out := req
	if req.System != "" {
		b.WriteString("\n\n")
		b.WriteString(req.System)
	}
	out.System = b.String()
	return out, nil
}

// WithContext wraps gen so every request passes through ApplyContext first.
func WithContext(gen Generator, cp ContextProvider) Generator {
	return contextualGenerator{next: gen, cp: cp}
}

type contextualGenerator struct {
	next Generator
	cp   ContextProvider
}

func (g contextualGenerator) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerationResponse, error) {
	if g.next == nil {
		return adapters.GenerationResponse{}, fmt.Errorf("generator is nil")
	}
	req, err := ApplyContext(ctx, g.cp, req)
	if err != nil {
		return adapters.GenerationResponse{}, err
	}
	return g.next.Generate(ctx, req)
}
