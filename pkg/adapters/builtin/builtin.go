// Package builtin wires the adapters shipped with this module into a registry.
package builtin

import (
	"github.com/your-org/llm-orchestrator/pkg/adapters"
	"github.com/your-org/llm-orchestrator/pkg/adapters/anthropic"
	"github.com/your-org/llm-orchestrator/pkg/adapters/gemini"
	"github.com/your-org/llm-orchestrator/pkg/adapters/local"
	"github.com/your-org/llm-orchestrator/pkg/adapters/openai"
)

// Constructors returns a fresh copy of the built-in constructor table.
func Constructors() map[string]adapters.Constructor {
	return map[string]adapters.Constructor{
		openai.ProviderName:    openai.New,
		anthropic.ProviderName: anthropic.New,
		gemini.ProviderName:    gemini.New,
		local.ProviderName:     local.New,
	}
}

// NewRegistry returns a registry holding every built-in provider.
func NewRegistry() *adapters.Registry {
	return adapters.MustRegistry(Constructors())
}
