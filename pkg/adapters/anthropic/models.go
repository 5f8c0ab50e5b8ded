package anthropic

import (
	"strings"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

const defaultModel = "claude-3-5-sonnet-latest"

var defaultCapabilities = adapters.Capabilities{
	MaxContextTokens:   200000,
	MaxOutputTokens:    8192,
	ToolCallSupport:    adapters.ToolCallStructured,
	FunctionCallFormat: adapters.FunctionCallOpenAI,
	Streaming:          true,
	JSONMode:           false,
	Reasoning:          false,
	Availability:       adapters.AvailabilityHigh,
}

var modelCapabilities = map[string]adapters.Capabilities{
	"claude-3-5-haiku": {
		MaxContextTokens: 200000, MaxOutputTokens: 8192,
		ToolCallSupport: adapters.ToolCallStructured, FunctionCallFormat: adapters.FunctionCallOpenAI,
		Streaming: true, Availability: adapters.AvailabilityHigh,
	},
	"claude-3-7-sonnet": {
		MaxContextTokens: 200000, MaxOutputTokens: 64000,
		ToolCallSupport: adapters.ToolCallStructured, FunctionCallFormat: adapters.FunctionCallOpenAI,
		Streaming: true, Reasoning: true, Availability: adapters.AvailabilityHigh,
	},
	"claude-sonnet-4": {
		MaxContextTokens: 200000, MaxOutputTokens: 64000,
		ToolCallSupport: adapters.ToolCallStructured, FunctionCallFormat: adapters.FunctionCallOpenAI,
		Streaming: true, Reasoning: true, Availability: adapters.AvailabilityHigh,
	},
	"claude-opus-4": {
		MaxContextTokens: 200000, MaxOutputTokens: 32000,
		ToolCallSupport: adapters.ToolCallStructured, FunctionCallFormat: adapters.FunctionCallOpenAI,
		Streaming: true, Reasoning: true, Availability: adapters.AvailabilityVariable,
	},
}

func capabilitiesFor(model string) adapters.Capabilities {
	model = strings.ToLower(model)
	best := ""
	for prefix := range modelCapabilities {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return defaultCapabilities
	}
	return modelCapabilities[best]
}
