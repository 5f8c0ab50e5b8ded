package openai

import (
	"strings"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

const defaultModel = "gpt-4o-mini"

var defaultCapabilities = adapters.Capabilities{
	MaxContextTokens:   128000,
	MaxOutputTokens:    16384,
	ToolCallSupport:    adapters.ToolCallStructured,
	FunctionCallFormat: adapters.FunctionCallOpenAI,
	Streaming:          true,
	JSONMode:           true,
	Reasoning:          false,
	Availability:       adapters.AvailabilityHigh,
}

// modelCapabilities is matched by prefix in table order.
var modelCapabilities = []struct {
	prefix string
	caps   adapters.Capabilities
}{
	{"gpt-4.1", adapters.Capabilities{
		MaxContextTokens: 1047576, MaxOutputTokens: 32768,
		ToolCallSupport: adapters.ToolCallStructured, FunctionCallFormat: adapters.FunctionCallOpenAI,
		Streaming: true, JSONMode: true, Availability: adapters.AvailabilityHigh,
	}},
	{"gpt-4o", defaultCapabilities},
	{"o4-mini", adapters.Capabilities{
		MaxContextTokens: 200000, MaxOutputTokens: 100000,
		ToolCallSupport: adapters.ToolCallStructured, FunctionCallFormat: adapters.FunctionCallOpenAI,
		Streaming: true, JSONMode: true, Reasoning: true, Availability: adapters.AvailabilityHigh,
	}},
	{"o3", adapters.Capabilities{
		MaxContextTokens: 200000, MaxOutputTokens: 100000,
		ToolCallSupport: adapters.ToolCallStructured, FunctionCallFormat: adapters.FunctionCallOpenAI,
		Streaming: true, JSONMode: true, Reasoning: true, Availability: adapters.AvailabilityVariable,
	}},
	{"gpt-3.5-turbo", adapters.Capabilities{
		MaxContextTokens: 16385, MaxOutputTokens: 4096,
		ToolCallSupport: adapters.ToolCallBasic, FunctionCallFormat: adapters.FunctionCallOpenAI,
		Streaming: true, JSONMode: true, Availability: adapters.AvailabilityHigh,
	}},
}

func capabilitiesFor(model string) adapters.Capabilities {
	model = strings.ToLower(model)
	for _, m := range modelCapabilities {
		if strings.HasPrefix(model, m.prefix) {
			return m.caps
		}
	}
	return defaultCapabilities
}
