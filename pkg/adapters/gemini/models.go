package gemini

import (
	"strings"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

const defaultModel = "gemini-1.5-pro"

var defaultCapabilities = adapters.Capabilities{
	MaxContextTokens:   2097152,
	MaxOutputTokens:    8192,
	ToolCallSupport:    adapters.ToolCallStructured,
	FunctionCallFormat: adapters.FunctionCallOpenAI,
	Streaming:          true,
	JSONMode:           true,
	Reasoning:          false,
	Availability:       adapters.AvailabilityHigh,
}

func capabilitiesFor(model string) adapters.Capabilities {
	caps := defaultCapabilities
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gemini-2.5"):
		caps.MaxContextTokens = 1048576
		caps.MaxOutputTokens = 65536
		caps.Reasoning = true
	case strings.HasPrefix(model, "gemini-2.0"), strings.HasPrefix(model, "gemini-1.5-flash"):
		caps.MaxContextTokens = 1048576
	case strings.HasPrefix(model, "gemini-1.0"):
		caps.MaxContextTokens = 32760
		caps.MaxOutputTokens = 2048
		caps.ToolCallSupport = adapters.ToolCallBasic
		caps.JSONMode = false
		caps.Availability = adapters.AvailabilityLow
	}
	return caps
}
