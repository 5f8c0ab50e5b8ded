package sdk

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

// PromptPayload is the JSON shape accepted by PromptFromInput.
type PromptPayload struct {
	Prompt   string                       `json:"prompt"`
	System   string                       `json:"system,omitempty"`
	Settings *adapters.GenerationSettings `json:"settings,omitempty"`
	Tools    adapters.ToolSchema          `json:"tools,omitempty"`
}

// PromptFromInput builds a request from either a JSON PromptPayload or raw
// text. Raw text is trimmed and used as the prompt.
func PromptFromInput(payload []byte) (adapters.GenerateRequest, error) {
	if len(payload) == 0 {
		return adapters.GenerateRequest{}, fmt.Errorf("empty payload")
	}

	var p PromptPayload
	if err := json.Unmarshal(payload, &p); err == nil && strings.TrimSpace(p.Prompt) != "" {
		return adapters.GenerateRequest{Prompt: p.Prompt, System: p.System, Settings: p.Settings, Tools: p.Tools}, nil
	}

	trimmed := strings.TrimSpace(string(payload))
	if trimmed != "" {
		return adapters.GenerateRequest{Prompt: trimmed}, nil
	}
	return adapters.GenerateRequest{}, fmt.Errorf("prompt not found in payload")
}
