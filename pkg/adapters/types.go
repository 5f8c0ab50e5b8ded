package adapters

import (
	"context"
	"fmt"
	"time"
)

// ToolCallSupport describes how far a provider goes with tool calling.
type ToolCallSupport string

const (
	ToolCallNone       ToolCallSupport = "none"
	ToolCallBasic      ToolCallSupport = "basic"
	ToolCallStructured ToolCallSupport = "structured"
)

// FunctionCallFormat is the shape in which a provider returns tool calls.
type FunctionCallFormat string

const (
	FunctionCallOpenAI     FunctionCallFormat = "openai-style"
	FunctionCallJSONInText FunctionCallFormat = "json-in-text"
	FunctionCallNone       FunctionCallFormat = "none"
)

// Availability is a coarse reliability tier for a provider.
type Availability string

const (
	AvailabilityHigh     Availability = "high"
	AvailabilityVariable Availability = "variable"
	AvailabilityLow      Availability = "low"
)

// ConfidenceState tells the caller how much to trust a response.
type ConfidenceState string

const (
	ConfidenceHigh          ConfidenceState = "high"
	ConfidenceDegraded      ConfidenceState = "degraded"
	ConfidenceMinimal       ConfidenceState = "minimal"
	ConfidenceRetrievalOnly ConfidenceState = "retrieval-only"
)

// Keys always present in GenerationResponse.TokenUsage and LatencyMS.
const (
	UsagePrompt     = "prompt"
	UsageCompletion = "completion"
	UsageTotal      = "total"
	LatencyTotal    = "total"
)

// Capabilities describes what a provider+model pair supports.
type Capabilities struct {
	MaxContextTokens   int                `json:"max_context_tokens" yaml:"max_context_tokens"`
	MaxOutputTokens    int                `json:"max_output_tokens" yaml:"max_output_tokens"`
	ToolCallSupport    ToolCallSupport    `json:"tool_call_support" yaml:"tool_call_support"`
	FunctionCallFormat FunctionCallFormat `json:"function_call_format" yaml:"function_call_format"`
	Streaming          bool               `json:"streaming" yaml:"streaming"`
	JSONMode           bool               `json:"json_mode" yaml:"json_mode"`
	Reasoning          bool               `json:"reasoning" yaml:"reasoning"`
	Availability       Availability       `json:"availability" yaml:"availability"`
}

// Validate rejects partially filled descriptors.
func (c Capabilities) Validate() error {
	if c.MaxContextTokens <= 0 {
		return fmt.Errorf("capabilities: max_context_tokens must be positive, got %d", c.MaxContextTokens)
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("capabilities: max_output_tokens must be positive, got %d", c.MaxOutputTokens)
	}
	switch c.ToolCallSupport {
	case ToolCallNone, ToolCallBasic, ToolCallStructured:
	default:
		return fmt.Errorf("capabilities: unknown tool_call_support %q", c.ToolCallSupport)
	}
	switch c.FunctionCallFormat {
	case FunctionCallOpenAI, FunctionCallJSONInText, FunctionCallNone:
	default:
		return fmt.Errorf("capabilities: unknown function_call_format %q", c.FunctionCallFormat)
	}
	switch c.Availability {
	case AvailabilityHigh, AvailabilityVariable, AvailabilityLow:
	default:
		return fmt.Errorf("capabilities: unknown availability %q", c.Availability)
	}
	return nil
}

// SupportsTools reports whether the provider can be handed a tool schema.
func (c Capabilities) SupportsTools() bool {
	return c.ToolCallSupport != "" && c.ToolCallSupport != ToolCallNone
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// GenerateRequest is a provider-agnostic text generation request.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	// Settings nil means DefaultSettings().
	Settings *GenerationSettings `json:"settings,omitempty"`
	Tools    ToolSchema          `json:"tools,omitempty"`
	System   string              `json:"system,omitempty"`
}

// ResolvedSettings returns the request settings or the defaults.
func (r GenerateRequest) ResolvedSettings() GenerationSettings {
	if r.Settings == nil {
		return DefaultSettings()
	}
	return *r.Settings
}

// GenerationResponse is the normalized result of one generation call.
type GenerationResponse struct {
	Text            string             `json:"text"`
	ToolCalls       []ToolCall         `json:"tool_calls"`
	SafetyFlags     map[string]any     `json:"safety_flags"`
	TokenUsage      map[string]int     `json:"token_usage"`
	LatencyMS       map[string]float64 `json:"latency_ms"`
	ConfidenceState ConfidenceState    `json:"confidence_state"`
	Provider        string             `json:"provider"`
	Model           string             `json:"model"`
}

// NewResponse builds a response with every required map populated.
// Negative counts are clamped to zero.
func NewResponse(provider, model string, promptTokens, completionTokens int, latencyMS float64) GenerationResponse {
	promptTokens = max(promptTokens, 0)
	completionTokens = max(completionTokens, 0)
	latencyMS = max(latencyMS, 0)
	return GenerationResponse{
		ToolCalls:   []ToolCall{},
		SafetyFlags: map[string]any{},
		TokenUsage: map[string]int{
			UsagePrompt:     promptTokens,
			UsageCompletion: completionTokens,
			UsageTotal:      promptTokens + completionTokens,
		},
		LatencyMS:       map[string]float64{LatencyTotal: latencyMS},
		ConfidenceState: ConfidenceHigh,
		Provider:        provider,
		Model:           model,
	}
}

// ElapsedMS is the wall time since started in fractional milliseconds.
func ElapsedMS(started time.Time) float64 {
	return float64(time.Since(started).Microseconds()) / 1000
}

// Provider is the common interface all LLM adapters must satisfy.
type Provider interface {
	Name() string
	DetectCapabilities() Capabilities
	Generate(ctx context.Context, req GenerateRequest) (GenerationResponse, error)
}
