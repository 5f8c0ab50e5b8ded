package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCapabilities() Capabilities {
	return Capabilities{
		MaxContextTokens:   128000,
		MaxOutputTokens:    4096,
		ToolCallSupport:    ToolCallStructured,
		FunctionCallFormat: FunctionCallOpenAI,
		Streaming:          true,
		JSONMode:           true,
		Availability:       AvailabilityHigh,
	}
}

func TestCapabilitiesValidate(t *testing.T) {
	require.NoError(t, validCapabilities().Validate())

	cases := map[string]func(*Capabilities){
		"zero context":      func(c *Capabilities) { c.MaxContextTokens = 0 },
		"zero output":       func(c *Capabilities) { c.MaxOutputTokens = 0 },
		"missing tool tier": func(c *Capabilities) { c.ToolCallSupport = "" },
		"bad format":        func(c *Capabilities) { c.FunctionCallFormat = "xml" },
		"bad availability":  func(c *Capabilities) { c.Availability = "sometimes" },
	}
	for name, mutate := range cases {
		name, mutate := name, mutate
		t.Run(name, func(t *testing.T) {
			c := validCapabilities()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSupportsTools(t *testing.T) {
	c := validCapabilities()
	assert.True(t, c.SupportsTools())
	c.ToolCallSupport = ToolCallBasic
	assert.True(t, c.SupportsTools())
	c.ToolCallSupport = ToolCallNone
	assert.False(t, c.SupportsTools())
}

func TestNewResponseClampsAndFillsMaps(t *testing.T) {
	resp := NewResponse("openai", "gpt-4o-mini", -3, 7, -1)

	assert.Equal(t, 0, resp.TokenUsage[UsagePrompt])
	assert.Equal(t, 7, resp.TokenUsage[UsageCompletion])
	assert.Equal(t, 7, resp.TokenUsage[UsageTotal])
	assert.Equal(t, 0.0, resp.LatencyMS[LatencyTotal])
	assert.Equal(t, ConfidenceHigh, resp.ConfidenceState)
	assert.NotNil(t, resp.ToolCalls)
	assert.NotNil(t, resp.SafetyFlags)
}

func TestResolvedSettings(t *testing.T) {
	assert.Equal(t, DefaultSettings(), GenerateRequest{}.ResolvedSettings())

	custom := GenerationSettings{Temperature: 0.9, Safety: SafetyRaw}
	assert.Equal(t, custom, GenerateRequest{Settings: &custom}.ResolvedSettings())
}
