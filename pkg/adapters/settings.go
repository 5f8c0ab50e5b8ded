package adapters

import "fmt"

// SafetyLevel controls how aggressively providers filter content.
type SafetyLevel string

const (
	SafetyStrict   SafetyLevel = "strict"
	SafetyBalanced SafetyLevel = "balanced"
	SafetyRaw      SafetyLevel = "raw"
)

// DefaultTemperature is used when the caller supplies no settings.
const DefaultTemperature = 0.2

// ParseSafetyLevel accepts the three known levels; empty means balanced.
func ParseSafetyLevel(raw string) (SafetyLevel, error) {
	switch SafetyLevel(raw) {
	case "":
		return SafetyBalanced, nil
	case SafetyStrict, SafetyBalanced, SafetyRaw:
		return SafetyLevel(raw), nil
	default:
		return "", fmt.Errorf("unknown safety level %q", raw)
	}
}

// GenerationSettings are the caller-supplied sampling knobs. Adapters read
// them and never write through the pointer fields.
type GenerationSettings struct {
	Temperature      float64     `json:"temperature" yaml:"temperature"`
	MaxTokens        *int        `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	TopP             *float64    `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	TopK             *int        `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	PresencePenalty  *float64    `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty"`
	FrequencyPenalty *float64    `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty"`
	JSONMode         bool        `json:"json_mode" yaml:"json_mode"`
	Streaming        bool        `json:"streaming" yaml:"streaming"`
	Safety           SafetyLevel `json:"safety" yaml:"safety"`
}

// DefaultSettings returns a fresh default value.
func DefaultSettings() GenerationSettings {
	return GenerationSettings{Temperature: DefaultTemperature, Safety: SafetyBalanced}
}

// SafetyOrDefault treats an unset level as balanced.
func (s GenerationSettings) SafetyOrDefault() SafetyLevel {
	if s.Safety == "" {
		return SafetyBalanced
	}
	return s.Safety
}

// MaxTokensOr returns MaxTokens when set and positive, otherwise fallback.
func (s GenerationSettings) MaxTokensOr(fallback int) int {
	if s.MaxTokens != nil && *s.MaxTokens > 0 {
		return *s.MaxTokens
	}
	return fallback
}

func (s GenerationSettings) Validate() error {
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("settings: temperature %.2f out of range [0,2]", s.Temperature)
	}
	if s.MaxTokens != nil && *s.MaxTokens <= 0 {
		return fmt.Errorf("settings: max_tokens must be positive, got %d", *s.MaxTokens)
	}
	if s.TopP != nil && (*s.TopP <= 0 || *s.TopP > 1) {
		return fmt.Errorf("settings: top_p %.2f out of range (0,1]", *s.TopP)
	}
	if s.TopK != nil && *s.TopK <= 0 {
		return fmt.Errorf("settings: top_k must be positive, got %d", *s.TopK)
	}
	for name, p := range map[string]*float64{"presence_penalty": s.PresencePenalty, "frequency_penalty": s.FrequencyPenalty} {
		if p != nil && (*p < -2 || *p > 2) {
			return fmt.Errorf("settings: %s %.2f out of range [-2,2]", name, *p)
		}
	}
	if _, err := ParseSafetyLevel(string(s.Safety)); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}
