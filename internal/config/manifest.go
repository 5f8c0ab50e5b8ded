package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/your-org/llm-orchestrator/internal/retry"
	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

var (
	ErrManifestEmptyPrimary = errors.New("manifest: orchestrator.primary is empty")
	ErrManifestEmptyName    = errors.New("manifest: provider name is empty")
)

// Breaker stores.
const (
	BreakerStoreMemory = "memory"
	BreakerStoreRedis  = "redis"
)

// FallbackPolicySuggested derives the chain from the primary provider.
const FallbackPolicySuggested = "suggested"

// SupportedManifestVersions is the schema range this build understands.
const SupportedManifestVersions = "^1.0.0"

// Manifest is the orchestrator configuration file. An empty Version is
// treated as the current schema.
type Manifest struct {
	Version      string               `yaml:"version"`
	Orchestrator OrchestratorSettings `yaml:"orchestrator"`
	Defaults     DefaultSettings      `yaml:"defaults"`
	Providers    []ProviderBinding    `yaml:"providers"`
}

// OrchestratorSettings configures candidate selection and resilience.
type OrchestratorSettings struct {
	Primary string `yaml:"primary"`
	// FallbackChain nil means unset. An explicit empty list disables fallback.
	FallbackChain  []string             `yaml:"fallback_chain"`
	FallbackPolicy string               `yaml:"fallback_policy"`
	AttemptTimeout string               `yaml:"attempt_timeout"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig declares per-candidate retry options.
type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Backoff     string `yaml:"backoff"`
	BaseDelay   string `yaml:"base_delay"`
}

// CircuitBreakerConfig declares circuit breaker options shared by all providers.
type CircuitBreakerConfig struct {
	FailureThreshold int    `yaml:"failure_threshold"`
	ResetTimeout     string `yaml:"reset_timeout"`
	ProbeTimeout     string `yaml:"probe_timeout"`
	Store            string `yaml:"store"`
	RedisURL         string `yaml:"redis_url"`
	RedisPrefix      string `yaml:"redis_prefix"`
}

// DefaultSettings are applied to requests that carry no settings of their own.
type DefaultSettings struct {
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
	TopP        *float64 `yaml:"top_p"`
	TopK        *int     `yaml:"top_k"`
	Safety      string   `yaml:"safety"`
	JSONMode    bool     `yaml:"json_mode"`
}

// ProviderBinding configures one adapter.
type ProviderBinding struct {
	Name      string            `yaml:"name"`
	Model     string            `yaml:"model"`
	BaseURL   string            `yaml:"base_url"`
	APIKeyEnv string            `yaml:"api_key_env"`
	Extra     map[string]string `yaml:"extra"`
}

// LoadManifest parses and validates a YAML manifest.
func LoadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest: read %q: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: unmarshal %q: %w", path, err)
	}

	if err := ValidateManifest(m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// ValidateManifest enforces structural correctness before runtime. Provider
// names are not checked against a registry here.
func ValidateManifest(m Manifest) error {
	if err := checkVersion(m.Version); err != nil {
		return err
	}
	o := m.Orchestrator
	if strings.TrimSpace(o.Primary) == "" {
		return ErrManifestEmptyPrimary
	}
	for _, name := range o.FallbackChain {
		if strings.TrimSpace(name) == "" {
			return errors.New("manifest: fallback_chain contains an empty name")
		}
	}
	switch o.FallbackPolicy {
	case "", FallbackPolicySuggested:
	default:
		return fmt.Errorf("manifest: unknown fallback_policy %q", o.FallbackPolicy)
	}
	if err := checkDuration("orchestrator.attempt_timeout", o.AttemptTimeout); err != nil {
		return err
	}

	if o.Retry.MaxAttempts < 0 {
		return errors.New("manifest: retry.max_attempts is negative")
	}
	if _, err := retry.ParseBackoff(o.Retry.Backoff); err != nil {
		return fmt.Errorf("manifest: retry.backoff: %w", err)
	}
	if err := checkDuration("retry.base_delay", o.Retry.BaseDelay); err != nil {
		return err
	}

	cb := o.CircuitBreaker
	if cb.FailureThreshold < 0 {
		return errors.New("manifest: negative circuit_breaker.failure_threshold")
	}
	if err := checkDuration("circuit_breaker.reset_timeout", cb.ResetTimeout); err != nil {
		return err
	}
	if err := checkDuration("circuit_breaker.probe_timeout", cb.ProbeTimeout); err != nil {
		return err
	}
	switch cb.Store {
	case "", BreakerStoreMemory:
	case BreakerStoreRedis:
		if strings.TrimSpace(cb.RedisURL) == "" {
			return errors.New("manifest: circuit_breaker.redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("manifest: unknown circuit_breaker.store %q", cb.Store)
	}

	if err := m.Defaults.Settings().Validate(); err != nil {
		return fmt.Errorf("manifest: defaults: %w", err)
	}

	seen := make(map[string]struct{}, len(m.Providers))
	for _, p := range m.Providers {
		if strings.TrimSpace(p.Name) == "" {
			return ErrManifestEmptyName
		}
		if _, exists := seen[p.Name]; exists {
			return fmt.Errorf("manifest: duplicate provider %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

func checkVersion(raw string) error {
	if raw == "" {
		return nil
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("manifest: invalid version: %w", err)
	}
	c, err := semver.NewConstraint(SupportedManifestVersions)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("manifest: version %s is not supported (want %s)", v, SupportedManifestVersions)
	}
	return nil
}

func checkDuration(field, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("manifest: invalid %s: %w", field, err)
	}
	if d < 0 {
		return fmt.Errorf("manifest: %s is negative", field)
	}
	return nil
}

// parseDuration assumes ValidateManifest already accepted raw.
func parseDuration(raw string) time.Duration {
	d, _ := time.ParseDuration(raw)
	return d
}

func (o OrchestratorSettings) AttemptTimeoutDuration() time.Duration {
	return parseDuration(o.AttemptTimeout)
}

func (r RetryConfig) Policy() retry.Policy {
	backoff, _ := retry.ParseBackoff(r.Backoff)
	return retry.Policy{MaxAttempts: r.MaxAttempts, Backoff: backoff, BaseDelay: parseDuration(r.BaseDelay)}
}

func (c CircuitBreakerConfig) Policy() retry.BreakerPolicy {
	return retry.BreakerPolicy{
		FailureThreshold: c.FailureThreshold,
		ResetTimeout:     parseDuration(c.ResetTimeout),
		ProbeTimeout:     parseDuration(c.ProbeTimeout),
	}
}

// Settings overlays the manifest defaults on adapters.DefaultSettings.
func (d DefaultSettings) Settings() adapters.GenerationSettings {
	s := adapters.DefaultSettings()
	if d.Temperature != nil {
		s.Temperature = *d.Temperature
	}
	if d.MaxTokens != nil {
		v := *d.MaxTokens
		s.MaxTokens = &v
	}
	if d.TopP != nil {
		v := *d.TopP
		s.TopP = &v
	}
	if d.TopK != nil {
		v := *d.TopK
		s.TopK = &v
	}
	if d.Safety != "" {
		s.Safety = adapters.SafetyLevel(d.Safety)
	}
	s.JSONMode = d.JSONMode
	return s
}

// ProviderConfig resolves the binding, reading the API key through getenv.
func (p ProviderBinding) ProviderConfig(getenv func(string) string) adapters.ProviderConfig {
	cfg := adapters.ProviderConfig{Model: p.Model, BaseURL: p.BaseURL}
	if p.APIKeyEnv != "" && getenv != nil {
		cfg.APIKey = strings.TrimSpace(getenv(p.APIKeyEnv))
	}
	if len(p.Extra) > 0 {
		cfg.Extra = make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			cfg.Extra[k] = v
		}
	}
	return cfg
}

// DefaultManifest is used when no manifest file is given: the built-in
// providers with their conventional API key variables.
func DefaultManifest(cfg Config) Manifest {
	primary := cfg.PrimaryProvider
	if primary == "" {
		primary = DefaultPrimaryProvider
	}
	m := Manifest{
		Orchestrator: OrchestratorSettings{
			Primary:        primary,
			FallbackChain:  cfg.FallbackChain,
			AttemptTimeout: cfg.AttemptTimeout.String(),
		},
		Providers: []ProviderBinding{
			{Name: "openai", APIKeyEnv: "OPENAI_API_KEY"},
			{Name: "anthropic", APIKeyEnv: "ANTHROPIC_API_KEY"},
			{Name: "gemini", APIKeyEnv: "GEMINI_API_KEY"},
			{Name: "local", BaseURL: os.Getenv("OLLAMA_HOST")},
		},
	}
	if cfg.FallbackChain == nil {
		m.Orchestrator.FallbackPolicy = FallbackPolicySuggested
	}
	return m
}

// ApplyEnv lets environment settings override a loaded manifest. The
// attempt timeout only fills an unset manifest value.
func (m *Manifest) ApplyEnv(cfg Config) {
	if cfg.PrimaryProvider != "" {
		m.Orchestrator.Primary = cfg.PrimaryProvider
	}
	if cfg.FallbackChain != nil {
		m.Orchestrator.FallbackChain = cfg.FallbackChain
	}
	if m.Orchestrator.AttemptTimeout == "" && cfg.AttemptTimeout > 0 {
		m.Orchestrator.AttemptTimeout = cfg.AttemptTimeout.String()
	}
}
