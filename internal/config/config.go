package config

import (
	"os"
	"strings"
	"time"
)

// DefaultPrimaryProvider is used when neither the environment nor a
// manifest names one.
const DefaultPrimaryProvider = "openai"

// Config is the process-level runtime configuration read from the environment.
type Config struct {
	ManifestPath string
	// PrimaryProvider empty means unset.
	PrimaryProvider string
	// FallbackChain nil means "not set"; the manifest or the fallback policy decides.
	FallbackChain  []string
	AttemptTimeout time.Duration
	AuditLogPath   string
	UsageDBPath    string
	MetricsEnabled bool
	MetricsAddr    string
	TraceEnabled   bool
	TraceEndpoint  string
	LogLevel       string
	HTTPAddr       string
	// TraceOutput is a directory; each generate call writes <request_id>.json there.
	TraceOutput string
	// Role is the caller role used when a request does not carry one.
	Role string
	TLS  TLSConfig
}

// TLSConfig enables HTTPS on the serve command when CertFile is set.
type TLSConfig struct {
	CertFile          string
	KeyFile           string
	CAFile            string
	RequireClientCert bool
}

func (t TLSConfig) Enabled() bool {
	return t.CertFile != ""
}

// FromEnv loads baseline runtime config from environment with safe defaults.
func FromEnv() Config {
	cfg := Config{
		AttemptTimeout: 30 * time.Second,
		MetricsAddr:    ":2112",
		LogLevel:       "info",
		HTTPAddr:       ":8080",
		Role:           "operator",
	}

	if v := strings.TrimSpace(os.Getenv("ORCH_MANIFEST")); v != "" {
		cfg.ManifestPath = v
	}
	if v := strings.TrimSpace(os.Getenv("ORCH_PRIMARY_PROVIDER")); v != "" {
		cfg.PrimaryProvider = v
	}
	if v, ok := os.LookupEnv("ORCH_FALLBACK_CHAIN"); ok {
		cfg.FallbackChain = SplitList(v)
	}
	if v := os.Getenv("ORCH_ATTEMPT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.AttemptTimeout = d
		}
	}
	cfg.AuditLogPath = strings.TrimSpace(os.Getenv("AUDIT_LOG_PATH"))
	cfg.UsageDBPath = strings.TrimSpace(os.Getenv("USAGE_DB_PATH"))
	cfg.MetricsEnabled = envBool("METRICS_ENABLED")
	if v := strings.TrimSpace(os.Getenv("METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}
	cfg.TraceEnabled = envBool("TRACE_ENABLED")
	cfg.TraceEndpoint = strings.TrimSpace(os.Getenv("TRACE_ENDPOINT"))
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("ORCH_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.TraceOutput = strings.TrimSpace(os.Getenv("TRACE_OUTPUT"))
	if v := strings.TrimSpace(os.Getenv("ORCH_ROLE")); v != "" {
		cfg.Role = strings.ToLower(v)
	}
	cfg.TLS = TLSConfig{
		CertFile:          strings.TrimSpace(os.Getenv("ORCH_TLS_CERT_FILE")),
		KeyFile:           strings.TrimSpace(os.Getenv("ORCH_TLS_KEY_FILE")),
		CAFile:            strings.TrimSpace(os.Getenv("ORCH_TLS_CA_FILE")),
		RequireClientCert: envBool("ORCH_TLS_REQUIRE_CLIENT_CERT"),
	}

	return cfg
}

// SplitList parses a comma separated list, dropping blanks. An empty input
// yields an empty, non-nil slice.
func SplitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBool(key string) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
