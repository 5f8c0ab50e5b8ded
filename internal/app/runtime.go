// Package app wires configuration, the provider registry and the supporting
// stores into a running orchestrator for the CLI and HTTP host.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/your-org/llm-orchestrator/internal/audit"
	"github.com/your-org/llm-orchestrator/internal/config"
	"github.com/your-org/llm-orchestrator/internal/metrics"
	"github.com/your-org/llm-orchestrator/internal/orchestrator"
	"github.com/your-org/llm-orchestrator/internal/retry"
	"github.com/your-org/llm-orchestrator/internal/security"
	"github.com/your-org/llm-orchestrator/internal/trace"
	"github.com/your-org/llm-orchestrator/internal/usage"
	"github.com/your-org/llm-orchestrator/pkg/adapters"
	"github.com/your-org/llm-orchestrator/pkg/adapters/builtin"
	"github.com/your-org/llm-orchestrator/pkg/sdk"
)

const serviceName = "llm-orchestrator"

// Options overrides the pieces Build would otherwise create itself.
type Options struct {
	Registry *adapters.Registry
	Logger   *slog.Logger
	// Getenv resolves provider API key variables. Defaults to os.Getenv.
	Getenv  func(string) string
	Context sdk.ContextProvider
	Policy  *security.Policy
}

// Runtime is a fully wired orchestrator plus the stores that observe it.
type Runtime struct {
	Orchestrator *orchestrator.Orchestrator
	Registry     *adapters.Registry
	Manifest     config.Manifest
	Config       config.Config
	Defaults     adapters.GenerationSettings
	Logger       *slog.Logger
	Audit        *audit.Logger
	Usage        *usage.Ledger
	Metrics      *metrics.InMemoryRecorder
	Policy       security.Policy
	Context      sdk.ContextProvider

	now     func() time.Time
	closers []func(context.Context) error
}

// LoadManifest reads cfg.ManifestPath, or synthesizes the default manifest
// when none is set, then applies environment overrides.
func LoadManifest(cfg config.Config) (config.Manifest, error) {
	if cfg.ManifestPath == "" {
		m := config.DefaultManifest(cfg)
		return m, config.ValidateManifest(m)
	}
	m, err := config.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return config.Manifest{}, err
	}
	m.ApplyEnv(cfg)
	if err := config.ValidateManifest(m); err != nil {
		return config.Manifest{}, err
	}
	return m, nil
}

// Build assembles a Runtime. On error every resource opened so far is
// released.
func Build(cfg config.Config, opts Options) (_ *Runtime, retErr error) {
	manifest, err := LoadManifest(cfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Registry: opts.Registry,
		Manifest: manifest,
		Config:   cfg,
		Defaults: manifest.Defaults.Settings(),
		Logger:   opts.Logger,
		Audit:    audit.NewLogger(cfg.AuditLogPath),
		Metrics:  metrics.NewInMemoryRecorder(),
		Policy:   security.DefaultPolicy(),
		Context:  opts.Context,
		now:      time.Now,
	}
	if rt.Registry == nil {
		rt.Registry = builtin.NewRegistry()
	}
	if rt.Logger == nil {
		rt.Logger = NewLogger(os.Stderr, cfg.LogLevel)
	}
	if opts.Policy != nil {
		rt.Policy = *opts.Policy
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	defer func() {
		if retErr != nil {
			_ = rt.Close(context.Background())
		}
	}()

	orch := manifest.Orchestrator
	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(rt.Logger),
		orchestrator.WithAttemptTimeout(orch.AttemptTimeoutDuration()),
		orchestrator.WithRetryPolicy(orch.Retry.Policy()),
	}
	switch {
	case orch.FallbackChain != nil:
		orchOpts = append(orchOpts, orchestrator.WithFallbackChain(orch.FallbackChain...))
	case orch.FallbackPolicy == config.FallbackPolicySuggested:
		orchOpts = append(orchOpts, orchestrator.WithFallbackPolicy(orchestrator.SuggestFallbacks))
	}

	for _, b := range manifest.Providers {
		if !rt.Registry.Has(b.Name) {
			return nil, fmt.Errorf("provider binding: %w: %q", adapters.ErrUnknownProvider, b.Name)
		}
		orchOpts = append(orchOpts, orchestrator.WithProviderConfig(b.Name, b.ProviderConfig(getenv)))
	}

	breaker, err := rt.buildBreaker(orch.CircuitBreaker)
	if err != nil {
		return nil, err
	}
	if breaker != nil {
		orchOpts = append(orchOpts, orchestrator.WithCircuitBreaker(breaker))
	}

	recorder, err := rt.buildMetrics()
	if err != nil {
		return nil, err
	}
	orchOpts = append(orchOpts, orchestrator.WithMetrics(recorder))

	otelRuntime, err := trace.SetupOTel(serviceName, cfg.TraceEnabled, cfg.TraceEndpoint)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	rt.closers = append(rt.closers, otelRuntime.Shutdown)
	orchOpts = append(orchOpts, orchestrator.WithTracer(otelRuntime.Tracer))

	if cfg.UsageDBPath != "" {
		ledger, err := usage.Open(cfg.UsageDBPath)
		if err != nil {
			return nil, err
		}
		rt.Usage = ledger
		rt.closers = append(rt.closers, func(context.Context) error { return ledger.Close() })
	}

	if rt.Audit.Enabled() {
		rt.Logger.Debug("audit log enabled", "path", rt.Audit.Path())
	}

	o, err := orchestrator.New(rt.Registry, orch.Primary, orchOpts...)
	if err != nil {
		return nil, err
	}
	rt.Orchestrator = o
	rt.Logger.Debug("orchestrator ready", "primary", o.Primary(), "candidates", o.Candidates())
	return rt, nil
}

func (rt *Runtime) buildBreaker(c config.CircuitBreakerConfig) (retry.Breaker, error) {
	if c.FailureThreshold <= 0 {
		return nil, nil
	}
	policy := c.Policy()
	if c.Store != config.BreakerStoreRedis {
		return retry.NewMemoryBreaker(policy), nil
	}
	rb, err := retry.NewRedisBreaker(c.RedisURL, c.RedisPrefix, policy)
	if err != nil {
		return nil, fmt.Errorf("circuit breaker store: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error { return rb.Close() })
	return rb, nil
}

func (rt *Runtime) buildMetrics() (metrics.Recorder, error) {
	if !rt.Config.MetricsEnabled {
		return rt.Metrics, nil
	}
	promRegistry := prometheus.NewRegistry()
	promRecorder, err := metrics.NewPrometheusRecorder(promRegistry)
	if err != nil {
		return nil, fmt.Errorf("setup prometheus recorder: %w", err)
	}
	srv, err := metrics.StartPrometheusServer(rt.Config.MetricsAddr, promRegistry)
	if err != nil {
		return nil, fmt.Errorf("start metrics endpoint: %w", err)
	}
	rt.closers = append(rt.closers, func(ctx context.Context) error { return metrics.StopServer(ctx, srv) })
	rt.Logger.Info("metrics endpoint listening", "addr", srv.Addr)
	return metrics.NewMultiRecorder(rt.Metrics, promRecorder), nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt == nil {
		return nil
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
