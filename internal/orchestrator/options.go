package orchestrator

import (
	"log/slog"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/your-org/llm-orchestrator/internal/metrics"
	"github.com/your-org/llm-orchestrator/internal/retry"
	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFallbackChain sets the fallback order explicitly. Calling it with no
// names disables fallback.
func WithFallbackChain(names ...string) Option {
	return func(o *Orchestrator) {
		o.fallback = append([]string{}, names...)
		o.fallbackSet = true
	}
}

// WithFallbackPolicy derives the chain from the primary when no explicit
// chain is given.
func WithFallbackPolicy(policy FallbackPolicy) Option {
	return func(o *Orchestrator) { o.policy = policy }
}

func WithProviderConfig(name string, cfg adapters.ProviderConfig) Option {
	return func(o *Orchestrator) { o.configs[name] = cfg }
}

// WithAttemptTimeout bounds each provider call. Zero means no bound beyond
// the caller's context.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.attemptTimeout = d }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) { o.retryPolicy = p }
}

func WithCircuitBreaker(b retry.Breaker) Option {
	return func(o *Orchestrator) { o.breaker = b }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.metrics = r
		}
	}
}

func WithTracer(t oteltrace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now for breaker bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}
