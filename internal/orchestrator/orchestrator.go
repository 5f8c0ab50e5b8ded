// Package orchestrator runs a generation request against a primary provider
// and an ordered fallback chain, returning the first successful response.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/your-org/llm-orchestrator/internal/metrics"
	"github.com/your-org/llm-orchestrator/internal/retry"
	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

const tracerName = "github.com/your-org/llm-orchestrator/internal/orchestrator"

// Orchestrator is safe for concurrent use. Adapters are built on first use
// and cached by provider name for the orchestrator's lifetime.
type Orchestrator struct {
	registry *adapters.Registry
	primary  string

	fallback    []string
	fallbackSet bool
	policy      FallbackPolicy
	candidates  []string

	configs        map[string]adapters.ProviderConfig
	attemptTimeout time.Duration
	retryPolicy    retry.Policy
	breaker        retry.Breaker
	metrics        metrics.Recorder
	tracer         oteltrace.Tracer
	logger         *slog.Logger
	now            func() time.Time

	mu    sync.Mutex
	cache map[string]adapters.Provider
}

// New fails with adapters.ErrUnknownProvider when primary is not registered.
// Fallback entries are not checked here; they are resolved when reached.
func New(registry *adapters.Registry, primary string, opts ...Option) (*Orchestrator, error) {
	if !registry.Has(primary) {
		return nil, fmt.Errorf("primary provider: %w: %q", adapters.ErrUnknownProvider, primary)
	}

	o := &Orchestrator{
		registry: registry,
		primary:  primary,
		configs:  map[string]adapters.ProviderConfig{},
		metrics:  metrics.NoopRecorder{},
		tracer:   otel.Tracer(tracerName),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		cache:    map[string]adapters.Provider{},
	}
	for _, opt := range opts {
		opt(o)
	}

	chain := o.fallback
	switch {
	case o.fallbackSet:
	case o.policy != nil:
		chain = o.policy(primary)
	default:
		chain = DefaultFallbackChain
	}
	o.candidates = candidateOrder(primary, chain)
	return o, nil
}

func (o *Orchestrator) Primary() string { return o.primary }

// Candidates returns the attempt order: primary first, then the deduplicated
// fallback chain.
func (o *Orchestrator) Candidates() []string {
	return append([]string(nil), o.candidates...)
}

// Capabilities returns the descriptor of provider, or of the primary when
// provider is empty.
func (o *Orchestrator) Capabilities(provider string) (adapters.Capabilities, error) {
	if provider == "" {
		provider = o.primary
	}
	p, err := o.adapter(provider)
	if err != nil {
		return adapters.Capabilities{}, err
	}
	return p.DetectCapabilities(), nil
}

func (o *Orchestrator) adapter(name string) (adapters.Provider, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if p, ok := o.cache[name]; ok {
		return p, nil
	}
	p, err := o.registry.Build(name, o.configs[name])
	if err != nil {
		return nil, err
	}
	o.cache[name] = p
	return p, nil
}

// Generate returns the first successful response in candidate order. A
// response from any candidate other than the primary has its confidence
// forced to degraded. When nothing succeeds the error is an *ExhaustedError.
func (o *Orchestrator) Generate(ctx context.Context, req adapters.GenerateRequest) (adapters.GenerationResponse, error) {
	res, err := o.GenerateDetailed(ctx, req)
	if err != nil {
		return adapters.GenerationResponse{}, err
	}
	return res.Response, nil
}

// GenerateDetailed is Generate plus the per-candidate history.
func (o *Orchestrator) GenerateDetailed(ctx context.Context, req adapters.GenerateRequest) (Result, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.generate", oteltrace.WithAttributes(
		attribute.String("llm.primary", o.primary),
		attribute.StringSlice("llm.candidates", o.candidates),
		attribute.Int("llm.tools", len(req.Tools)),
	))
	defer span.End()

	attempts := make([]Attempt, 0, len(o.candidates))
	var lastErr error

candidates:
	for i, name := range o.candidates {
		if err := ctx.Err(); err != nil {
			lastErr = err
			attempts = append(attempts, Attempt{Index: i, Provider: name, Outcome: OutcomeFailed, Reason: ReasonCanceled, Err: err})
			break
		}

		att, resp := o.try(ctx, i, name, req)
		attempts = append(attempts, att)

		switch att.Outcome {
		case OutcomeSkipped:
			o.metrics.ObserveSkip(name, att.Reason)
			o.logger.Debug("provider skipped", "provider", name, "reason", att.Reason)
			continue
		case OutcomeFailed:
			lastErr = att.Err
			o.logger.Warn("provider attempt failed", "provider", name, "attempt", i, "reason", att.Reason, "error", att.Err)
			if ctx.Err() != nil {
				break candidates
			}
			continue
		}

		if name != o.primary {
			resp.ConfidenceState = adapters.ConfidenceDegraded
			o.metrics.ObserveFallback(o.primary, name)
			o.logger.Info("fallback provider answered", "primary", o.primary, "provider", name)
		}
		span.SetAttributes(attribute.String("llm.provider", name))
		return Result{Response: resp, Provider: name, Attempts: attempts}, nil
	}

	o.metrics.ObserveExhausted(o.primary)
	err := &ExhaustedError{Primary: o.primary, Attempts: attempts, Last: lastErr}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	o.logger.Error("all providers exhausted", "primary", o.primary, "attempts", len(attempts), "error", lastErr)
	return Result{Attempts: attempts}, err
}

// try runs one candidate slot: resolve, check capabilities, consult the
// breaker, then call with retries.
func (o *Orchestrator) try(ctx context.Context, index int, name string, req adapters.GenerateRequest) (Attempt, adapters.GenerationResponse) {
	att := Attempt{Index: index, Provider: name}
	started := time.Now()

	ctx, span := o.tracer.Start(ctx, "orchestrator.attempt", oteltrace.WithAttributes(
		attribute.String("llm.provider", name),
		attribute.Int("llm.candidate_index", index),
	))
	defer func() {
		span.SetAttributes(attribute.String("llm.outcome", string(att.Outcome)), attribute.Int("llm.tries", att.Tries))
		if att.Err != nil {
			span.RecordError(att.Err)
			span.SetStatus(codes.Error, att.Reason)
		}
		span.End()
	}()

	p, err := o.adapter(name)
	if err != nil {
		att.Outcome, att.Err = OutcomeFailed, err
		att.Reason = ReasonConstructFailed
		if errors.Is(err, adapters.ErrUnknownProvider) {
			att.Reason = ReasonUnknownProvider
		}
		att.Duration = time.Since(started)
		return att, adapters.GenerationResponse{}
	}

	if !req.Tools.Empty() && !p.DetectCapabilities().SupportsTools() {
		att.Outcome, att.Reason = OutcomeSkipped, ReasonToolsUnsupported
		att.Duration = time.Since(started)
		return att, adapters.GenerationResponse{}
	}

	if o.breaker != nil {
		allowed, probe, err := o.breaker.Allow(ctx, name, o.now())
		if err != nil {
			o.logger.Warn("circuit breaker store unavailable", "provider", name, "error", err)
			allowed = true
		}
		if !allowed {
			o.metrics.ObserveCircuitOpen(name)
			att.Outcome, att.Reason = OutcomeFailed, ReasonCircuitOpen
			att.Err = fmt.Errorf("provider %q: %w", name, retry.ErrCircuitOpen)
			att.Duration = time.Since(started)
			return att, adapters.GenerationResponse{}
		}
		if probe {
			o.logger.Info("circuit breaker half-open probe", "provider", name)
		}
	}

	var resp adapters.GenerationResponse
	tries, err := retry.Execute(ctx, o.retryPolicy, func(ctx context.Context) error {
		tryStart := time.Now()
		out, callErr := o.call(ctx, p, req)
		outcome := metrics.OutcomeOK
		if callErr != nil {
			outcome = metrics.OutcomeFailed
		}
		o.metrics.ObserveAttempt(name, outcome, time.Since(tryStart))
		if callErr != nil {
			if permanent(callErr) {
				return retry.NonRetryable(callErr)
			}
			return callErr
		}
		resp = out
		return nil
	})
	att.Tries = tries
	for i := 1; i < tries; i++ {
		o.metrics.ObserveRetry(name)
	}

	if err != nil {
		var perm retry.PermanentError
		if errors.As(err, &perm) {
			err = perm.Cause
		}
		att.Outcome, att.Err = OutcomeFailed, fmt.Errorf("provider %q: %w", name, err)
		att.Reason = failureReason(ctx, err)
		if att.Reason != ReasonCanceled {
			o.recordBreaker(ctx, name, err)
		}
		att.Duration = time.Since(started)
		return att, adapters.GenerationResponse{}
	}

	o.recordBreaker(ctx, name, nil)
	att.Outcome = OutcomeOK
	att.Duration = time.Since(started)
	return att, resp
}

// call makes one provider call under the attempt timeout, converting panics
// and timeouts into errors.
func (o *Orchestrator) call(ctx context.Context, p adapters.Provider, req adapters.GenerateRequest) (adapters.GenerationResponse, error) {
	runCtx := ctx
	if o.attemptTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()
	}

	out, err := safeCall(runCtx, p, req)
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return adapters.GenerationResponse{}, fmt.Errorf("%w after %s: %v", retry.ErrAttemptTimeout, o.attemptTimeout, err)
	}
	return out, err
}

func safeCall(ctx context.Context, p adapters.Provider, req adapters.GenerateRequest) (out adapters.GenerationResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", retry.ErrProviderPanic, r)
		}
	}()
	return p.Generate(ctx, req)
}

func (o *Orchestrator) recordBreaker(ctx context.Context, name string, callErr error) {
	if o.breaker == nil {
		return
	}
	var err error
	if callErr == nil {
		err = o.breaker.RecordSuccess(ctx, name)
	} else {
		err = o.breaker.RecordFailure(ctx, name, o.now())
	}
	if err != nil {
		o.logger.Warn("circuit breaker store unavailable", "provider", name, "error", err)
	}
}

// permanent reports failures that calling the same provider again cannot fix:
// missing credentials, refused tool calls and 4xx answers other than 408/429.
func permanent(err error) bool {
	var se *adapters.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 400 && se.StatusCode < 500 &&
			se.StatusCode != http.StatusRequestTimeout && se.StatusCode != http.StatusTooManyRequests
	}
	return errors.Is(err, adapters.ErrMissingAPIKey) || errors.Is(err, adapters.ErrToolsUnsupported)
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil:
		return ReasonCanceled
	case errors.Is(err, retry.ErrAttemptTimeout):
		return ReasonTimeout
	case errors.Is(err, retry.ErrProviderPanic):
		return ReasonPanic
	default:
		return ReasonError
	}
}
