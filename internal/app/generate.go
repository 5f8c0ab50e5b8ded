package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/llm-orchestrator/internal/audit"
	"github.com/your-org/llm-orchestrator/internal/orchestrator"
	"github.com/your-org/llm-orchestrator/internal/security"
	"github.com/your-org/llm-orchestrator/internal/trace"
	"github.com/your-org/llm-orchestrator/internal/usage"
	"github.com/your-org/llm-orchestrator/pkg/adapters"
	"github.com/your-org/llm-orchestrator/pkg/sdk"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("forbidden")
	ErrUsageDisabled  = errors.New("usage ledger is disabled")
)

// Outcome is one host-level generate call.
type Outcome struct {
	RequestID string
	Response  adapters.GenerationResponse
	Provider  string
	Attempts  []orchestrator.Attempt
}

// ProviderInfo describes a registered provider as seen by this runtime.
type ProviderInfo struct {
	Name      string `json:"name"`
	Primary   bool   `json:"primary"`
	Candidate bool   `json:"candidate"`
	Position  int    `json:"position"`
}

// Authorize checks role against the runtime policy.
func (rt *Runtime) Authorize(role security.Role, action security.Action) error {
	if err := rt.Policy.Authorize(role, action); err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return nil
}

// Generate validates req, fills in the manifest defaults and memory context,
// runs the orchestrator and records the outcome in the audit log, the usage
// ledger and the trace directory. Recording failures are logged, never
// returned.
func (rt *Runtime) Generate(ctx context.Context, role security.Role, req adapters.GenerateRequest) (Outcome, error) {
	out := Outcome{RequestID: uuid.NewString()}
	if err := rt.Authorize(role, security.ActionGenerate); err != nil {
		rt.audit(out.RequestID, role, orchestrator.Result{}, 0, err)
		return out, err
	}

	if req.Settings == nil {
		s := rt.Defaults
		req.Settings = &s
	}
	if err := req.Settings.Validate(); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		rt.audit(out.RequestID, role, orchestrator.Result{}, 0, err)
		return out, err
	}
	req, err := sdk.ApplyContext(ctx, rt.Context, req)
	if err != nil {
		rt.audit(out.RequestID, role, orchestrator.Result{}, 0, err)
		return out, err
	}

	started := rt.now()
	res, err := rt.Orchestrator.GenerateDetailed(ctx, req)
	elapsed := rt.now().Sub(started)

	out.Response = res.Response
	out.Provider = res.Provider
	out.Attempts = res.Attempts

	rt.audit(out.RequestID, role, res, elapsed, err)
	rt.recordUsage(ctx, out.RequestID, res, elapsed, err)
	rt.saveTrace(out.RequestID, started, res, err)
	return out, err
}

// Capabilities returns the descriptor of provider, or of the primary when
// provider is empty.
func (rt *Runtime) Capabilities(role security.Role, provider string) (adapters.Capabilities, error) {
	if err := rt.Authorize(role, security.ActionCapabilities); err != nil {
		return adapters.Capabilities{}, err
	}
	return rt.Orchestrator.Capabilities(provider)
}

// Providers lists every registered provider with its candidate position,
// -1 when it is not in the chain.
func (rt *Runtime) Providers() []ProviderInfo {
	position := map[string]int{}
	for i, name := range rt.Orchestrator.Candidates() {
		position[name] = i
	}
	names := rt.Registry.Names()
	out := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		pos, ok := position[name]
		if !ok {
			pos = -1
		}
		out = append(out, ProviderInfo{Name: name, Primary: name == rt.Orchestrator.Primary(), Candidate: ok, Position: pos})
	}
	return out
}

// UsageSummary aggregates the ledger since the given time.
func (rt *Runtime) UsageSummary(ctx context.Context, role security.Role, since time.Time) ([]usage.ProviderSummary, error) {
	if err := rt.Authorize(role, security.ActionUsage); err != nil {
		return nil, err
	}
	if rt.Usage == nil {
		return nil, ErrUsageDisabled
	}
	return rt.Usage.Summary(ctx, since)
}

func (rt *Runtime) audit(requestID string, role security.Role, res orchestrator.Result, elapsed time.Duration, callErr error) {
	ev := audit.Event{
		RequestID: requestID,
		Actor:     role.String(),
		Action:    string(security.ActionGenerate),
		Primary:   rt.primary(),
		Provider:  res.Provider,
		Status:    "success",
		Attempts:  len(res.Attempts),
		LatencyMS: float64(elapsed.Microseconds()) / 1000,
	}
	if callErr != nil {
		ev.Status = "error"
		ev.Error = callErr.Error()
	} else {
		ev.Confidence = string(res.Response.ConfidenceState)
		ev.PromptTokens = res.Response.TokenUsage[adapters.UsagePrompt]
		ev.CompletionTokens = res.Response.TokenUsage[adapters.UsageCompletion]
	}
	if err := rt.Audit.Write(ev); err != nil {
		rt.Logger.Warn("audit write failed", "request_id", requestID, "error", err)
	}
}

func (rt *Runtime) recordUsage(ctx context.Context, requestID string, res orchestrator.Result, elapsed time.Duration, callErr error) {
	if rt.Usage == nil {
		return
	}
	e := usage.Entry{
		RequestID: requestID,
		Primary:   rt.primary(),
		Provider:  res.Provider,
		Model:     res.Response.Model,
		Status:    usage.StatusOK,
		Attempts:  len(res.Attempts),
		LatencyMS: float64(elapsed.Microseconds()) / 1000,
		CreatedAt: rt.now(),
	}
	if callErr != nil {
		e.Status = usage.StatusExhausted
	} else {
		e.Confidence = string(res.Response.ConfidenceState)
		e.PromptTokens = res.Response.TokenUsage[adapters.UsagePrompt]
		e.CompletionTokens = res.Response.TokenUsage[adapters.UsageCompletion]
	}
	// The caller's context may already be canceled; the ledger row is still wanted.
	if _, err := rt.Usage.Record(context.WithoutCancel(ctx), e); err != nil {
		rt.Logger.Warn("usage record failed", "request_id", requestID, "error", err)
	}
}

func (rt *Runtime) saveTrace(requestID string, started time.Time, res orchestrator.Result, callErr error) {
	if rt.Config.TraceOutput == "" {
		return
	}
	rec := trace.NewRecorder(requestID, rt.primary(), started)
	for _, a := range res.Attempts {
		step := trace.Step{
			Index:    a.Index,
			Provider: a.Provider,
			Outcome:  string(a.Outcome),
			Reason:   a.Reason,
			Tries:    a.Tries,
			Duration: a.Duration,
		}
		if a.Err != nil {
			step.Error = a.Err.Error()
		}
		rec.AddStep(step)
	}
	tr := rec.Finalize(rt.now(), res.Provider, callErr)
	path := filepath.Join(rt.Config.TraceOutput, requestID+".json")
	if err := trace.SaveToFile(path, tr); err != nil {
		rt.Logger.Warn("persist trace failed", "request_id", requestID, "error", err)
	}
}

func (rt *Runtime) primary() string {
	if rt.Orchestrator == nil {
		return rt.Manifest.Orchestrator.Primary
	}
	return rt.Orchestrator.Primary()
}
