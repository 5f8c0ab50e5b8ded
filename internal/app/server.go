package app

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/your-org/llm-orchestrator/internal/orchestrator"
	"github.com/your-org/llm-orchestrator/internal/security"
	"github.com/your-org/llm-orchestrator/internal/version"
	"github.com/your-org/llm-orchestrator/pkg/adapters"
)

// RoleHeader carries the caller role on HTTP requests.
const RoleHeader = "X-Orchestrator-Role"

const maxRequestBody = 1 << 20

type attemptView struct {
	Index      int     `json:"index"`
	Provider   string  `json:"provider"`
	Outcome    string  `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	Error      string  `json:"error,omitempty"`
	Tries      int     `json:"tries"`
	DurationMS float64 `json:"duration_ms"`
}

type generateView struct {
	RequestID string                       `json:"request_id"`
	Provider  string                       `json:"provider,omitempty"`
	Response  *adapters.GenerationResponse `json:"response,omitempty"`
	Error     string                       `json:"error,omitempty"`
	Attempts  []attemptView                `json:"attempts"`
}

func attemptViews(attempts []orchestrator.Attempt) []attemptView {
	out := make([]attemptView, 0, len(attempts))
	for _, a := range attempts {
		v := attemptView{
			Index:      a.Index,
			Provider:   a.Provider,
			Outcome:    string(a.Outcome),
			Reason:     a.Reason,
			Tries:      a.Tries,
			DurationMS: float64(a.Duration.Microseconds()) / 1000,
		}
		if a.Err != nil {
			v.Error = a.Err.Error()
		}
		out = append(out, v)
	}
	return out
}

// Handler exposes the runtime over HTTP.
func Handler(rt *Runtime) http.Handler {
	defaultRole := security.RoleOr(rt.Config.Role, security.RoleOperator)
	// The header may narrow the configured role, never widen it.
	roleOf := func(r *http.Request) security.Role {
		return security.RoleAtMost(r.Header.Get(RoleHeader), defaultRole)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, version.Info())
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if rt.Orchestrator == nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req adapters.GenerateRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out, err := rt.Generate(r.Context(), roleOf(r), req)
		view := generateView{RequestID: out.RequestID, Provider: out.Provider, Attempts: attemptViews(out.Attempts)}
		if err != nil {
			view.Error = err.Error()
			writeJSON(w, statusFor(err), view)
			return
		}
		view.Response = &out.Response
		writeJSON(w, http.StatusOK, view)
	})
	mux.HandleFunc("/capabilities", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		caps, err := rt.Capabilities(roleOf(r), r.URL.Query().Get("provider"))
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, caps)
	})
	mux.HandleFunc("/providers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := rt.Authorize(roleOf(r), security.ActionCapabilities); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, rt.Providers())
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		if err := rt.Authorize(roleOf(r), security.ActionUsage); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, rt.Metrics.Snapshot())
	})
	mux.HandleFunc("/usage", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		window := 24 * time.Hour
		if raw := r.URL.Query().Get("since"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d <= 0 {
				http.Error(w, fmt.Sprintf("invalid since %q", raw), http.StatusBadRequest)
				return
			}
			window = d
		}
		summary, err := rt.UsageSummary(r.Context(), roleOf(r), rt.now().Add(-window))
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})
	return mux
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, adapters.ErrUnknownProvider), errors.Is(err, ErrUsageDisabled):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrExhausted):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StartServer serves handler on addr until ctx is done. A non-nil tlsCfg
// switches to HTTPS.
func StartServer(ctx context.Context, addr string, handler http.Handler, tlsCfg *tls.Config) error {
	if addr == "" {
		addr = ":8080"
	}
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second, TLSConfig: tlsCfg}
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", addr, err)
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}
	if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
