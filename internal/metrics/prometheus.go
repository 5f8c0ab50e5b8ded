package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder reports orchestrator metrics using Prometheus primitives.
type PrometheusRecorder struct {
	attempts    *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	skips       *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	exhausted   *prometheus.CounterVec
	circuitOpen *prometheus.CounterVec
}

func NewPrometheusRecorder(registry *prometheus.Registry) (*PrometheusRecorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	r := &PrometheusRecorder{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_orchestrator_attempts_total",
			Help: "Provider attempts by outcome",
		}, []string{"provider", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_orchestrator_attempt_duration_seconds",
			Help:    "Provider attempt latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_orchestrator_retries_total",
			Help: "Retries within a single candidate slot",
		}, []string{"provider"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_orchestrator_skips_total",
			Help: "Candidates skipped without a call",
		}, []string{"provider", "reason"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_orchestrator_fallbacks_total",
			Help: "Responses served by a non-primary provider",
		}, []string{"primary", "provider"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_orchestrator_exhausted_total",
			Help: "Generate calls where every candidate failed or was skipped",
		}, []string{"primary"}),
		circuitOpen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_orchestrator_circuit_breaks_total",
			Help: "Attempts rejected by an open circuit breaker",
		}, []string{"provider"}),
	}

	for _, collector := range []prometheus.Collector{r.attempts, r.durations, r.retries, r.skips, r.fallbacks, r.exhausted, r.circuitOpen} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveAttempt(provider string, outcome string, duration time.Duration) {
	r.attempts.WithLabelValues(provider, outcome).Inc()
	r.durations.WithLabelValues(provider).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveRetry(provider string) {
	r.retries.WithLabelValues(provider).Inc()
}

func (r *PrometheusRecorder) ObserveSkip(provider string, reason string) {
	r.skips.WithLabelValues(provider, reason).Inc()
}

func (r *PrometheusRecorder) ObserveFallback(primary string, provider string) {
	r.fallbacks.WithLabelValues(primary, provider).Inc()
}

func (r *PrometheusRecorder) ObserveExhausted(primary string) {
	r.exhausted.WithLabelValues(primary).Inc()
}

func (r *PrometheusRecorder) ObserveCircuitOpen(provider string) {
	r.circuitOpen.WithLabelValues(provider).Inc()
}

func StartPrometheusServer(addr string, registry *prometheus.Registry) (*http.Server, error) {
	if addr == "" {
		addr = ":2112"
	}
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics endpoint %q: %w", addr, err)
	}

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	return srv, nil
}

func StopServer(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
