// Package telemetry exposes run and poll measurements as Prometheus metrics.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobpilot"

// Metrics implements ports.RunObserver on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	polls       *prometheus.CounterVec
	steps       *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	attempts    prometheus.Histogram
}

var _ ports.RunObserver = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Status queries by classified job status.",
		}, []string{"status"}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of workflow steps.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"step", "result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of whole runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_poll_attempts",
			Help:      "Poll attempts used per run.",
			Buckets:   prometheus.LinearBuckets(1, 5, 8),
		}),
	}

	m.registry.MustRegister(
		m.polls, m.steps, m.runs, m.runDuration, m.attempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObservePoll(status domain.JobStatus) {
	m.polls.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) ObserveStep(step string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.steps.WithLabelValues(step, result).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRun(res domain.WorkflowResult) {
	m.runs.WithLabelValues(string(res.Outcome)).Inc()
	m.runDuration.Observe(res.Duration().Seconds())
	if res.Attempts > 0 {
		m.attempts.Observe(float64(res.Attempts))
	}
}

// Registry is exposed for tests and for embedding into other handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, logger *slog.Logger, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
