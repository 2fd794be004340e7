package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.ObservePoll(domain.JobStatusRunning)
	m.ObservePoll(domain.JobStatusRunning)
	m.ObservePoll(domain.JobStatusSucceeded)
	m.ObserveStep("auth", nil, 20*time.Millisecond)
	m.ObserveStep("submit", errors.New("boom"), time.Second)

	start := time.Now()
	res := domain.Succeeded([]byte(`{}`), 3)
	res.StartedAt = start
	res.FinishedAt = start.Add(6 * time.Second)
	m.ObserveRun(res)
	m.ObserveRun(domain.TimedOut(30))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues("RUNNING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("SUCCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("timed_out")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.steps))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObservePoll(domain.JobStatusPending)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `jobpilot_poll_attempts_total{status="PENDING"} 1`)
}
