package services

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ports.Response), args.Error(1)
}

// callsTo counts recorded calls whose URL ends with suffix.
func (m *MockTransport) callsTo(suffix string) int {
	n := 0
	for _, c := range m.Calls {
		if req, ok := c.Arguments.Get(1).(ports.Request); ok && strings.HasSuffix(req.URL, suffix) {
			n++
		}
	}
	return n
}

func urlSuffix(suffix string) any {
	return mock.MatchedBy(func(req ports.Request) bool {
		return strings.HasSuffix(req.URL, suffix)
	})
}

func okResponse(body string) ports.Response {
	return ports.Response{StatusCode: http.StatusOK, Body: []byte(body)}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAPI() domain.APIConfig {
	api := domain.DefaultAPIConfig()
	api.BaseURL = "http://api.test"
	return api
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

type recordingObserver struct {
	polls []domain.JobStatus
	steps []string
	runs  []domain.WorkflowResult
}

func (r *recordingObserver) ObservePoll(s domain.JobStatus) { r.polls = append(r.polls, s) }
func (r *recordingObserver) ObserveStep(step string, _ error, _ time.Duration) {
	r.steps = append(r.steps, step)
}
func (r *recordingObserver) ObserveRun(res domain.WorkflowResult) { r.runs = append(r.runs, res) }
