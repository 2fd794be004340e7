// Package httptransport implements ports.Transport on top of resty.
package httptransport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/manthysbr/jobpilot/internal/core/ports"
)

const userAgent = "jobpilot/1.0"

// Transport performs single request/response exchanges. Retries are
// disabled: whether a call may be repeated is the caller's decision.
type Transport struct {
	logger *slog.Logger
	client *resty.Client
}

var _ ports.Transport = (*Transport)(nil)

// New builds a transport with the given per-request timeout (0 means none).
func New(logger *slog.Logger, timeout time.Duration) *Transport {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)

	client.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		logger.Debug("http exchange",
			"method", r.Request.Method,
			"url", r.Request.URL,
			"status", r.StatusCode(),
			"duration", r.Time(),
		)
		return nil
	})

	return &Transport{logger: logger, client: client}
}

// Client exposes the underlying resty client for tuning (proxies, TLS).
func (t *Transport) Client() *resty.Client {
	return t.client
}

// Do sends req. Only failures to complete the exchange are errors; any HTTP
// status is returned as a response.
func (t *Transport) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	r := t.client.R().SetContext(ctx)
	if len(req.Header) > 0 {
		r.SetHeaderMultiValues(req.Header)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return ports.Response{}, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	return ports.Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}

// Close releases idle connections.
func (t *Transport) Close() {
	t.client.GetClient().CloseIdleConnections()
}
