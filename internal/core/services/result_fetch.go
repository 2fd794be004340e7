package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/tidwall/gjson"
)

// ResultFetcher retrieves the payload of a succeeded job in one request.
// The payload is returned verbatim; its schema belongs to the service.
type ResultFetcher struct {
	logger    *slog.Logger
	transport ports.Transport
	api       domain.APIConfig
}

func NewResultFetcher(logger *slog.Logger, transport ports.Transport, api domain.APIConfig) *ResultFetcher {
	return &ResultFetcher{
		logger:    logger,
		transport: transport,
		api:       api,
	}
}

// Fetch returns the raw JSON payload or an error wrapping domain.ErrFetch.
func (f *ResultFetcher) Fetch(ctx context.Context, token domain.Token, jobID domain.JobID) (json.RawMessage, error) {
	req, err := jsonRequest(http.MethodGet, f.api.URL(f.api.Endpoints.Result, jobID), token, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}

	resp, err := exchange(ctx, f.transport, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed payload for job %s", domain.ErrFetch, jobID)
	}

	f.logger.Info("result fetched", "job_id", string(jobID), "bytes", len(body))
	return json.RawMessage(bytes.Clone(body)), nil
}
