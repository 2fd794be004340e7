package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/tidwall/gjson"
)

// Submitter uploads an artifact and registers a job for it. Registration is
// the only call that creates a JobID; a failed upload never reaches it.
type Submitter struct {
	logger    *slog.Logger
	transport ports.Transport
	source    ports.ArtifactSource
	api       domain.APIConfig
}

func NewSubmitter(logger *slog.Logger, transport ports.Transport, source ports.ArtifactSource, api domain.APIConfig) *Submitter {
	return &Submitter{
		logger:    logger,
		transport: transport,
		source:    source,
		api:       api,
	}
}

// Submit runs upload then registration.
func (s *Submitter) Submit(ctx context.Context, token domain.Token, artifact string, params domain.JobParameters) (domain.Submission, error) {
	uploadID, err := s.Upload(ctx, token, artifact)
	if err != nil {
		return domain.Submission{}, err
	}
	return s.Register(ctx, token, uploadID, params)
}

// Upload sends the artifact as a multipart form. Errors wrap domain.ErrUpload,
// and also domain.ErrArtifactNotFound when the artifact is missing.
func (s *Submitter) Upload(ctx context.Context, token domain.Token, artifact string) (domain.UploadID, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}

	rc, err := s.source.Open(ctx, artifact)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(s.api.Fields.UploadForm, filepath.Base(artifact))
	if err != nil {
		return "", fmt.Errorf("%w: create form file: %w", domain.ErrUpload, err)
	}
	size, err := io.Copy(part, rc)
	if err != nil {
		return "", fmt.Errorf("%w: read artifact %s: %w", domain.ErrUpload, artifact, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: close form: %w", domain.ErrUpload, err)
	}

	req := ports.Request{
		Method: http.MethodPost,
		URL:    s.api.URL(s.api.Endpoints.Upload, ""),
		Header: http.Header{},
		Body:   buf.Bytes(),
	}
	req.Header.Set("Authorization", token.Bearer())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := exchange(ctx, s.transport, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}

	id := gjson.GetBytes(resp.Body, s.api.Fields.UploadID).String()
	if id == "" {
		return "", fmt.Errorf("%w: response has no %q field", domain.ErrUpload, s.api.Fields.UploadID)
	}

	s.logger.Info("artifact uploaded", "artifact", artifact, "upload_id", id, "bytes", size)
	return domain.UploadID(id), nil
}

// Register creates the job. Errors wrap domain.ErrSubmission.
func (s *Submitter) Register(ctx context.Context, token domain.Token, uploadID domain.UploadID, params domain.JobParameters) (domain.Submission, error) {
	body := make(map[string]any, len(params)+1)
	maps.Copy(body, params)
	body[s.api.Fields.SubmitUpload] = string(uploadID)

	req, err := jsonRequest(http.MethodPost, s.api.URL(s.api.Endpoints.Submit, ""), token, body)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%w: %w", domain.ErrSubmission, err)
	}

	resp, err := exchange(ctx, s.transport, req)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%w: %w", domain.ErrSubmission, err)
	}

	id := gjson.GetBytes(resp.Body, s.api.Fields.JobID).String()
	if id == "" {
		return domain.Submission{}, fmt.Errorf("%w: response has no %q field", domain.ErrSubmission, s.api.Fields.JobID)
	}

	sub := domain.Submission{JobID: domain.JobID(id), UploadID: uploadID}
	if s.api.Fields.EstimatedTime != "" {
		if est := gjson.GetBytes(resp.Body, s.api.Fields.EstimatedTime); est.Exists() {
			sub.EstimatedTime = time.Duration(est.Float() * float64(time.Second))
		}
	}

	s.logger.Info("job submitted", "job_id", id, "estimated_time", sub.EstimatedTime)
	return sub, nil
}
