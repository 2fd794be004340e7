package ports

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
)

// Request is a single request/response exchange with the remote service.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is what came back. Non-2xx status codes are not transport errors.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport performs one exchange. Implementations own TLS, pooling and any
// retrying of transient network failures; the core never retries.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// CredentialProvider supplies the API key/secret pair.
type CredentialProvider interface {
	Credentials(ctx context.Context) (domain.Credentials, error)
}

// ArtifactSource opens an artifact by reference. A missing artifact yields an
// error wrapping domain.ErrArtifactNotFound.
type ArtifactSource interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// RunStore persists finished runs. Tokens are never part of a record.
type RunStore interface {
	SaveRun(ctx context.Context, rec domain.RunRecord) error
	GetRun(ctx context.Context, id domain.RunID) (domain.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// RunObserver receives measurements from the orchestrator and poller.
type RunObserver interface {
	ObservePoll(status domain.JobStatus)
	ObserveStep(step string, err error, elapsed time.Duration)
	ObserveRun(res domain.WorkflowResult)
}
