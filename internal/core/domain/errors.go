package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuth             = errors.New("authentication failed")
	ErrUpload           = errors.New("artifact upload failed")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrSubmission       = errors.New("job submission failed")
	ErrPollTransport    = errors.New("status query failed")
	ErrJobFailed        = errors.New("job failed")
	ErrTimedOut         = errors.New("job did not finish in time")
	ErrFetch            = errors.New("result fetch failed")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// StatusError is returned by steps when the remote service answers with a
// non-success HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

var ErrRunNotFound = errors.New("run not found")
