package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome tags a WorkflowResult.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimedOut Outcome = "timed_out"
)

// RunID identifies one runToCompletion invocation.
type RunID string

// WorkflowResult is the single terminal value produced by a run.
// Payload is set only for OutcomeSuccess; no partial results are returned
// on the failure paths.
type WorkflowResult struct {
	RunID      RunID           `json:"run_id"`
	Outcome    Outcome         `json:"outcome"`
	JobID      JobID           `json:"job_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Attempts   int             `json:"attempts"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`

	err error
}

// Succeeded builds a success result carrying payload verbatim.
func Succeeded(payload json.RawMessage, attempts int) WorkflowResult {
	return WorkflowResult{Outcome: OutcomeSuccess, Payload: payload, Attempts: attempts}
}

// Failed builds a failure result from err. The reason is err's message.
func Failed(err error, attempts int) WorkflowResult {
	return WorkflowResult{Outcome: OutcomeFailed, Reason: err.Error(), Attempts: attempts, err: err}
}

// TimedOut builds the result for a job that never reached a terminal state.
func TimedOut(attempts int) WorkflowResult {
	err := fmt.Errorf("%w after %d attempts", ErrTimedOut, attempts)
	return WorkflowResult{Outcome: OutcomeTimedOut, Reason: err.Error(), Attempts: attempts, err: err}
}

// Err returns the terminal error, or nil on success.
func (r WorkflowResult) Err() error {
	return r.err
}

// Duration is the wall-clock time the run took.
func (r WorkflowResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunRecord is the persisted view of a finished run.
type RunRecord struct {
	ID         RunID     `json:"id"`
	Artifact   string    `json:"artifact"`
	JobID      JobID     `json:"job_id,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Attempts   int       `json:"attempts"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
}

// NewRunRecord flattens a result for storage.
func NewRunRecord(artifact string, res WorkflowResult) RunRecord {
	return RunRecord{
		ID:         res.RunID,
		Artifact:   artifact,
		JobID:      res.JobID,
		Outcome:    res.Outcome,
		Reason:     res.Reason,
		Attempts:   res.Attempts,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		DurationMs: res.Duration().Milliseconds(),
	}
}
