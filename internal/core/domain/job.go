package domain

import (
	"time"
)

// JobID identifies a submitted job on the remote service. It is assigned once
// per run by the submission step and never changes afterwards.
type JobID string

// UploadID identifies an uploaded artifact on the remote service.
type UploadID string

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Terminal reports whether no further transition can occur from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// StatusReport is the classified answer to a single status query.
type StatusReport struct {
	Status   JobStatus         `json:"status"`
	Raw      string            `json:"raw"`              // status string as sent by the service
	Reason   string            `json:"reason,omitempty"` // server-supplied failure reason
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PollAttempt records one status query. Attempt numbers start at 1 and are
// strictly increasing within a run.
type PollAttempt struct {
	Number    int          `json:"number"`
	Report    StatusReport `json:"report"`
	Timestamp time.Time    `json:"timestamp"`
}

// Submission is what the submission step hands to the poller.
type Submission struct {
	JobID         JobID         `json:"job_id"`
	UploadID      UploadID      `json:"upload_id"`
	EstimatedTime time.Duration `json:"estimated_time,omitempty"`
}

// JobParameters are sent verbatim with the job registration call.
type JobParameters map[string]any
