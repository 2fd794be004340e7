package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMaxAttempts  = 30
	DefaultPollInterval = 2 * time.Second
)

// Wait policies understood by the poller.
const (
	WaitPolicyFixed       = "fixed"
	WaitPolicyExponential = "exponential"
)

// PollConfig bounds the polling loop. Total wall-clock time is roughly
// MaxAttempts × Interval for the fixed policy.
type PollConfig struct {
	MaxAttempts int           `koanf:"max_attempts" json:"max_attempts"`
	Interval    time.Duration `koanf:"interval" json:"interval"`
	Policy      string        `koanf:"policy" json:"policy"`             // fixed|exponential
	MaxInterval time.Duration `koanf:"max_interval" json:"max_interval"` // cap for exponential
	Jitter      time.Duration `koanf:"jitter" json:"jitter"`
}

// DefaultPollConfig returns the fixed 30 × 2s policy.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		MaxAttempts: DefaultMaxAttempts,
		Interval:    DefaultPollInterval,
		Policy:      WaitPolicyFixed,
	}
}

func (c PollConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: poll.max_attempts must be >= 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.Interval < 0 || c.MaxInterval < 0 || c.Jitter < 0 {
		return fmt.Errorf("%w: poll durations must not be negative", ErrInvalidConfig)
	}
	switch c.Policy {
	case "", WaitPolicyFixed, WaitPolicyExponential:
	default:
		return fmt.Errorf("%w: unknown poll.policy %q", ErrInvalidConfig, c.Policy)
	}
	return nil
}

// Endpoints are paths relative to APIConfig.BaseURL. "{id}" is replaced with
// the job id.
type Endpoints struct {
	Auth   string `koanf:"auth" json:"auth"`
	Upload string `koanf:"upload" json:"upload"`
	Submit string `koanf:"submit" json:"submit"`
	Status string `koanf:"status" json:"status"`
	Result string `koanf:"result" json:"result"`
}

// Fields are gjson paths into request and response bodies.
type Fields struct {
	AuthKey       string `koanf:"auth_key" json:"auth_key"`
	AuthSecret    string `koanf:"auth_secret" json:"auth_secret"`
	Token         string `koanf:"token" json:"token"`
	UploadForm    string `koanf:"upload_form" json:"upload_form"`
	UploadID      string `koanf:"upload_id" json:"upload_id"`
	SubmitUpload  string `koanf:"submit_upload" json:"submit_upload"`
	JobID         string `koanf:"job_id" json:"job_id"`
	EstimatedTime string `koanf:"estimated_time" json:"estimated_time"`
	Status        string `koanf:"status" json:"status"`
	Reason        string `koanf:"reason" json:"reason"`
}

// StatusVocabulary maps the remote service's status strings onto JobStatus.
type StatusVocabulary struct {
	Pending   []string `koanf:"pending" json:"pending"`
	Running   []string `koanf:"running" json:"running"`
	Succeeded []string `koanf:"succeeded" json:"succeeded"`
	Failed    []string `koanf:"failed" json:"failed"`
}

// Classify maps raw onto a JobStatus. Matching is case-insensitive; the
// second return value is false for strings outside the vocabulary.
func (v StatusVocabulary) Classify(raw string) (JobStatus, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, set := range []struct {
		values []string
		status JobStatus
	}{
		{v.Succeeded, JobStatusSucceeded},
		{v.Failed, JobStatusFailed},
		{v.Running, JobStatusRunning},
		{v.Pending, JobStatusPending},
	} {
		for _, s := range set.values {
			if strings.ToLower(s) == raw {
				return set.status, true
			}
		}
	}
	return JobStatusRunning, false
}

// APIConfig describes the remote job service. Endpoints and payload shapes
// belong to the service, so all of them are configuration.
type APIConfig struct {
	BaseURL   string           `koanf:"base_url" json:"base_url"`
	Timeout   time.Duration    `koanf:"timeout" json:"timeout"`
	Endpoints Endpoints        `koanf:"endpoints" json:"endpoints"`
	Fields    Fields           `koanf:"fields" json:"fields"`
	Statuses  StatusVocabulary `koanf:"statuses" json:"statuses"`
}

// DefaultAPIConfig returns the TailorMyJob API profile.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURL: "https://api.tailormyjob.com",
		Timeout: 60 * time.Second,
		Endpoints: Endpoints{
			Auth:   "/auth/token",
			Upload: "/v1/resumes/upload",
			Submit: "/v1/analysis/submit",
			Status: "/v1/analysis/{id}/status",
			Result: "/v1/analysis/{id}/result",
		},
		Fields: Fields{
			AuthKey:       "api_key",
			AuthSecret:    "api_secret",
			Token:         "access_token",
			UploadForm:    "file",
			UploadID:      "file_id",
			SubmitUpload:  "file_id",
			JobID:         "analysis_id",
			EstimatedTime: "estimated_time",
			Status:        "status",
			Reason:        "error",
		},
		Statuses: StatusVocabulary{
			Pending:   []string{"pending", "queued"},
			Running:   []string{"processing", "running"},
			Succeeded: []string{"completed", "succeeded"},
			Failed:    []string{"failed", "error"},
		},
	}
}

// URL joins the base URL with an endpoint path, substituting the job id.
func (c APIConfig) URL(path string, id JobID) string {
	if id != "" {
		path = strings.ReplaceAll(path, "{id}", string(id))
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c APIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	e := c.Endpoints
	if e.Auth == "" || e.Upload == "" || e.Submit == "" || e.Status == "" || e.Result == "" {
		return fmt.Errorf("%w: all api.endpoints must be set", ErrInvalidConfig)
	}
	if c.Fields.Token == "" || c.Fields.JobID == "" || c.Fields.Status == "" || c.Fields.UploadID == "" {
		return fmt.Errorf("%w: api.fields token, upload_id, job_id and status are required", ErrInvalidConfig)
	}
	return nil
}
