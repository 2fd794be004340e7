package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/tidwall/gjson"
)

// PollState is where the polling state machine stopped.
type PollState string

const (
	PollSucceeded PollState = "succeeded"
	PollFailed    PollState = "failed"
	PollTimedOut  PollState = "timed_out"
)

// PollOutcome describes a finished polling loop.
type PollOutcome struct {
	State    PollState
	Attempts int
	Last     domain.StatusReport
}

// Poller queries job status until the job is terminal or the attempt budget
// runs out. Any failed status query ends the loop: the job's idempotence
// guarantees are unknown, so nothing is retried here.
type Poller struct {
	logger    *slog.Logger
	transport ports.Transport
	api       domain.APIConfig
	observer  ports.RunObserver
	policy    WaitPolicy
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

func NewPoller(logger *slog.Logger, transport ports.Transport, api domain.APIConfig, observer ports.RunObserver) *Poller {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Poller{
		logger:    logger,
		transport: transport,
		api:       api,
		observer:  observer,
		policy:    DefaultWaitPolicy,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// WithWaitPolicy swaps the delay rule between attempts. The state machine is
// unchanged: a policy that reports stop ends the loop as timed out.
func (p *Poller) WithWaitPolicy(policy WaitPolicy) *Poller {
	p.policy = policy
	return p
}

// PollUntilDone runs the loop. onAttempt, if non-nil, sees every attempt in
// order. The returned error wraps domain.ErrPollTransport for a failed query,
// or the context error when the run was cancelled.
func (p *Poller) PollUntilDone(ctx context.Context, token domain.Token, jobID domain.JobID, cfg domain.PollConfig, onAttempt func(domain.PollAttempt)) (PollOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return PollOutcome{}, err
	}

	log := p.logger.With("job_id", string(jobID))
	backoff := p.policy(cfg)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return PollOutcome{Attempts: attempt - 1}, fmt.Errorf("polling cancelled before attempt %d: %w", attempt, err)
		}

		report, err := p.query(ctx, token, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return PollOutcome{Attempts: attempt}, fmt.Errorf("polling cancelled during attempt %d: %w", attempt, ctx.Err())
			}
			log.Error("status query failed", "attempt", attempt, "error", err)
			return PollOutcome{Attempts: attempt}, fmt.Errorf("%w: attempt %d: %w", domain.ErrPollTransport, attempt, err)
		}

		p.observer.ObservePoll(report.Status)
		if onAttempt != nil {
			onAttempt(domain.PollAttempt{Number: attempt, Report: report, Timestamp: p.now()})
		}
		log.Info("polled job status", "attempt", attempt, "max_attempts", cfg.MaxAttempts, "status", report.Raw)

		switch report.Status {
		case domain.JobStatusSucceeded:
			return PollOutcome{State: PollSucceeded, Attempts: attempt, Last: report}, nil
		case domain.JobStatusFailed:
			return PollOutcome{State: PollFailed, Attempts: attempt, Last: report}, nil
		}

		if attempt >= cfg.MaxAttempts {
			log.Warn("job still not terminal", "attempts", attempt)
			return PollOutcome{State: PollTimedOut, Attempts: attempt, Last: report}, nil
		}

		delay, stop := backoff.Next()
		if stop {
			log.Warn("wait policy stopped polling", "attempts", attempt)
			return PollOutcome{State: PollTimedOut, Attempts: attempt, Last: report}, nil
		}
		if err := p.sleep(ctx, delay); err != nil {
			return PollOutcome{Attempts: attempt, Last: report}, fmt.Errorf("polling cancelled after attempt %d: %w", attempt, err)
		}
	}
}

func (p *Poller) query(ctx context.Context, token domain.Token, jobID domain.JobID) (domain.StatusReport, error) {
	req, err := jsonRequest(http.MethodGet, p.api.URL(p.api.Endpoints.Status, jobID), token, nil)
	if err != nil {
		return domain.StatusReport{}, err
	}
	resp, err := exchange(ctx, p.transport, req)
	if err != nil {
		return domain.StatusReport{}, err
	}
	return p.classify(resp.Body)
}

func (p *Poller) classify(body []byte) (domain.StatusReport, error) {
	if !gjson.ValidBytes(body) {
		return domain.StatusReport{}, fmt.Errorf("malformed status response")
	}
	raw := gjson.GetBytes(body, p.api.Fields.Status)
	if !raw.Exists() {
		return domain.StatusReport{}, fmt.Errorf("status response has no %q field", p.api.Fields.Status)
	}

	status, known := p.api.Statuses.Classify(raw.String())
	if !known {
		p.logger.Warn("unknown job status, treating as running", "status", raw.String())
	}

	report := domain.StatusReport{
		Status:   status,
		Raw:      raw.String(),
		Metadata: map[string]string{},
	}
	if p.api.Fields.Reason != "" {
		report.Reason = gjson.GetBytes(body, p.api.Fields.Reason).String()
	}

	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		if key.String() == p.api.Fields.Status || value.IsObject() || value.IsArray() {
			return true
		}
		report.Metadata[key.String()] = value.String()
		return true
	})
	return report, nil
}
