package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
)

const (
	StepAuth   = "auth"
	StepSubmit = "submit"
	StepPoll   = "poll"
	StepFetch  = "fetch"
)

// Steps bundles the four workflow steps.
type Steps struct {
	Auth   *Authenticator
	Submit *Submitter
	Poll   *Poller
	Fetch  *ResultFetcher
}

// NewSteps wires every step against the same transport and API profile.
func NewSteps(logger *slog.Logger, transport ports.Transport, source ports.ArtifactSource, api domain.APIConfig, observer ports.RunObserver) Steps {
	return Steps{
		Auth:   NewAuthenticator(logger, transport, api),
		Submit: NewSubmitter(logger, transport, source, api),
		Poll:   NewPoller(logger, transport, api, observer),
		Fetch:  NewResultFetcher(logger, transport, api),
	}
}

// Orchestrator runs auth → submit → poll → fetch and turns the first failure
// into the run's result. It never retries a step.
type Orchestrator struct {
	logger   *slog.Logger
	steps    Steps
	store    ports.RunStore    // optional
	observer ports.RunObserver // optional
	events   *EventBus         // optional
	now      func() time.Time
	newRunID func() domain.RunID
}

// NewOrchestrator creates an orchestrator. store, observer and events may be nil.
func NewOrchestrator(logger *slog.Logger, steps Steps, store ports.RunStore, observer ports.RunObserver, events *EventBus) *Orchestrator {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Orchestrator{
		logger:   logger,
		steps:    steps,
		store:    store,
		observer: observer,
		events:   events,
		now:      time.Now,
		newRunID: NewRunID,
	}
}

// NewRunID returns a fresh random run id.
func NewRunID() domain.RunID {
	return domain.RunID(uuid.New().String())
}

type runIDKey struct{}

// WithRunID makes RunToCompletion use id instead of generating one, so a
// caller can hand the id out before the run starts.
func WithRunID(ctx context.Context, id domain.RunID) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunToCompletion drives one job from credentials to result. Every call
// uploads the artifact again and registers a new job; it is not a resume.
// Exactly one WorkflowResult is produced per call.
func (o *Orchestrator) RunToCompletion(ctx context.Context, creds domain.Credentials, artifact string, params domain.JobParameters, poll domain.PollConfig) (res domain.WorkflowResult) {
	runID, ok := ctx.Value(runIDKey{}).(domain.RunID)
	if !ok || runID == "" {
		runID = o.newRunID()
	}
	started := o.now()
	log := o.logger.With("run_id", string(runID))

	// token lives only in this frame; results, events and records never carry it.
	var (
		token domain.Token
		sub   domain.Submission
	)

	defer func() {
		res.RunID = runID
		res.JobID = sub.JobID
		res.StartedAt = started
		res.FinishedAt = o.now()
		o.finish(ctx, log, artifact, res)
	}()

	if err := poll.Validate(); err != nil {
		return domain.Failed(err, 0)
	}

	log.Info("run started", "artifact", artifact, "max_attempts", poll.MaxAttempts, "interval", poll.Interval)

	err := o.step(ctx, runID, StepAuth, func(ctx context.Context) error {
		var err error
		token, err = o.steps.Auth.Authenticate(ctx, creds)
		return err
	})
	if err != nil {
		return domain.Failed(err, 0)
	}

	err = o.step(ctx, runID, StepSubmit, func(ctx context.Context) error {
		var err error
		sub, err = o.steps.Submit.Submit(ctx, token, artifact, params)
		return err
	})
	if err != nil {
		return domain.Failed(err, 0)
	}
	log = log.With("job_id", string(sub.JobID))

	var outcome PollOutcome
	err = o.step(ctx, runID, StepPoll, func(ctx context.Context) error {
		var err error
		outcome, err = o.steps.Poll.PollUntilDone(ctx, token, sub.JobID, poll, func(a domain.PollAttempt) {
			o.publish(Event{
				RunID:       runID,
				Type:        EventTypePoll,
				Step:        StepPoll,
				Attempt:     a.Number,
				MaxAttempts: poll.MaxAttempts,
				Status:      a.Report.Status,
				Message:     fmt.Sprintf("attempt %d/%d: status = %s", a.Number, poll.MaxAttempts, a.Report.Raw),
			})
		})
		return err
	})
	if err != nil {
		return domain.Failed(err, outcome.Attempts)
	}

	switch outcome.State {
	case PollFailed:
		reason := outcome.Last.Reason
		if reason == "" {
			reason = fmt.Sprintf("service reported status %q", outcome.Last.Raw)
		}
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrJobFailed, reason), outcome.Attempts)
	case PollTimedOut:
		return domain.TimedOut(outcome.Attempts)
	}

	var payload []byte
	err = o.step(ctx, runID, StepFetch, func(ctx context.Context) error {
		var err error
		payload, err = o.steps.Fetch.Fetch(ctx, token, sub.JobID)
		return err
	})
	if err != nil {
		return domain.Failed(err, outcome.Attempts)
	}

	return domain.Succeeded(payload, outcome.Attempts)
}

func (o *Orchestrator) step(ctx context.Context, runID domain.RunID, name string, fn func(context.Context) error) error {
	start := o.now()
	o.publish(Event{RunID: runID, Type: EventTypeStep, Step: name, Message: name + " started"})

	err := fn(ctx)

	elapsed := o.now().Sub(start)
	o.observer.ObserveStep(name, err, elapsed)
	if err != nil {
		o.publish(Event{RunID: runID, Type: EventTypeStep, Step: name, Message: name + " failed: " + err.Error()})
		return err
	}
	o.publish(Event{RunID: runID, Type: EventTypeStep, Step: name, Message: name + " finished"})
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, artifact string, res domain.WorkflowResult) {
	o.observer.ObserveRun(res)
	o.publish(Event{
		RunID:   res.RunID,
		Type:    EventTypeOutcome,
		Outcome: res.Outcome,
		Attempt: res.Attempts,
		Message: outcomeMessage(res),
	})

	attrs := []any{"outcome", res.Outcome, "attempts", res.Attempts, "duration", res.Duration()}
	switch {
	case res.Err() == nil:
		log.Info("run finished", attrs...)
	case errors.Is(res.Err(), context.Canceled), errors.Is(res.Err(), context.DeadlineExceeded):
		log.Warn("run aborted", append(attrs, "error", res.Err())...)
	default:
		log.Error("run failed", append(attrs, "error", res.Err())...)
	}

	if o.store == nil {
		return
	}
	if err := o.store.SaveRun(context.WithoutCancel(ctx), domain.NewRunRecord(artifact, res)); err != nil {
		log.Error("failed to save run record", "error", err)
	}
}

func (o *Orchestrator) publish(e Event) {
	if o.events == nil {
		return
	}
	o.events.Publish(e)
}

func outcomeMessage(res domain.WorkflowResult) string {
	if res.Outcome == domain.OutcomeSuccess {
		return fmt.Sprintf("job %s succeeded after %d attempts", res.JobID, res.Attempts)
	}
	return string(res.Outcome) + ": " + res.Reason
}
