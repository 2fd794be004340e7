package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"golang.org/x/sync/semaphore"
)

// BatchConfig defines concurrency limits
type BatchConfig struct {
	MaxConcurrentRuns int64
}

// RunRequest is one entry of a batch.
type RunRequest struct {
	Artifact string
	Params   domain.JobParameters
	Poll     domain.PollConfig
}

// Runner is satisfied by *Orchestrator.
type Runner interface {
	RunToCompletion(ctx context.Context, creds domain.Credentials, artifact string, params domain.JobParameters, poll domain.PollConfig) domain.WorkflowResult
}

// BatchRunner executes independent runs concurrently. Runs share nothing:
// each one authenticates, submits and polls on its own.
type BatchRunner struct {
	logger    *slog.Logger
	runner    Runner
	semaphore *semaphore.Weighted
}

func NewBatchRunner(logger *slog.Logger, runner Runner, cfg BatchConfig) *BatchRunner {
	// Default to 4 concurrent runs if not set
	limit := cfg.MaxConcurrentRuns
	if limit <= 0 {
		limit = 4
	}

	return &BatchRunner{
		logger:    logger,
		runner:    runner,
		semaphore: semaphore.NewWeighted(limit),
	}
}

// RunAll returns one result per request, in request order.
func (b *BatchRunner) RunAll(ctx context.Context, creds domain.Credentials, reqs []RunRequest) []domain.WorkflowResult {
	results := make([]domain.WorkflowResult, len(reqs))
	var wg sync.WaitGroup

	for i, req := range reqs {
		if err := b.semaphore.Acquire(ctx, 1); err != nil {
			b.logger.Warn("batch cancelled before run started", "artifact", req.Artifact, "error", err)
			results[i] = domain.Failed(fmt.Errorf("run for %s not started: %w", req.Artifact, err), 0)
			continue
		}

		wg.Add(1)
		go func(i int, req RunRequest) {
			defer wg.Done()
			defer b.semaphore.Release(1)
			results[i] = b.runner.RunToCompletion(ctx, creds, req.Artifact, req.Params, req.Poll)
		}(i, req)
	}

	wg.Wait()
	return results
}
