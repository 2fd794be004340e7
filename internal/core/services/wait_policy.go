package services

import (
	"context"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/sethvargo/go-retry"
)

// WaitPolicy builds a fresh backoff for one polling loop. Backoffs are
// stateful, so every run gets its own.
type WaitPolicy func(cfg domain.PollConfig) retry.Backoff

// DefaultWaitPolicy is a fixed interval unless cfg asks for exponential
// growth. Jitter and a cap apply on top when configured.
func DefaultWaitPolicy(cfg domain.PollConfig) retry.Backoff {
	if cfg.Interval <= 0 {
		return retry.BackoffFunc(func() (time.Duration, bool) {
			return 0, false
		})
	}

	var b retry.Backoff
	switch cfg.Policy {
	case domain.WaitPolicyExponential:
		b = retry.NewExponential(cfg.Interval)
		if cfg.MaxInterval > 0 {
			b = retry.WithCappedDuration(cfg.MaxInterval, b)
		}
	default:
		b = retry.NewConstant(cfg.Interval)
	}
	if cfg.Jitter > 0 {
		b = retry.WithJitter(cfg.Jitter, b)
	}
	return b
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
