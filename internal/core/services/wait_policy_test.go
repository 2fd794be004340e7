package services

import (
	"context"
	"testing"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func nextN(t *testing.T, cfg domain.PollConfig, n int) []time.Duration {
	t.Helper()
	b := DefaultWaitPolicy(cfg)
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		d, stop := b.Next()
		assert.False(t, stop)
		out = append(out, d)
	}
	return out
}

func TestDefaultWaitPolicy_Fixed(t *testing.T) {
	got := nextN(t, domain.DefaultPollConfig(), 3)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, got)
}

func TestDefaultWaitPolicy_ZeroInterval(t *testing.T) {
	got := nextN(t, domain.PollConfig{MaxAttempts: 3}, 3)
	assert.Equal(t, []time.Duration{0, 0, 0}, got)
}

func TestDefaultWaitPolicy_ExponentialCapped(t *testing.T) {
	cfg := domain.PollConfig{
		MaxAttempts: 10,
		Interval:    time.Second,
		Policy:      domain.WaitPolicyExponential,
		MaxInterval: 3 * time.Second,
	}
	got := nextN(t, cfg, 4)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, got)
}

func TestDefaultWaitPolicy_Jitter(t *testing.T) {
	cfg := domain.PollConfig{MaxAttempts: 10, Interval: time.Second, Jitter: 200 * time.Millisecond}
	for _, d := range nextN(t, cfg, 20) {
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
