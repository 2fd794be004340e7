package services

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestEventBus_PubSub(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	bus := NewEventBus(logger)

	runID := domain.RunID("run-123")

	ch, unsub := bus.Subscribe(runID)
	defer unsub()

	event := Event{
		RunID:   runID,
		Type:    EventTypePoll,
		Attempt: 2,
		Message: "attempt 2/30: status = processing",
	}
	bus.Publish(event)

	select {
	case received := <-ch:
		assert.Equal(t, event.RunID, received.RunID)
		assert.Equal(t, event.Message, received.Message)
		assert.NotZero(t, received.Timestamp)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	bus := NewEventBus(logger)
	runID := domain.RunID("run-456")

	ch, unsub := bus.Subscribe(runID)
	unsub()

	bus.Publish(Event{RunID: runID, Type: EventTypeStep, Message: "should not receive"})

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	bus := NewEventBus(logger)
	runID := domain.RunID("run-multi")

	ch1, unsub1 := bus.Subscribe(runID)
	defer unsub1()
	ch2, unsub2 := bus.Subscribe(runID)
	defer unsub2()

	bus.Publish(Event{RunID: runID, Message: "broadcast"})

	timeout := time.After(1 * time.Second)
	got1 := false
	got2 := false

	for i := 0; i < 2; i++ {
		select {
		case <-ch1:
			got1 = true
		case <-ch2:
			got2 = true
		case <-timeout:
			t.Fatal("timeout")
		}
	}

	assert.True(t, got1)
	assert.True(t, got2)
}

func TestEventBus_AllRunsSubscriber(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := NewEventBus(logger)

	all, unsub := bus.Subscribe(AllRuns)
	defer unsub()

	bus.Publish(Event{RunID: "run-a", Type: EventTypeOutcome, Outcome: domain.OutcomeSuccess})
	bus.Publish(Event{RunID: "run-b", Type: EventTypeOutcome, Outcome: domain.OutcomeTimedOut})

	var seen []domain.RunID
	for i := 0; i < 2; i++ {
		select {
		case e := <-all:
			seen = append(seen, e.RunID)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
	assert.Equal(t, []domain.RunID{"run-a", "run-b"}, seen)
}

func TestEventBus_PublishNoSubscriber(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bus := NewEventBus(logger)

	assert.NotPanics(t, func() {
		bus.Publish(Event{RunID: "no-such-run", Type: EventTypeStep, Message: "test"})
	})
}
