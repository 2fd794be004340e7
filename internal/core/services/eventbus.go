package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
)

type EventType string

const (
	EventTypeStep    EventType = "step"
	EventTypePoll    EventType = "poll"
	EventTypeOutcome EventType = "outcome"
)

// AllRuns subscribes to events from every run.
const AllRuns domain.RunID = "*"

type Event struct {
	RunID       domain.RunID     `json:"run_id"`
	Type        EventType        `json:"type"`
	Step        string           `json:"step,omitempty"`
	Attempt     int              `json:"attempt,omitempty"`
	MaxAttempts int              `json:"max_attempts,omitempty"`
	Status      domain.JobStatus `json:"status,omitempty"`
	Outcome     domain.Outcome   `json:"outcome,omitempty"`
	Message     string           `json:"message"`
	Timestamp   int64            `json:"timestamp"`
}

type EventBus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[domain.RunID][]chan Event
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[domain.RunID][]chan Event),
	}
}

// Subscribe returns a channel that receives events for a run, or for every
// run when runID is AllRuns.
func (b *EventBus) Subscribe(runID domain.RunID) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 100) // Buffer to prevent blocking publisher
	b.subs[runID] = append(b.subs[runID], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subscribers := b.subs[runID]
		for i, sub := range subscribers {
			if sub == ch {
				close(ch)
				b.subs[runID] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		if len(b.subs[runID]) == 0 {
			delete(b.subs, runID)
		}
	}

	return ch, unsub
}

// Publish sends an event to the run's subscribers and to AllRuns subscribers.
func (b *EventBus) Publish(e Event) {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, key := range []domain.RunID{e.RunID, AllRuns} {
		for _, ch := range b.subs[key] {
			select {
			case ch <- e:
			default:
				// If channel is full, drop event to prevent blocking the run
				b.logger.Warn("event bus channel full, dropping event", "run_id", e.RunID)
			}
		}
	}
}
