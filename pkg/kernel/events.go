package kernel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/services"
)

// handleRunSSE streams a run's events until its outcome is published or the
// client goes away. A run that already finished gets its stored outcome as
// a single event; an unknown run is a 404.
// GET /v1/runs/{id}/events
func (s *Server) handleRunSSE(w http.ResponseWriter, r *http.Request) {
	runID := domain.RunID(r.PathValue("id"))
	if runID == "" {
		http.Error(w, "missing run id", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the lookup: a run that is still active at lookup time
	// publishes its outcome to this channel.
	ch, unsub := s.eventBus.Subscribe(runID)
	defer unsub()

	var finished *services.Event
	if _, active := s.lookup(runID); !active {
		rec, err := s.store.GetRun(r.Context(), runID)
		switch {
		case errors.Is(err, domain.ErrRunNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		evt := recordEvent(rec)
		finished = &evt
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if finished != nil {
		s.writeEvent(w, *finished)
		flusher.Flush()
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			s.writeEvent(w, evt)
			flusher.Flush()
			if evt.Type == services.EventTypeOutcome {
				return
			}
		}
	}
}

func (s *Server) writeEvent(w http.ResponseWriter, evt services.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("failed to encode event", "run_id", string(evt.RunID), "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
}

// recordEvent replays a stored run as its outcome event.
func recordEvent(rec domain.RunRecord) services.Event {
	msg := string(rec.Outcome) + ": " + rec.Reason
	if rec.Outcome == domain.OutcomeSuccess {
		msg = fmt.Sprintf("job %s succeeded after %d attempts", rec.JobID, rec.Attempts)
	}
	return services.Event{
		RunID:     rec.ID,
		Type:      services.EventTypeOutcome,
		Outcome:   rec.Outcome,
		Attempt:   rec.Attempts,
		Message:   msg,
		Timestamp: rec.FinishedAt.UnixMilli(),
	}
}
