package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/manthysbr/jobpilot/internal/config"
	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/manthysbr/jobpilot/internal/core/services"
	"github.com/rs/cors"
)

// Settings are the per-server defaults applied to submitted runs.
type Settings struct {
	Run            config.RunConfig
	Poll           domain.PollConfig
	AllowedOrigins []string
	Metrics        http.Handler // optional, mounted at /metrics
}

// Server accepts runs over HTTP and executes them in the background.
type Server struct {
	logger   *slog.Logger
	runner   services.Runner
	creds    ports.CredentialProvider
	store    ports.RunStore
	eventBus *services.EventBus
	settings Settings

	baseCtx context.Context
	wg      sync.WaitGroup
	mu      sync.Mutex
	active  map[domain.RunID]activeRun
}

type activeRun struct {
	Artifact  string    `json:"artifact"`
	StartedAt time.Time `json:"started_at"`
}

// NewServer creates a server. Runs started through it are bound to ctx, not
// to the request that created them.
func NewServer(
	ctx context.Context,
	logger *slog.Logger,
	runner services.Runner,
	creds ports.CredentialProvider,
	store ports.RunStore,
	eventBus *services.EventBus,
	settings Settings,
) *Server {
	return &Server{
		logger:   logger,
		runner:   runner,
		creds:    creds,
		store:    store,
		eventBus: eventBus,
		settings: settings,
		baseCtx:  ctx,
		active:   make(map[domain.RunID]activeRun),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/runs", s.handleCreateRun)
	mux.HandleFunc("GET /v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /v1/runs/{id}/events", s.handleRunSSE)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.settings.Metrics != nil {
		mux.Handle("GET /metrics", s.settings.Metrics)
	}

	origins := s.settings.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// Wait blocks until every background run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

type createRunRequest struct {
	Artifact       string         `json:"artifact"`
	JobDescription string         `json:"job_description,omitempty"`
	Options        map[string]any `json:"options,omitempty"`
	MaxAttempts    int            `json:"max_attempts,omitempty"`
	Interval       string         `json:"interval,omitempty"` // Go duration, e.g. "2s"
}

type createRunResponse struct {
	RunID  domain.RunID `json:"run_id"`
	Events string       `json:"events"`
}

// handleCreateRun starts a run and returns its id immediately.
// POST /v1/runs
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Artifact == "" {
		http.Error(w, "artifact is required", http.StatusBadRequest)
		return
	}

	poll := s.settings.Poll
	if req.MaxAttempts > 0 {
		poll.MaxAttempts = req.MaxAttempts
	}
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil {
			http.Error(w, "invalid interval: "+err.Error(), http.StatusBadRequest)
			return
		}
		poll.Interval = d
	}
	if err := poll.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	creds, err := s.creds.Credentials(r.Context())
	if err != nil {
		s.logger.Error("credentials unavailable", "error", err)
		http.Error(w, "credentials unavailable", http.StatusServiceUnavailable)
		return
	}

	params := s.settings.Run.JobParameters(req.JobDescription)
	if len(req.Options) > 0 {
		opts, _ := params["options"].(map[string]any)
		if opts == nil {
			opts = map[string]any{}
		}
		maps.Copy(opts, req.Options)
		params["options"] = opts
	}

	runID := services.NewRunID()
	s.track(runID, req.Artifact)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.untrack(runID)
		s.runner.RunToCompletion(services.WithRunID(s.baseCtx, runID), creds, req.Artifact, params, poll)
	}()

	writeJSON(w, http.StatusAccepted, createRunResponse{
		RunID:  runID,
		Events: "/v1/runs/" + string(runID) + "/events",
	})
}

// handleListRuns returns recorded runs, newest first.
// GET /v1/runs?limit=N
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, 500)
		}
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":   runs,
		"count":  len(runs),
		"active": s.activeCount(),
	})
}

// handleGetRun returns a finished run, or a running placeholder.
// GET /v1/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := domain.RunID(r.PathValue("id"))

	rec, err := s.store.GetRun(r.Context(), id)
	if err == nil {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	if !errors.Is(err, domain.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if run, ok := s.lookup(id); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         id,
			"artifact":   run.Artifact,
			"outcome":    "running",
			"started_at": run.StartedAt,
		})
		return
	}
	http.Error(w, err.Error(), http.StatusNotFound)
}

func (s *Server) track(id domain.RunID, artifact string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[id] = activeRun{Artifact: artifact, StartedAt: time.Now()}
}

func (s *Server) untrack(id domain.RunID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

func (s *Server) lookup(id domain.RunID) (activeRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.active[id]
	return run, ok
}

func (s *Server) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
