package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/manthysbr/jobpilot/internal/adapters/artifact"
	"github.com/manthysbr/jobpilot/internal/adapters/credentials"
	"github.com/manthysbr/jobpilot/internal/adapters/duckdb"
	"github.com/manthysbr/jobpilot/internal/adapters/httptransport"
	"github.com/manthysbr/jobpilot/internal/config"
	"github.com/manthysbr/jobpilot/internal/core/ports"
	"github.com/manthysbr/jobpilot/internal/core/services"
	"github.com/manthysbr/jobpilot/internal/telemetry"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	transport *httptransport.Transport
	repo      *duckdb.Repository // nil when history is disabled
	metrics   *telemetry.Metrics
	events    *services.EventBus
	creds     ports.CredentialProvider
	orch      *services.Orchestrator
}

func loadConfig(opts *rootOptions) (config.Config, *slog.Logger, error) {
	// .env may carry TAILORMYJOB_API_URL, which config reads.
	if err := credentials.LoadEnvFile(opts.envFile); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, newLogger(cfg.Log.Format, cfg.Log.Level), nil
}

func newApp(opts *rootOptions, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(),
		events:  services.NewEventBus(logger),
	}

	var store ports.RunStore
	if cfg.Store.Path != "" {
		repo, err := duckdb.NewRepository(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		a.repo = repo
		store = repo
	}

	secret, err := optionalSecretKey()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.creds = credentials.NewEnvProvider(opts.envFile, secret)

	a.transport = httptransport.New(logger, cfg.API.Timeout)
	source := artifact.NewOSSource(cfg.Run.ArtifactRoot)
	steps := services.NewSteps(logger, a.transport, source, cfg.API, a.metrics)
	a.orch = services.NewOrchestrator(logger, steps, store, a.metrics, a.events)
	return a, nil
}

func (a *app) Close() {
	if a.transport != nil {
		a.transport.Close()
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Warn("failed to close run history", "error", err)
		}
	}
}

// optionalSecretKey loads the encryption key only when one was set up, so
// plain-text setups never create a key file.
func optionalSecretKey() (*config.SecretKey, error) {
	if os.Getenv(config.SecretKeyEnv) == "" {
		if _, err := os.Stat(config.DefaultSecretKeyPath()); errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
	}
	key, err := config.LoadSecretKey(config.DefaultSecretKeyPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load secret key: %w", err)
	}
	return key, nil
}
