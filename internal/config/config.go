// Package config loads jobpilot settings from defaults, an optional YAML
// file and JOBPILOT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/manthysbr/jobpilot/internal/core/domain"
)

const (
	EnvPrefix    = "JOBPILOT_"
	envDelimiter = "__"

	// APIURLEnv is the base URL variable understood by the service's own
	// clients. JOBPILOT_API__BASE_URL still wins when both are set.
	APIURLEnv = "TAILORMYJOB_API_URL"
)

type RunConfig struct {
	MaxConcurrent  int64          `koanf:"max_concurrent"`
	Output         string         `koanf:"output"`
	ArtifactRoot   string         `koanf:"artifact_root"`
	JobDescription string         `koanf:"job_description"`
	Options        map[string]any `koanf:"options"`
}

type StoreConfig struct {
	Path string `koanf:"path"` // empty disables run history
}

type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json|text
}

type ServerConfig struct {
	Addr           string   `koanf:"addr"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type Config struct {
	API     domain.APIConfig  `koanf:"api"`
	Poll    domain.PollConfig `koanf:"poll"`
	Run     RunConfig         `koanf:"run"`
	Store   StoreConfig       `koanf:"store"`
	Metrics MetricsConfig     `koanf:"metrics"`
	Log     LogConfig         `koanf:"log"`
	Server  ServerConfig      `koanf:"server"`
}

// Default mirrors the original client: 30 attempts, 2s apart, results
// written to analysis-results.json.
func Default() Config {
	return Config{
		API:  domain.DefaultAPIConfig(),
		Poll: domain.DefaultPollConfig(),
		Run: RunConfig{
			MaxConcurrent:  4,
			Output:         "analysis-results.json",
			JobDescription: "We are looking for a Senior Software Engineer with 5+ years of experience in Go, AWS, and microservices architecture.",
			Options: map[string]any{
				"include_recommendations": true,
				"detail_level":            "detailed",
			},
		},
		Store: StoreConfig{Path: "jobpilot.db"},
		Log:   LogConfig{Level: "info", Format: "json"},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load merges defaults, the YAML file at path (a missing file is fine),
// TAILORMYJOB_API_URL and the environment (prefix JOBPILOT_, nesting
// delimiter "__", so JOBPILOT_POLL__MAX_ATTEMPTS sets poll.max_attempts).
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(APIURLEnv, envDelimiter, apiURLKey), nil); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", APIURLEnv, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, envDelimiter, envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func apiURLKey(s string) string {
	if s != APIURLEnv {
		return ""
	}
	return "api" + envDelimiter + "base_url"
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func applyDefaults(c *Config) {
	if c.Poll.Policy == "" {
		c.Poll.Policy = domain.WaitPolicyFixed
	}
	if c.Run.MaxConcurrent <= 0 {
		c.Run.MaxConcurrent = 4
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Poll.Validate(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log.format must be json or text, got %q", domain.ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// JobParameters builds the registration payload. An empty description
// falls back to the configured one.
func (r RunConfig) JobParameters(description string) domain.JobParameters {
	if description == "" {
		description = r.JobDescription
	}
	params := domain.JobParameters{"job_description": description}
	if len(r.Options) > 0 {
		params["options"] = maps.Clone(r.Options)
	}
	return params
}
