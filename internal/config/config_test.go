package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/manthysbr/jobpilot/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Poll.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, domain.WaitPolicyFixed, cfg.Poll.Policy)
	assert.Equal(t, "https://api.tailormyjob.com", cfg.API.BaseURL)
	assert.Equal(t, "/v1/analysis/{id}/status", cfg.API.Endpoints.Status)
	assert.Equal(t, "access_token", cfg.API.Fields.Token)
	assert.Equal(t, "analysis-results.json", cfg.Run.Output)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	yml := []byte(`api:
  base_url: http://localhost:9000
  fields:
    token: data.token
poll:
  max_attempts: 5
  interval: 500ms
  policy: exponential
  max_interval: 4s
run:
  options:
    detail_level: brief
log:
  format: text
`)
	path := filepath.Join(dir, "jobpilot.yml")
	require.NoError(t, os.WriteFile(path, yml, 0o644))

	t.Setenv("JOBPILOT_POLL__MAX_ATTEMPTS", "7")
	t.Setenv("JOBPILOT_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.API.BaseURL)
	assert.Equal(t, "data.token", cfg.API.Fields.Token)
	assert.Equal(t, "analysis_id", cfg.API.Fields.JobID, "unset fields keep defaults")
	assert.Equal(t, 7, cfg.Poll.MaxAttempts, "env overrides file")
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, domain.WaitPolicyExponential, cfg.Poll.Policy)
	assert.Equal(t, 4*time.Second, cfg.Poll.MaxInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "brief", cfg.Run.Options["detail_level"])
	assert.Equal(t, true, cfg.Run.Options["include_recommendations"])
}

func TestLoad_ServiceBaseURLEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobpilot.yml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://from-file\n"), 0o644))

	t.Setenv(APIURLEnv, "http://staging.tailormyjob.test")
	t.Setenv("TAILORMYJOB_API_KEY", "not-config")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://staging.tailormyjob.test", cfg.API.BaseURL)
	assert.Equal(t, "access_token", cfg.API.Fields.Token)

	t.Setenv("JOBPILOT_API__BASE_URL", "http://explicit")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://explicit", cfg.API.BaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("poll:\n  max_attempts: 0\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestRunConfig_JobParameters(t *testing.T) {
	rc := Default().Run

	params := rc.JobParameters("Go developer wanted")
	assert.Equal(t, "Go developer wanted", params["job_description"])
	assert.Equal(t, map[string]any{"include_recommendations": true, "detail_level": "detailed"}, params["options"])

	params = rc.JobParameters("")
	assert.Equal(t, rc.JobDescription, params["job_description"])
}
