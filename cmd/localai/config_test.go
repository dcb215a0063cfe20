package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "localai", cfg.Stack.ProjectName)
	assert.Equal(t, "docker-compose.yml", cfg.Stack.ComposeFile)
	assert.Equal(t, "docker-compose.override.private.yml", cfg.Stack.PrivateOverride)
	assert.Equal(t, "docker-compose.override.public.yml", cfg.Stack.PublicOverride)
	assert.Equal(t, ".env", cfg.Stack.EnvFile)
	assert.Equal(t, "docker", cfg.Stack.DockerBin)
	assert.Equal(t, "git", cfg.Stack.GitBin)
	assert.Equal(t, 10*time.Second, cfg.Stack.SettleDelay)

	assert.Equal(t, "https://github.com/supabase/supabase.git", cfg.Supabase.RepoURL)
	assert.Equal(t, "supabase", cfg.Supabase.Dir)
	assert.Equal(t, "docker", cfg.Supabase.SparseDir)
	assert.Equal(t, "master", cfg.Supabase.Branch)
	assert.Equal(t, "supabase/docker/docker-compose.yml", cfg.Supabase.ComposeFile)
	assert.Equal(t, "docker-compose.override.public.supabase.yml", cfg.Supabase.PublicOverride)
	assert.Equal(t, "supabase/docker/.env", cfg.Supabase.EnvFile)

	assert.Equal(t, "searxng/settings.yml", cfg.SearXNG.SettingsPath)
	assert.Equal(t, "searxng/settings-base.yml", cfg.SearXNG.SettingsBasePath)
	assert.Equal(t, "ultrasecretkey", cfg.SearXNG.Placeholder)
	assert.Equal(t, "/etc/searxng/uwsgi.ini", cfg.SearXNG.InitMarker)
	assert.Equal(t, "searxng", cfg.SearXNG.NameFilter)

	assert.Equal(t, "n8n", cfg.Cleanup.AppFilter)
	assert.Equal(t, "5678", cfg.Cleanup.AppPort)

	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "./data/localai.db", cfg.Journal.DSN)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
stack:
  project_name: "aihost"
  settle_delay: 30s
  work_dir: "/srv/aihost"

supabase:
  branch: "main"

journal:
  enabled: false
  dsn: "/tmp/test.db"

log:
  level: "debug"
  format: "json"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "aihost", cfg.Stack.ProjectName)
	assert.Equal(t, 30*time.Second, cfg.Stack.SettleDelay)
	assert.Equal(t, "/srv/aihost", cfg.Stack.WorkDir)
	assert.Equal(t, "main", cfg.Supabase.Branch)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "/tmp/test.db", cfg.Journal.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Untouched sections keep their defaults.
	assert.Equal(t, "docker-compose.yml", cfg.Stack.ComposeFile)
	assert.Equal(t, "ultrasecretkey", cfg.SearXNG.Placeholder)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("LOCALAI_STACK_PROJECT_NAME", "override")
	t.Setenv("LOCALAI_STACK_SETTLE_DELAY", "5s")
	t.Setenv("LOCALAI_JOURNAL_DSN", "/custom/path.db")
	t.Setenv("LOCALAI_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "override", cfg.Stack.ProjectName)
	assert.Equal(t, 5*time.Second, cfg.Stack.SettleDelay)
	assert.Equal(t, "/custom/path.db", cfg.Journal.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "localai", cfg.Stack.ProjectName)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("stack: [not: valid"), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "debug", Format: "text"}}
	logger := SetupLogger(cfg)
	require.NotNil(t, logger)

	// Unknown values fall back to sane defaults rather than failing.
	cfg = &Config{Log: LogConfig{Level: "noisy", Format: "xml"}}
	logger = SetupLogger(cfg)
	require.NotNil(t, logger)
}

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"LOCALAI_STACK_PROJECT_NAME",
		"LOCALAI_STACK_SETTLE_DELAY",
		"LOCALAI_STACK_WORK_DIR",
		"LOCALAI_JOURNAL_ENABLED",
		"LOCALAI_JOURNAL_DSN",
		"LOCALAI_LOG_LEVEL",
		"LOCALAI_LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
