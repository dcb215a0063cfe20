package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Stack    StackConfig    `mapstructure:"stack"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	SearXNG  SearXNGConfig  `mapstructure:"searxng"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Log      LogConfig      `mapstructure:"log"`
}

// StackConfig holds the shared compose project settings.
type StackConfig struct {
	// ProjectName is the compose project both stacks join, so that one
	// down tears everything down together.
	ProjectName string `mapstructure:"project_name"`

	// WorkDir is the directory containing compose files, the .env file,
	// and the repository checkout. Empty means the current directory.
	WorkDir string `mapstructure:"work_dir"`

	ComposeFile     string `mapstructure:"compose_file"`
	PrivateOverride string `mapstructure:"private_override"`
	PublicOverride  string `mapstructure:"public_override"`

	// EnvFile is the shared env file at the project root.
	EnvFile string `mapstructure:"env_file"`

	DockerBin string `mapstructure:"docker_bin"`
	GitBin    string `mapstructure:"git_bin"`

	// SettleDelay is how long to wait between the dependency stack
	// coming up and the dependent stack starting.
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// SupabaseConfig holds the dependency stack settings.
type SupabaseConfig struct {
	RepoURL        string `mapstructure:"repo_url"`
	Dir            string `mapstructure:"dir"`
	SparseDir      string `mapstructure:"sparse_dir"`
	Branch         string `mapstructure:"branch"`
	ComposeFile    string `mapstructure:"compose_file"`
	PublicOverride string `mapstructure:"public_override"`
	EnvFile        string `mapstructure:"env_file"`
}

// SearXNGConfig holds the search sidecar provisioning settings.
type SearXNGConfig struct {
	SettingsPath     string `mapstructure:"settings_path"`
	SettingsBasePath string `mapstructure:"settings_base_path"`
	Placeholder      string `mapstructure:"placeholder"`
	InitMarker       string `mapstructure:"init_marker"`
	NameFilter       string `mapstructure:"name_filter"`
}

// CleanupConfig holds the conflict-scan settings.
type CleanupConfig struct {
	// AppFilter matches the most collision-prone app containers.
	AppFilter string `mapstructure:"app_filter"`
	// AppPort is the app's published port, checked for squatters.
	AppPort string `mapstructure:"app_port"`
}

// JournalConfig holds run-history settings.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment. Defaults match
// the layout of the packaged project, so a bare invocation in the project
// root needs no configuration at all.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("stack.project_name", "localai")
	v.SetDefault("stack.work_dir", "")
	v.SetDefault("stack.compose_file", "docker-compose.yml")
	v.SetDefault("stack.private_override", "docker-compose.override.private.yml")
	v.SetDefault("stack.public_override", "docker-compose.override.public.yml")
	v.SetDefault("stack.env_file", ".env")
	v.SetDefault("stack.docker_bin", "docker")
	v.SetDefault("stack.git_bin", "git")
	v.SetDefault("stack.settle_delay", "10s")

	v.SetDefault("supabase.repo_url", "https://github.com/supabase/supabase.git")
	v.SetDefault("supabase.dir", "supabase")
	v.SetDefault("supabase.sparse_dir", "docker")
	v.SetDefault("supabase.branch", "master")
	v.SetDefault("supabase.compose_file", "supabase/docker/docker-compose.yml")
	v.SetDefault("supabase.public_override", "docker-compose.override.public.supabase.yml")
	v.SetDefault("supabase.env_file", "supabase/docker/.env")

	v.SetDefault("searxng.settings_path", "searxng/settings.yml")
	v.SetDefault("searxng.settings_base_path", "searxng/settings-base.yml")
	v.SetDefault("searxng.placeholder", "ultrasecretkey")
	v.SetDefault("searxng.init_marker", "/etc/searxng/uwsgi.ini")
	v.SetDefault("searxng.name_filter", "searxng")

	v.SetDefault("cleanup.app_filter", "n8n")
	v.SetDefault("cleanup.app_port", "5678")

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.dsn", "./data/localai.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("LOCALAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *log.Logger {
	level := log.InfoLevel
	if parsed, err := log.ParseLevel(strings.ToLower(cfg.Log.Level)); err == nil {
		level = parsed
	}

	formatter := log.TextFormatter
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
	})
}
