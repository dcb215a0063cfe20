package main

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/innerline/local-ai-packaged/internal/bootstrap"
	"github.com/innerline/local-ai-packaged/internal/core/stack"
	"github.com/innerline/local-ai-packaged/internal/shell/dockercli"
	"github.com/innerline/local-ai-packaged/internal/shell/executor"
	"github.com/innerline/local-ai-packaged/internal/shell/journal"
	"github.com/innerline/local-ai-packaged/internal/shell/repo"
	"github.com/innerline/local-ai-packaged/internal/shell/searxng"
)

// rootOptions are the persistent command line flags, resolved once per
// invocation and threaded into the app explicitly.
type rootOptions struct {
	configPath  string
	profile     string
	environment string
	logLevel    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "localai",
		Short: "Bootstrap the local AI and Supabase compose stacks",
		Long: `localai prepares and starts two docker compose stacks under one shared
project: the Supabase dependency stack and the local AI stack built
around n8n, Ollama, Open WebUI, Flowise, SearXNG, Langfuse and Qdrant.

A bare invocation runs the full sequence: sync the Supabase deployment
assets, copy the env file, provision the SearXNG secret key, adjust the
cap_drop hardening for first runs, clear conflicting containers, start
Supabase, wait for it to settle, then start the AI stack.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBootstrap(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file")
	flags.StringVar(&opts.profile, "profile", stack.DefaultProfile.String(),
		"hardware profile: cpu, gpu-nvidia, gpu-amd or none")
	flags.StringVar(&opts.environment, "environment", stack.DefaultEnvironment.String(),
		"deployment environment: private or public")
	flags.StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newDownCommand(opts),
		newCleanupCommand(opts),
		newDoctorCommand(opts),
		newHistoryCommand(opts),
		newVersionCommand(),
	)

	return root
}

func runBootstrap(cmd *cobra.Command, opts *rootOptions) error {
	app, err := newApp(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.pipeline().Run(cmd.Context()); err != nil {
		app.logger.Error("bootstrap failed", "error", err)
		return err
	}
	return nil
}

// =============================================================================
// App Wiring
// =============================================================================

// app bundles what every command needs: parsed config, the logger, and the
// run journal.
type app struct {
	cfg     *Config
	logger  *log.Logger
	journal journal.Journal
	profile stack.Profile
	env     stack.Environment
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return nil, &bootstrap.Error{Op: "load config", ExitCode: bootstrap.ExitConfig, Err: err}
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	logger := SetupLogger(cfg)

	profile, err := stack.ParseProfile(opts.profile)
	if err != nil {
		return nil, &bootstrap.Error{Op: "parse --profile", ExitCode: bootstrap.ExitConfig, Err: err}
	}
	environment, err := stack.ParseEnvironment(opts.environment)
	if err != nil {
		return nil, &bootstrap.Error{Op: "parse --environment", ExitCode: bootstrap.ExitConfig, Err: err}
	}

	// History is advisory: a journal that cannot open downgrades to a
	// no-op with a warning instead of blocking the bootstrap.
	jnl := journal.Journal(journal.Nop{})
	if cfg.Journal.Enabled {
		sqlite, err := journal.NewSQLiteJournal(cfg.Journal.DSN)
		if err != nil {
			logger.Warn("run journal unavailable", "dsn", cfg.Journal.DSN, "error", err)
		} else {
			jnl = sqlite
		}
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		journal: jnl,
		profile: profile,
		env:     environment,
	}, nil
}

func (a *app) Close() {
	if err := a.journal.Close(); err != nil {
		a.logger.Warn("closing journal", "error", err)
	}
}

// pipeline wires the bootstrap pipeline against the real executor, with
// child output mirrored to the terminal.
func (a *app) pipeline() *bootstrap.Pipeline {
	workDir := a.cfg.Stack.WorkDir

	runner := executor.NewExecRunner(a.logger)
	runner.Mirror(os.Stdout, os.Stderr)

	return bootstrap.New(bootstrap.Config{
		Layout: stack.Layout{
			DockerBin:              a.cfg.Stack.DockerBin,
			GitBin:                 a.cfg.Stack.GitBin,
			ProjectName:            a.cfg.Stack.ProjectName,
			Dir:                    workDir,
			ComposeFile:            a.cfg.Stack.ComposeFile,
			PrivateOverride:        a.cfg.Stack.PrivateOverride,
			PublicOverride:         a.cfg.Stack.PublicOverride,
			SupabaseComposeFile:    a.cfg.Supabase.ComposeFile,
			SupabasePublicOverride: a.cfg.Supabase.PublicOverride,
		},
		Profile:     a.profile,
		Environment: a.env,
		EnvSource:   filepath.Join(workDir, a.cfg.Stack.EnvFile),
		EnvDest:     filepath.Join(workDir, a.cfg.Supabase.EnvFile),
		SettleDelay: a.cfg.Stack.SettleDelay,
		Repo: repo.Config{
			URL:     a.cfg.Supabase.RepoURL,
			WorkDir: workDir,
			Dir:     a.cfg.Supabase.Dir,
			Subdir:  a.cfg.Supabase.SparseDir,
			Branch:  a.cfg.Supabase.Branch,
		},
		SearXNG: searxng.Config{
			SettingsPath:     filepath.Join(workDir, a.cfg.SearXNG.SettingsPath),
			SettingsBasePath: filepath.Join(workDir, a.cfg.SearXNG.SettingsBasePath),
			Placeholder:      a.cfg.SearXNG.Placeholder,
			ComposeFile:      filepath.Join(workDir, a.cfg.Stack.ComposeFile),
			InitMarker:       a.cfg.SearXNG.InitMarker,
			NameFilter:       a.cfg.SearXNG.NameFilter,
		},
		Cleanup: dockercli.Config{
			ProjectFilter: a.cfg.Stack.ProjectName,
			AppFilter:     a.cfg.Cleanup.AppFilter,
			AppPort:       a.cfg.Cleanup.AppPort,
		},
		Runner:  runner,
		Journal: a.journal,
		Logger:  a.logger,
	})
}
