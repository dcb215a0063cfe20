// Package bootstrap sequences the startup of the Supabase and AI compose
// stacks under one shared project.
//
// The pipeline is strictly ordered: sync the Supabase deployment assets,
// materialize the env file, provision the SearXNG secret, patch the
// cap_drop directive, tear down whatever is already running, start
// Supabase, wait for it to settle, then start the AI stack. SearXNG
// preparation failures are absorbed so a broken template never blocks a
// startup; everything else is fatal with a distinct exit code.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/innerline/local-ai-packaged/internal/core/retry"
	"github.com/innerline/local-ai-packaged/internal/core/stack"
	"github.com/innerline/local-ai-packaged/internal/shell/dockercli"
	"github.com/innerline/local-ai-packaged/internal/shell/envfile"
	"github.com/innerline/local-ai-packaged/internal/shell/executor"
	"github.com/innerline/local-ai-packaged/internal/shell/journal"
	"github.com/innerline/local-ai-packaged/internal/shell/repo"
	"github.com/innerline/local-ai-packaged/internal/shell/searxng"
)

// =============================================================================
// Phases
// =============================================================================

// Pipeline phases, recorded to the journal as each stage completes. A failed
// run keeps the last phase it reached.
const (
	PhaseInit         = "init"
	PhaseSynced       = "synced"
	PhaseEnvReady     = "env_ready"
	PhaseSecretsReady = "secrets_ready"
	PhasePatched      = "patched"
	PhaseCleaned      = "cleaned"
	PhaseSupabaseUp   = "supabase_up"
	PhaseSettling     = "settling"
	PhaseAIUp         = "ai_up"
)

// DefaultSettleDelay is how long the dependency stack gets to initialize
// before the dependent stack starts connecting to it.
const DefaultSettleDelay = 10 * time.Second

// retryAttempts is the total tries for each retryable stage: one attempt,
// one recovery, one retry.
const retryAttempts = 2

// =============================================================================
// Pipeline
// =============================================================================

// Config carries everything the pipeline needs. Zero values get sensible
// defaults from New.
type Config struct {
	Layout      stack.Layout
	Profile     stack.Profile
	Environment stack.Environment

	// EnvSource is the operator-maintained env file. EnvDest is the copy
	// the dependency stack reads from inside its compose directory.
	EnvSource string
	EnvDest   string

	// SettleDelay separates the two stack startups.
	SettleDelay time.Duration

	Repo    repo.Config
	SearXNG searxng.Config
	Cleanup dockercli.Config

	Runner  executor.Runner
	Journal journal.Journal
	Logger  *log.Logger

	// Out receives operator-facing tables and reports. Defaults to stdout.
	Out io.Writer
}

// Pipeline runs the ordered bootstrap stages.
type Pipeline struct {
	cfg     Config
	layout  stack.Layout
	repo    *repo.Syncer
	searxng *searxng.Provisioner
	docker  *dockercli.Client
	journal journal.Journal
	runner  executor.Runner
	logger  *log.Logger
	out     io.Writer
}

// New wires a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Profile == "" {
		cfg.Profile = stack.DefaultProfile
	}
	if cfg.Environment == "" {
		cfg.Environment = stack.DefaultEnvironment
	}

	return &Pipeline{
		cfg:     cfg,
		layout:  cfg.Layout,
		repo:    repo.NewSyncer(cfg.Repo, cfg.Layout, cfg.Runner, cfg.Logger),
		searxng: searxng.NewProvisioner(cfg.SearXNG, cfg.Layout, cfg.Runner, cfg.Logger),
		docker:  dockercli.NewClient(cfg.Cleanup, cfg.Layout, cfg.Runner, cfg.Logger),
		journal: cfg.Journal,
		runner:  cfg.Runner,
		logger:  cfg.Logger,
		out:     cfg.Out,
	}
}

// Run executes the full pipeline and records the run in the journal.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("starting bootstrap",
		"profile", p.cfg.Profile,
		"environment", p.cfg.Environment,
	)

	runID := p.recordStart(ctx)

	if err := p.execute(ctx, runID); err != nil {
		p.conclude(runID, journal.OutcomeFailed, err.Error())
		return err
	}

	p.conclude(runID, journal.OutcomeSucceeded, "")
	p.logger.Info("bootstrap complete",
		"profile", p.cfg.Profile,
		"environment", p.cfg.Environment,
	)
	return nil
}

func (p *Pipeline) execute(ctx context.Context, runID string) error {
	// Stage 1: repository sync.
	p.logger.Info("syncing supabase deployment assets", "dir", p.repo.Dir())
	if err := p.repo.Sync(ctx); err != nil {
		return &Error{Op: "sync supabase repository", ExitCode: ExitRepoSync, Err: err}
	}
	p.advance(ctx, runID, PhaseSynced)

	// Stage 2: env file materialization.
	p.logger.Info("copying env file", "from", p.cfg.EnvSource, "to", p.cfg.EnvDest)
	if err := envfile.Materialize(p.cfg.EnvSource, p.cfg.EnvDest); err != nil {
		return &Error{Op: "copy env file", ExitCode: ExitEnvFile, Err: err}
	}
	p.advance(ctx, runID, PhaseEnvReady)

	// Stage 3: SearXNG secret. A failure here must not block the stacks,
	// the operator can inject the key by hand.
	if err := p.searxng.ProvisionSecret(ctx); err != nil {
		p.logger.Warn("searxng secret provisioning failed, continuing", "error", err)
		p.logger.Warn("manual fix: " + searxng.ManualSecretHint)
	}
	p.advance(ctx, runID, PhaseSecretsReady)

	// Stage 4: cap_drop toggle, also never fatal.
	if err := p.searxng.PatchCompose(ctx); err != nil {
		p.logger.Warn("searxng cap_drop patch failed, continuing", "error", err)
	}
	p.advance(ctx, runID, PhasePatched)

	// Stage 5: conflict inventory, then teardown with one retry after
	// removing stray containers.
	p.reportConflicts(ctx)

	if err := p.down(ctx); err != nil {
		return &Error{Op: "stop existing containers", ExitCode: ExitStartup, Err: err}
	}
	p.advance(ctx, runID, PhaseCleaned)

	// Stage 6: Supabase first. The AI stack's services expect its
	// database and auth endpoints to exist.
	p.logger.Info("starting supabase stack")
	supabase := p.retryPolicy("supabase startup", p.strayRecovery())
	err := supabase.Do(ctx, func(ctx context.Context) error {
		_, err := executor.Checked(ctx, p.runner, p.layout.SupabaseUpCommand(p.cfg.Environment))
		return err
	})
	if err != nil {
		return &Error{Op: "start supabase stack", ExitCode: ExitStartup, Err: err}
	}
	p.advance(ctx, runID, PhaseSupabaseUp)

	p.advance(ctx, runID, PhaseSettling)
	p.logger.Info("waiting for supabase to initialize", "delay", p.cfg.SettleDelay)
	if err := p.settle(ctx); err != nil {
		return &Error{Op: "wait for supabase", ExitCode: ExitStartup, Err: err}
	}

	// Stage 7: the AI stack, with the heavy cleanup pass as recovery.
	p.logger.Info("starting ai stack", "profile", p.cfg.Profile)
	ai := p.retryPolicy("ai startup", p.deepRecovery())
	err = ai.Do(ctx, func(ctx context.Context) error {
		_, err := executor.Checked(ctx, p.runner, p.layout.AIUpCommand(p.cfg.Profile, p.cfg.Environment))
		return err
	})
	if err != nil {
		return &Error{Op: "start ai stack", ExitCode: ExitStartup, Err: err}
	}
	p.advance(ctx, runID, PhaseAIUp)

	return nil
}

// Down tears the shared project down, retrying once after stray-container
// cleanup. Used by the full pipeline and as a standalone operation.
func (p *Pipeline) Down(ctx context.Context) error {
	if err := p.down(ctx); err != nil {
		return &Error{Op: "stop existing containers", ExitCode: ExitStartup, Err: err}
	}
	return nil
}

// Cleanup prints the conflict inventory and removes stray containers. With
// deep set it sweeps the full inventory of known container names across
// both stacks and prunes unused networks.
func (p *Pipeline) Cleanup(ctx context.Context, deep bool) error {
	p.reportConflicts(ctx)

	if !deep {
		return p.docker.StrayCleanup(ctx)
	}

	removed, err := p.docker.DeepCleanup(ctx)
	fmt.Fprintf(p.out, "containers removed: %d\n", removed)
	return err
}

func (p *Pipeline) down(ctx context.Context) error {
	p.logger.Info("stopping existing containers", "project", p.layout.ProjectName)
	policy := p.retryPolicy("teardown", p.strayRecovery())
	return policy.Do(ctx, func(ctx context.Context) error {
		_, err := executor.Checked(ctx, p.runner, p.layout.DownCommand(p.cfg.Profile))
		return err
	})
}

// settle sleeps for the configured delay, abandoning early on cancellation.
func (p *Pipeline) settle(ctx context.Context) error {
	timer := time.NewTimer(p.cfg.SettleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// =============================================================================
// Recovery
// =============================================================================

func (p *Pipeline) retryPolicy(op string, recovery func(context.Context) error) retry.Policy {
	return retry.Policy{
		Attempts: retryAttempts,
		Recover:  recovery,
		OnRetry: func(attempt int, err, recoverErr error) {
			p.logger.Warn(op+" failed, retrying after cleanup",
				"attempt", attempt,
				"error", err,
			)
			if recoverErr != nil {
				p.logger.Warn("cleanup finished with errors", "error", recoverErr)
			}
		},
	}
}

func (p *Pipeline) strayRecovery() func(context.Context) error {
	return func(ctx context.Context) error {
		return p.docker.StrayCleanup(ctx)
	}
}

func (p *Pipeline) deepRecovery() func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := p.docker.DeepCleanup(ctx)
		return err
	}
}

// reportConflicts shows the operator what already exists. Purely
// informational: listing failures are logged and the pipeline moves on.
func (p *Pipeline) reportConflicts(ctx context.Context) {
	inv, err := p.docker.Inventory(ctx)
	if err != nil {
		p.logger.Warn("conflict inventory incomplete", "error", err)
	}
	if inv == nil {
		return
	}

	printSection(p.out, "Containers in project", inv.ProjectContainers)
	printSection(p.out, "Existing app containers", inv.AppContainers)
	printSection(p.out, "Port "+p.cfg.Cleanup.AppPort+" usage", inv.PortUsage)
}

func printSection(w io.Writer, title, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(w, "%s:\n%s\n", title, body)
}

// =============================================================================
// Journal Recording
// =============================================================================

// The journal is advisory. Every recording failure is logged and swallowed
// so history problems never break a startup.

func (p *Pipeline) recordStart(ctx context.Context) string {
	id, err := p.journal.RecordStart(ctx, p.cfg.Profile.String(), p.cfg.Environment.String())
	if err != nil {
		p.logger.Warn("journal unavailable, run will not be recorded", "error", err)
		return ""
	}
	return id
}

func (p *Pipeline) advance(ctx context.Context, runID, phase string) {
	if runID == "" {
		return
	}
	if err := p.journal.RecordPhase(ctx, runID, phase); err != nil {
		p.logger.Warn("recording phase failed", "phase", phase, "error", err)
	}
}

func (p *Pipeline) conclude(runID, outcome, message string) {
	if runID == "" {
		return
	}
	// Outcome recording uses a fresh context: the run context may already
	// be cancelled, and the final row is the one worth keeping.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.journal.RecordOutcome(ctx, runID, outcome, message); err != nil {
		p.logger.Warn("recording outcome failed", "error", err)
	}
}
