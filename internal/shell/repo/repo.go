// Package repo keeps the Supabase repository synced into the working
// tree. The checkout is sparse - blobless and limited to the docker/
// subdirectory - because the stack only needs the compose files, not the
// whole monorepo.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/innerline/local-ai-packaged/internal/core/stack"
	"github.com/innerline/local-ai-packaged/internal/shell/executor"
)

// Config locates the checkout and names what to sync.
type Config struct {
	// URL is the repository to clone.
	URL string
	// WorkDir is the directory the checkout lives under. Empty means the
	// process working directory.
	WorkDir string
	// Dir is the checkout directory name under WorkDir.
	Dir string
	// Subdir is the sparse checkout cone.
	Subdir string
	// Branch is checked out after the sparse set is configured.
	Branch string
}

// Syncer clones the repository on first run and pulls on every run after.
type Syncer struct {
	cfg    Config
	layout stack.Layout
	runner executor.Runner
	logger *log.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(cfg Config, layout stack.Layout, runner executor.Runner, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.Default()
	}
	return &Syncer{cfg: cfg, layout: layout, runner: runner, logger: logger}
}

// Dir returns the absolute-or-relative path of the checkout directory.
func (s *Syncer) Dir() string {
	return filepath.Join(s.cfg.WorkDir, s.cfg.Dir)
}

// Sync brings the checkout up to date. A missing directory triggers the
// sparse clone sequence; an existing one is updated with a plain pull.
// Presence of the directory is the only freshness signal used, matching
// how operators repair a broken checkout: delete it and rerun.
func (s *Syncer) Sync(ctx context.Context) error {
	repoDir := s.Dir()

	_, err := os.Stat(repoDir)
	switch {
	case err == nil:
		return s.pull(ctx, repoDir)
	case errors.Is(err, fs.ErrNotExist):
		return s.clone(ctx, repoDir)
	default:
		return fmt.Errorf("checking repository dir %s: %w", repoDir, err)
	}
}

func (s *Syncer) clone(ctx context.Context, repoDir string) error {
	s.logger.Info("cloning repository", "url", s.cfg.URL, "dir", repoDir)

	steps := []stack.Invocation{
		s.layout.CloneCommand(s.cfg.URL, s.cfg.WorkDir),
		s.layout.SparseCheckoutInitCommand(repoDir),
		s.layout.SparseCheckoutSetCommand(repoDir, s.cfg.Subdir),
		s.layout.CheckoutCommand(repoDir, s.cfg.Branch),
	}
	for _, inv := range steps {
		if _, err := executor.Checked(ctx, s.runner, inv); err != nil {
			return fmt.Errorf("cloning repository: %w", err)
		}
	}
	return nil
}

func (s *Syncer) pull(ctx context.Context, repoDir string) error {
	s.logger.Info("repository present, pulling", "dir", repoDir)

	if _, err := executor.Checked(ctx, s.runner, s.layout.PullCommand(repoDir)); err != nil {
		return fmt.Errorf("updating repository: %w", err)
	}
	return nil
}
