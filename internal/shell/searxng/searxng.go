// Package searxng provisions the SearXNG sidecar: its settings file, its
// secret key, and the first-run cap_drop workaround in the compose file.
//
// Every failure here is survivable. The pipeline logs what went wrong and
// keeps going, because an unprovisioned SearXNG degrades search, not the
// whole stack.
package searxng

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/innerline/local-ai-packaged/internal/core/patch"
	"github.com/innerline/local-ai-packaged/internal/core/secret"
	"github.com/innerline/local-ai-packaged/internal/core/stack"
	"github.com/innerline/local-ai-packaged/internal/shell/executor"
)

// ManualSecretHint is logged when in-process provisioning fails, so the
// operator can finish the job by hand.
const ManualSecretHint = `replace 'ultrasecretkey' in searxng/settings.yml with a random value, e.g.: sed -i "s|ultrasecretkey|$(openssl rand -hex 32)|g" searxng/settings.yml`

var (
	// ErrBaseSettingsMissing means there is no settings template to copy
	// from, so the secret stage has nothing to do.
	ErrBaseSettingsMissing = errors.New("searxng base settings file not found")

	// ErrComposeFileMissing means the compose file the cap_drop patch
	// would rewrite does not exist.
	ErrComposeFileMissing = errors.New("compose file not found")
)

// Config locates the files the provisioner touches.
type Config struct {
	// SettingsPath is the live settings file read by the container.
	SettingsPath string
	// SettingsBasePath is the template the settings file is created from
	// when absent.
	SettingsBasePath string
	// Placeholder is the token in the template that stands in for the
	// real secret key.
	Placeholder string
	// ComposeFile is the AI stack compose file carrying the cap_drop
	// directive.
	ComposeFile string
	// InitMarker is the path inside the container whose existence proves
	// the service has completed a first run.
	InitMarker string
	// NameFilter selects the container to probe.
	NameFilter string
}

// Provisioner prepares SearXNG before the stacks start.
type Provisioner struct {
	cfg    Config
	layout stack.Layout
	runner executor.Runner
	logger *log.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(cfg Config, layout stack.Layout, runner executor.Runner, logger *log.Logger) *Provisioner {
	if logger == nil {
		logger = log.Default()
	}
	return &Provisioner{cfg: cfg, layout: layout, runner: runner, logger: logger}
}

// =============================================================================
// Secret Provisioning
// =============================================================================

// ProvisionSecret makes sure the settings file exists and carries a real
// secret key instead of the placeholder. Provisioning is idempotent: a
// settings file without the placeholder is left untouched, so an existing
// key is never rotated.
func (p *Provisioner) ProvisionSecret(ctx context.Context) error {
	if err := p.ensureSettings(); err != nil {
		return err
	}

	data, err := os.ReadFile(p.cfg.SettingsPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", p.cfg.SettingsPath, err)
	}

	key, err := secret.GenerateKey()
	if err != nil {
		return fmt.Errorf("generating secret key: %w", err)
	}

	content, changed := secret.Inject(string(data), p.cfg.Placeholder, key)
	if !changed {
		p.logger.Debug("searxng secret already provisioned", "path", p.cfg.SettingsPath)
		return nil
	}

	if err := writePreservingMode(p.cfg.SettingsPath, []byte(content)); err != nil {
		return fmt.Errorf("writing %s: %w", p.cfg.SettingsPath, err)
	}

	p.logger.Info("searxng secret key provisioned", "path", p.cfg.SettingsPath)
	return nil
}

// ensureSettings creates the live settings file from the template when it
// does not exist yet.
func (p *Provisioner) ensureSettings() error {
	if _, err := os.Stat(p.cfg.SettingsBasePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrBaseSettingsMissing, p.cfg.SettingsBasePath)
		}
		return fmt.Errorf("checking %s: %w", p.cfg.SettingsBasePath, err)
	}

	if _, err := os.Stat(p.cfg.SettingsPath); err == nil {
		p.logger.Debug("searxng settings already exist", "path", p.cfg.SettingsPath)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", p.cfg.SettingsPath, err)
	}

	data, err := os.ReadFile(p.cfg.SettingsBasePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", p.cfg.SettingsBasePath, err)
	}
	if err := os.WriteFile(p.cfg.SettingsPath, data, 0o644); err != nil {
		return fmt.Errorf("creating %s: %w", p.cfg.SettingsPath, err)
	}

	p.logger.Info("created searxng settings from template",
		"path", p.cfg.SettingsPath, "template", p.cfg.SettingsBasePath)
	return nil
}

// =============================================================================
// First-Run Compose Patch
// =============================================================================

// PatchCompose toggles the cap_drop directive in the compose file to match
// the service's initialization state: commented out ahead of a first run,
// restored once the container has written its uwsgi.ini.
func (p *Provisioner) PatchCompose(ctx context.Context) error {
	data, err := os.ReadFile(p.cfg.ComposeFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrComposeFileMissing, p.cfg.ComposeFile)
		}
		return fmt.Errorf("reading %s: %w", p.cfg.ComposeFile, err)
	}

	firstRun := p.detectFirstRun(ctx)

	content, changed := patch.ForFirstRun(string(data), firstRun)
	if !changed {
		return nil
	}

	if err := patch.CheckYAML(content); err != nil {
		return fmt.Errorf("patched compose file does not parse: %w", err)
	}

	if err := writePreservingMode(p.cfg.ComposeFile, []byte(content)); err != nil {
		return fmt.Errorf("writing %s: %w", p.cfg.ComposeFile, err)
	}

	if firstRun {
		p.logger.Info("first run detected, cap_drop disabled for searxng",
			"file", p.cfg.ComposeFile)
		p.logger.Warn("re-run after searxng initializes to restore the cap_drop hardening")
	} else {
		p.logger.Info("searxng initialized, cap_drop restored", "file", p.cfg.ComposeFile)
	}
	return nil
}

// detectFirstRun probes the running container for the init marker file.
// Anything short of positive proof of initialization counts as a first
// run: no daemon, no container, a failed exec, or a missing marker.
func (p *Provisioner) detectFirstRun(ctx context.Context) bool {
	res, err := p.runner.Run(ctx, p.layout.ListNamesCommand(p.cfg.NameFilter, false))
	if err != nil || res.ExitCode != 0 {
		p.logger.Warn("could not list searxng containers, assuming first run", "err", err)
		return true
	}

	name := firstLine(res.Stdout)
	if name == "" {
		p.logger.Debug("no running searxng container, assuming first run")
		return true
	}

	probe := fmt.Sprintf("[ -f %s ] && echo 'found' || echo 'not_found'", p.cfg.InitMarker)
	res, err = p.runner.Run(ctx, p.layout.ExecCommand(name, "sh", "-c", probe))
	if err != nil {
		p.logger.Warn("init probe failed, assuming first run", "container", name, "err", err)
		return true
	}

	return strings.TrimSpace(res.Stdout) != "found"
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// writePreservingMode rewrites path with the file's existing permission
// bits, falling back to 0644 for new files.
func writePreservingMode(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}
