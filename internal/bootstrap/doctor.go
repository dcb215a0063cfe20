package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/innerline/local-ai-packaged/internal/core/compose"
	"github.com/innerline/local-ai-packaged/internal/core/patch"
	"github.com/innerline/local-ai-packaged/internal/shell/envfile"
	"github.com/innerline/local-ai-packaged/internal/shell/executor"
)

// =============================================================================
// Doctor
// =============================================================================

// Check statuses, worst to best. A doctor run never fails the process; it
// tells the operator what the next bootstrap would trip over.
const (
	statusOK   = "ok"
	statusWarn = "warn"
	statusFail = "fail"
)

type checkResult struct {
	name   string
	status string
	detail string
}

// Doctor runs the read-only preflight checks and prints a report: daemon
// reachability, env file completeness, compose file validity, SearXNG
// secret state, and the cap_drop posture, followed by the container
// conflict inventory. Informational only.
func (p *Pipeline) Doctor(ctx context.Context) error {
	checks := []checkResult{
		p.checkDocker(ctx),
		p.checkEnvFile(),
		p.checkAICompose(),
		p.checkSupabaseCompose(),
		p.checkSearXNGSettings(),
		p.checkCapDrop(),
	}

	for _, c := range checks {
		fmt.Fprintf(p.out, "%-5s %-18s %s\n", c.status, c.name, c.detail)
	}

	fmt.Fprintln(p.out)
	p.reportConflicts(ctx)
	return nil
}

func (p *Pipeline) checkDocker(ctx context.Context) checkResult {
	c := checkResult{name: "docker daemon"}

	res, err := executor.Checked(ctx, p.runner, p.layout.ServerVersionCommand())
	if err != nil {
		c.status = statusFail
		c.detail = "unreachable: " + firstErrLine(err)
		return c
	}

	c.status = statusOK
	c.detail = "version " + strings.TrimSpace(res.Stdout)
	return c
}

func (p *Pipeline) checkEnvFile() checkResult {
	c := checkResult{name: "env file"}

	env, err := envfile.Load(p.cfg.EnvSource)
	if err != nil {
		if errors.Is(err, envfile.ErrMissingSource) {
			c.status = statusFail
			c.detail = fmt.Sprintf("%s missing (copy .env.example and fill in the secrets)", p.cfg.EnvSource)
		} else {
			c.status = statusFail
			c.detail = err.Error()
		}
		return c
	}

	required := envfile.RequiredKeys()
	missing := envfile.MissingKeys(env, required)
	if len(missing) > 0 {
		c.status = statusWarn
		c.detail = "unset keys: " + strings.Join(missing, ", ")
		return c
	}

	c.status = statusOK
	c.detail = fmt.Sprintf("%s, all %d required keys set", p.cfg.EnvSource, len(required))
	return c
}

func (p *Pipeline) checkAICompose() checkResult {
	c := checkResult{name: "ai compose"}

	path := p.composePath()
	data, err := os.ReadFile(path)
	if err != nil {
		c.status = statusFail
		c.detail = path + " unreadable"
		return c
	}

	// Interpolation uses whatever the env file provides; a missing env
	// file just means defaults apply.
	env, _ := envfile.Load(p.cfg.EnvSource)

	summary, err := compose.Summarize(string(data), env)
	if err != nil {
		c.status = statusFail
		c.detail = "does not parse: " + firstErrLine(err)
		return c
	}

	c.status = statusOK
	c.detail = fmt.Sprintf("%d services", len(summary.Services))
	if len(summary.Profiles) > 0 {
		c.detail += ", profiles: " + strings.Join(summary.Profiles, ", ")
	}
	return c
}

func (p *Pipeline) checkSupabaseCompose() checkResult {
	c := checkResult{name: "supabase compose"}

	path := p.supabaseComposePath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.status = statusWarn
			c.detail = path + " not synced yet (the next run clones it)"
		} else {
			c.status = statusFail
			c.detail = err.Error()
		}
		return c
	}

	c.status = statusOK
	c.detail = path
	return c
}

func (p *Pipeline) checkSearXNGSettings() checkResult {
	c := checkResult{name: "searxng settings"}

	data, err := os.ReadFile(p.cfg.SearXNG.SettingsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.status = statusWarn
			c.detail = p.cfg.SearXNG.SettingsPath + " absent (the next run seeds it from the template)"
		} else {
			c.status = statusFail
			c.detail = err.Error()
		}
		return c
	}

	if strings.Contains(string(data), p.cfg.SearXNG.Placeholder) {
		c.status = statusWarn
		c.detail = "secret key still set to the placeholder"
		return c
	}

	c.status = statusOK
	c.detail = "secret key set"
	return c
}

func (p *Pipeline) checkCapDrop() checkResult {
	c := checkResult{name: "cap_drop"}

	path := p.composePath()
	data, err := os.ReadFile(path)
	if err != nil {
		c.status = statusFail
		c.detail = path + " unreadable"
		return c
	}

	// The sentinel embeds the directive text, so it has to be ruled out
	// before the directive check can mean anything.
	content := string(data)
	switch {
	case strings.Contains(content, patch.CapDropDisabled):
		c.status = statusWarn
		c.detail = "relaxed for first run (re-run after searxng initializes)"
	case strings.Contains(content, patch.CapDropDirective):
		c.status = statusOK
		c.detail = "hardened"
	default:
		c.status = statusWarn
		c.detail = "no cap_drop directive found"
	}
	return c
}

// composePath resolves the AI stack compose file against the project
// directory, the same way the compose processes see it.
func (p *Pipeline) composePath() string {
	return filepath.Join(p.layout.Dir, p.layout.ComposeFile)
}

func (p *Pipeline) supabaseComposePath() string {
	return filepath.Join(p.layout.Dir, p.layout.SupabaseComposeFile)
}

// firstErrLine keeps multi-line tool output from wrecking the report table.
func firstErrLine(err error) string {
	line := err.Error()
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return line
}
