// Package dockercli drives the docker CLI for container inventory and
// cleanup. Cleanup sweeps are tolerant: a container that cannot be
// removed is logged and skipped, never allowed to stop the sweep.
package dockercli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/innerline/local-ai-packaged/internal/core/stack"
	"github.com/innerline/local-ai-packaged/internal/shell/executor"
)

// Config names the filters the inventory and cleanup sweeps use.
type Config struct {
	// ProjectFilter matches containers belonging to the shared project.
	ProjectFilter string
	// AppFilter matches the dependent stack's primary app containers,
	// the most common source of name conflicts.
	AppFilter string
	// AppPort is the app's published port, checked for squatters.
	AppPort string
	// ConflictProne overrides the default conflict-prone name list.
	ConflictProne []string
	// Known overrides the default full container inventory.
	Known []string
}

func (c Config) conflictProne() []string {
	if c.ConflictProne != nil {
		return c.ConflictProne
	}
	return stack.ConflictProneContainers()
}

func (c Config) known() []string {
	if c.Known != nil {
		return c.Known
	}
	return stack.KnownContainers()
}

// Client wraps the docker CLI.
type Client struct {
	cfg    Config
	layout stack.Layout
	runner executor.Runner
	logger *log.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config, layout stack.Layout, runner executor.Runner, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{cfg: cfg, layout: layout, runner: runner, logger: logger}
}

// =============================================================================
// Inventory
// =============================================================================

// Inventory is the operator-facing picture of what already exists before
// the stacks start: raw docker ps tables, shown verbatim.
type Inventory struct {
	ProjectContainers string
	AppContainers     string
	PortUsage         string
}

// Inventory lists project containers, app containers, and port usage.
// Partial results are returned alongside the joined errors so a flaky
// daemon still produces whatever could be read.
func (c *Client) Inventory(ctx context.Context) (*Inventory, error) {
	inv := &Inventory{}
	var errs []error

	if res, err := executor.Checked(ctx, c.runner, c.layout.ListByNameCommand(c.cfg.ProjectFilter)); err != nil {
		errs = append(errs, fmt.Errorf("listing project containers: %w", err))
	} else {
		inv.ProjectContainers = strings.TrimRight(res.Stdout, "\n")
	}

	if res, err := executor.Checked(ctx, c.runner, c.layout.ListByNameCommand(c.cfg.AppFilter)); err != nil {
		errs = append(errs, fmt.Errorf("listing app containers: %w", err))
	} else {
		inv.AppContainers = strings.TrimRight(res.Stdout, "\n")
	}

	if res, err := executor.Checked(ctx, c.runner, c.layout.ListByPortCommand(c.cfg.AppPort)); err != nil {
		errs = append(errs, fmt.Errorf("checking port %s: %w", c.cfg.AppPort, err))
	} else {
		inv.PortUsage = strings.TrimRight(res.Stdout, "\n")
	}

	return inv, errors.Join(errs...)
}

// =============================================================================
// Targeted Cleanup
// =============================================================================

// StrayCleanup removes leftover app containers in any state and
// conflict-prone containers that are actually running. It is the light
// recovery used between teardown or startup attempts.
func (c *Client) StrayCleanup(ctx context.Context) error {
	var errs []error

	names, err := c.listNames(ctx, c.cfg.AppFilter, true)
	if err != nil {
		errs = append(errs, err)
	}
	if len(names) > 0 {
		c.logger.Info("removing leftover app containers", "containers", names)
		for _, name := range names {
			if err := c.remove(ctx, name); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, name := range c.cfg.conflictProne() {
		running, err := c.isRunning(ctx, name)
		if err != nil {
			// The container does not exist, which is fine.
			continue
		}
		if !running {
			continue
		}
		c.logger.Info("removing conflicting container", "container", name)
		if err := c.remove(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// =============================================================================
// Deep Cleanup
// =============================================================================

// DeepCleanup walks the full inventory of names either stack can produce
// and removes whatever exists, then prunes unused networks. It returns
// how many containers were removed. This is the heavy recovery before a
// dependent-stack retry.
func (c *Client) DeepCleanup(ctx context.Context) (int, error) {
	var errs []error
	removed := 0

	for _, name := range c.cfg.known() {
		res, err := c.runner.Run(ctx, c.layout.InspectNameCommand(name))
		if err != nil {
			errs = append(errs, fmt.Errorf("inspecting %s: %w", name, err))
			continue
		}
		if res.ExitCode != 0 {
			continue
		}

		c.logger.Info("removing container", "container", name)
		if err := c.remove(ctx, name); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	c.logger.Info("container cleanup finished", "removed", removed)

	if _, err := executor.Checked(ctx, c.runner, c.layout.NetworkPruneCommand()); err != nil {
		c.logger.Warn("network prune failed", "err", err)
	}

	return removed, errors.Join(errs...)
}

// =============================================================================
// Helpers
// =============================================================================

func (c *Client) listNames(ctx context.Context, filter string, all bool) ([]string, error) {
	res, err := executor.Checked(ctx, c.runner, c.layout.ListNamesCommand(filter, all))
	if err != nil {
		return nil, fmt.Errorf("listing containers %q: %w", filter, err)
	}

	var names []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// isRunning reports the container's running state. The error return means
// the container does not exist or the daemon could not be queried.
func (c *Client) isRunning(ctx context.Context, name string) (bool, error) {
	res, err := c.runner.Run(ctx, c.layout.InspectRunningCommand(name))
	if err != nil {
		return false, err
	}
	if res.ExitCode != 0 {
		return false, fmt.Errorf("container %s not found", name)
	}
	return strings.TrimSpace(res.Stdout) == "true", nil
}

func (c *Client) remove(ctx context.Context, name string) error {
	if _, err := executor.Checked(ctx, c.runner, c.layout.RemoveForceCommand(name)); err != nil {
		c.logger.Warn("could not remove container", "container", name, "err", err)
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}
