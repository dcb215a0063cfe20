package stack

import "strings"

// =============================================================================
// Invocation
// =============================================================================

// Invocation is one external command: an argv vector plus an optional working
// directory. Argv is always passed to the process-execution layer verbatim -
// never through a shell - so no token needs quoting or escaping.
type Invocation struct {
	Argv []string
	Dir  string
}

// String renders the invocation the way an operator would type it.
func (i Invocation) String() string {
	return strings.Join(i.Argv, " ")
}

// =============================================================================
// Layout
// =============================================================================

// Layout names the binaries, the compose project, and the compose files the
// bootstrapper drives. All command construction goes through it so that the
// flag order of every invocation is decided in exactly one place.
type Layout struct {
	DockerBin string // "docker"
	GitBin    string // "git"

	// ProjectName is the shared compose project both stacks join.
	ProjectName string

	// Dir is the project directory compose commands run in. Empty means
	// the process working directory.
	Dir string

	// AI stack files, relative to Dir.
	ComposeFile     string
	PrivateOverride string
	PublicOverride  string

	// Supabase stack files, relative to Dir.
	SupabaseComposeFile    string
	SupabasePublicOverride string
}

// =============================================================================
// Compose Commands
// =============================================================================

// DownCommand tears down everything under the shared project name, scoped by
// the active profile.
//
// Example:
//
//	docker compose -p localai --profile cpu -f docker-compose.yml down
func (l Layout) DownCommand(profile Profile) Invocation {
	argv := []string{l.DockerBin, "compose", "-p", l.ProjectName}
	if profile.Flagged() {
		argv = append(argv, "--profile", profile.String())
	}
	argv = append(argv, "-f", l.ComposeFile, "down")
	return Invocation{Argv: argv, Dir: l.Dir}
}

// SupabaseUpCommand starts the Supabase stack. The public override is layered
// on only for the public environment; the private environment runs the base
// file alone.
func (l Layout) SupabaseUpCommand(env Environment) Invocation {
	argv := []string{l.DockerBin, "compose", "-p", l.ProjectName, "-f", l.SupabaseComposeFile}
	if env == EnvironmentPublic {
		argv = append(argv, "-f", l.SupabasePublicOverride)
	}
	argv = append(argv, "up", "-d")
	return Invocation{Argv: argv, Dir: l.Dir}
}

// AIUpCommand starts the AI stack with the selected profile and exactly one
// environment override layered onto the base file.
func (l Layout) AIUpCommand(profile Profile, env Environment) Invocation {
	argv := []string{l.DockerBin, "compose", "-p", l.ProjectName}
	if profile.Flagged() {
		argv = append(argv, "--profile", profile.String())
	}
	argv = append(argv, "-f", l.ComposeFile)
	switch env {
	case EnvironmentPrivate:
		argv = append(argv, "-f", l.PrivateOverride)
	case EnvironmentPublic:
		argv = append(argv, "-f", l.PublicOverride)
	}
	argv = append(argv, "up", "-d")
	return Invocation{Argv: argv, Dir: l.Dir}
}

// =============================================================================
// Docker Commands
// =============================================================================

// Table formats used by the read-only inventory listings. Output is shown to
// the operator verbatim; only the name-only format is ever parsed, by
// splitting on newlines.
const (
	psTableFormat     = "table {{.Names}}\t{{.Status}}\t{{.Image}}"
	psPortTableFormat = "table {{.Names}}\t{{.Status}}\t{{.Ports}}"
	psNamesFormat     = "{{.Names}}"
)

// ListByNameCommand lists all containers (running or not) whose name matches
// the filter, formatted as an operator-facing table.
func (l Layout) ListByNameCommand(nameFilter string) Invocation {
	return Invocation{Argv: []string{
		l.DockerBin, "ps", "-a", "--filter", "name=" + nameFilter, "--format", psTableFormat,
	}}
}

// ListNamesCommand lists matching container names only, one per line, for
// machine consumption.
func (l Layout) ListNamesCommand(nameFilter string, all bool) Invocation {
	argv := []string{l.DockerBin, "ps"}
	if all {
		argv = append(argv, "-a")
	}
	argv = append(argv, "--filter", "name="+nameFilter, "--format", psNamesFormat)
	return Invocation{Argv: argv}
}

// ListByPortCommand lists running containers publishing the given port.
func (l Layout) ListByPortCommand(port string) Invocation {
	return Invocation{Argv: []string{
		l.DockerBin, "ps", "--filter", "publish=" + port, "--format", psPortTableFormat,
	}}
}

// InspectRunningCommand asks whether a container is currently running. The
// command exits non-zero when the container does not exist.
func (l Layout) InspectRunningCommand(name string) Invocation {
	return Invocation{Argv: []string{
		l.DockerBin, "inspect", "--format={{.State.Running}}", name,
	}}
}

// InspectNameCommand resolves a container name, purely as an existence probe:
// a zero exit means the container exists in any state.
func (l Layout) InspectNameCommand(name string) Invocation {
	return Invocation{Argv: []string{
		l.DockerBin, "inspect", "--format={{.Name}}", name,
	}}
}

// RemoveForceCommand force-removes a container by name.
func (l Layout) RemoveForceCommand(name string) Invocation {
	return Invocation{Argv: []string{l.DockerBin, "rm", "-f", name}}
}

// NetworkPruneCommand removes all unused networks without prompting.
func (l Layout) NetworkPruneCommand() Invocation {
	return Invocation{Argv: []string{l.DockerBin, "network", "prune", "-f"}}
}

// ServerVersionCommand reports the daemon version. It exits non-zero when
// the daemon is unreachable, which makes it a connectivity probe.
func (l Layout) ServerVersionCommand() Invocation {
	return Invocation{Argv: []string{
		l.DockerBin, "version", "--format", "{{.Server.Version}}",
	}}
}

// ExecCommand runs a command inside a running container.
func (l Layout) ExecCommand(container string, cmd ...string) Invocation {
	argv := append([]string{l.DockerBin, "exec", container}, cmd...)
	return Invocation{Argv: argv}
}

// =============================================================================
// Git Commands
// =============================================================================

// CloneCommand performs a blobless, checkout-less clone in dir, the first
// half of a sparse checkout.
func (l Layout) CloneCommand(url, dir string) Invocation {
	return Invocation{
		Argv: []string{l.GitBin, "clone", "--filter=blob:none", "--no-checkout", url},
		Dir:  dir,
	}
}

// SparseCheckoutInitCommand enables cone-mode sparse checkout in repoDir.
func (l Layout) SparseCheckoutInitCommand(repoDir string) Invocation {
	return Invocation{
		Argv: []string{l.GitBin, "sparse-checkout", "init", "--cone"},
		Dir:  repoDir,
	}
}

// SparseCheckoutSetCommand restricts the working tree to one subdirectory.
func (l Layout) SparseCheckoutSetCommand(repoDir, subdir string) Invocation {
	return Invocation{
		Argv: []string{l.GitBin, "sparse-checkout", "set", subdir},
		Dir:  repoDir,
	}
}

// CheckoutCommand materializes the sparse working tree at branch.
func (l Layout) CheckoutCommand(repoDir, branch string) Invocation {
	return Invocation{
		Argv: []string{l.GitBin, "checkout", branch},
		Dir:  repoDir,
	}
}

// PullCommand updates an existing checkout.
func (l Layout) PullCommand(repoDir string) Invocation {
	return Invocation{
		Argv: []string{l.GitBin, "pull"},
		Dir:  repoDir,
	}
}
