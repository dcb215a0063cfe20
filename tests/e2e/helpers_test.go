package e2e

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/innerline/local-ai-packaged/internal/bootstrap"
	"github.com/innerline/local-ai-packaged/internal/core/stack"
	"github.com/innerline/local-ai-packaged/internal/shell/dockercli"
	"github.com/innerline/local-ai-packaged/internal/shell/executor"
	"github.com/innerline/local-ai-packaged/internal/shell/journal"
	"github.com/innerline/local-ai-packaged/internal/shell/repo"
	"github.com/innerline/local-ai-packaged/internal/shell/searxng"
)

// e2eImage keeps fixture containers tiny; the services only need to stay
// up long enough to be inspected.
const e2eImage = "busybox:1.36"

// =============================================================================
// Fixtures
// =============================================================================

const fixtureEnv = `N8N_ENCRYPTION_KEY=e2e-n8n-encryption-key
N8N_USER_MANAGEMENT_JWT_SECRET=e2e-n8n-jwt
POSTGRES_PASSWORD=e2e-pg-password
JWT_SECRET=e2e-supabase-jwt
ANON_KEY=e2e-anon-key
SERVICE_ROLE_KEY=e2e-service-role-key
`

// fixtureAICompose stands in for the AI stack: one always-on service with
// a published port, one gated behind the cpu profile, one behind a gpu
// profile that must stay inactive.
const fixtureAICompose = `services:
  app:
    image: busybox:1.36
    command: sleep 600
    ports:
      - "127.0.0.1::8080"
  worker:
    image: busybox:1.36
    command: sleep 600
    profiles: ["cpu"]
  gpu-worker:
    image: busybox:1.36
    command: sleep 600
    profiles: ["gpu-nvidia"]
`

const fixturePrivateOverride = `services:
  app:
    environment:
      DEPLOY_SCOPE: private
`

// fixtureSupabaseCompose lives inside the scratch git repository. The
// interpolated variable proves the materialized .env is picked up.
const fixtureSupabaseCompose = `services:
  db:
    image: busybox:1.36
    command: sleep 600
    environment:
      PGPASSWORD: ${POSTGRES_PASSWORD}
`

const fixtureSettingsBase = `server:
  secret_key: "ultrasecretkey"
  limiter: true
`

// =============================================================================
// Harness
// =============================================================================

// harness is one scratch compose project: a working directory with
// fixtures, a local git origin for the dependency stack, and a pipeline
// config pointing at both. Everything is namespaced by a unique project
// name so parallel runs and leftover state cannot collide with real
// containers.
type harness struct {
	t       *testing.T
	dir     string
	origin  string
	project string
	out     *bytes.Buffer
	journal journal.Journal
	runner  *executor.ExecRunner
	cfg     bootstrap.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	base := t.TempDir()
	dir := filepath.Join(base, "work")
	origin := filepath.Join(base, "origin", "supabase")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "searxng"), 0o755))

	h := &harness{
		t:       t,
		dir:     dir,
		origin:  origin,
		project: "localai-e2e-" + uuid.NewString()[:8],
		out:     &bytes.Buffer{},
		runner:  executor.NewExecRunner(log.New(os.Stderr)),
	}
	t.Cleanup(h.scrub)

	h.initOrigin()

	writeFile(t, filepath.Join(dir, ".env"), fixtureEnv)
	writeFile(t, filepath.Join(dir, "docker-compose.yml"), fixtureAICompose)
	writeFile(t, filepath.Join(dir, "docker-compose.override.private.yml"), fixturePrivateOverride)
	writeFile(t, filepath.Join(dir, "searxng", "settings-base.yml"), fixtureSettingsBase)

	jnl, err := journal.NewSQLiteJournal(filepath.Join(base, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { jnl.Close() })
	h.journal = jnl

	h.cfg = bootstrap.Config{
		Layout: stack.Layout{
			DockerBin:              "docker",
			GitBin:                 "git",
			ProjectName:            h.project,
			Dir:                    dir,
			ComposeFile:            "docker-compose.yml",
			PrivateOverride:        "docker-compose.override.private.yml",
			PublicOverride:         "docker-compose.override.public.yml",
			SupabaseComposeFile:    "supabase/docker/docker-compose.yml",
			SupabasePublicOverride: "supabase/docker/docker-compose.override.public.yml",
		},
		Profile:     stack.ProfileCPU,
		Environment: stack.EnvironmentPrivate,
		EnvSource:   filepath.Join(dir, ".env"),
		EnvDest:     filepath.Join(dir, "supabase", "docker", ".env"),
		SettleDelay: 2 * time.Second,
		Repo: repo.Config{
			URL:     "file://" + origin,
			WorkDir: dir,
			Dir:     "supabase",
			Subdir:  "docker",
			Branch:  "main",
		},
		SearXNG: searxng.Config{
			SettingsPath:     filepath.Join(dir, "searxng", "settings.yml"),
			SettingsBasePath: filepath.Join(dir, "searxng", "settings-base.yml"),
			Placeholder:      "ultrasecretkey",
			ComposeFile:      filepath.Join(dir, "docker-compose.yml"),
			InitMarker:       "/etc/searxng/uwsgi.ini",
			NameFilter:       h.project + "-searxng",
		},
		// Every destructive path is scoped to names under this project
		// so a failing test can never reach real containers.
		Cleanup: dockercli.Config{
			ProjectFilter: h.project,
			AppFilter:     h.project + "-app",
			AppPort:       "59999",
			ConflictProne: []string{h.project + "-stray"},
			Known:         []string{h.project + "-stray"},
		},
		Runner:  h.runner,
		Journal: h.journal,
		Logger:  log.New(os.Stderr),
		Out:     h.out,
	}

	return h
}

// pipeline builds a fresh pipeline from the harness config, the way every
// CLI invocation builds its own.
func (h *harness) pipeline() *bootstrap.Pipeline {
	return bootstrap.New(h.cfg)
}

// initOrigin creates the local dependency repository the pipeline clones
// from. Filters must be allowed explicitly for file:// transports.
func (h *harness) initOrigin() {
	h.t.Helper()

	require.NoError(h.t, os.MkdirAll(filepath.Join(h.origin, "docker"), 0o755))
	writeFile(h.t, filepath.Join(h.origin, "docker", "docker-compose.yml"), fixtureSupabaseCompose)

	h.mustRun("git", "init", "--initial-branch=main")
	h.mustRunIn(h.origin, "git", "config", "uploadpack.allowfilter", "true")
	h.mustRunIn(h.origin, "git", "add", "-A")
	h.mustRunIn(h.origin, "git",
		"-c", "user.name=e2e", "-c", "user.email=e2e@example.com",
		"commit", "-m", "docker assets")
}

// mustRun executes a command in the origin directory through the same
// runner the pipeline uses.
func (h *harness) mustRun(argv ...string) {
	h.t.Helper()
	h.mustRunIn(h.origin, argv...)
}

func (h *harness) mustRunIn(dir string, argv ...string) {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err := executor.Checked(ctx, h.runner, stack.Invocation{Argv: argv, Dir: dir})
	require.NoError(h.t, err, "command %v", argv)
}

// scrub force-removes everything the scratch project left on the daemon:
// compose-labeled containers, name-prefixed strays, and project networks.
func (h *harness) scrub() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	projectLabel := "com.docker.compose.project=" + h.project
	for _, f := range []filters.Args{
		filters.NewArgs(filters.Arg("label", projectLabel)),
		filters.NewArgs(filters.Arg("name", h.project)),
	} {
		containers, err := sdk.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
		if err != nil {
			continue
		}
		for _, c := range containers {
			_ = sdk.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true})
		}
	}

	networks, err := sdk.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("label", projectLabel)),
	})
	if err != nil {
		return
	}
	for _, n := range networks {
		_ = sdk.NetworkRemove(ctx, n.ID)
	}
}

// =============================================================================
// Daemon Assertions
// =============================================================================

// testContext bounds one test against a hung daemon or network pull.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	t.Cleanup(cancel)
	return ctx
}

// inspectService resolves a compose service of the project to its one
// container and inspects it.
func inspectService(project, service string) (container.InspectResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	list, err := sdk.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", "com.docker.compose.project="+project),
			filters.Arg("label", "com.docker.compose.service="+service),
		),
	})
	if err != nil {
		return container.InspectResponse{}, err
	}
	if len(list) == 0 {
		return container.InspectResponse{}, errNotFound(service)
	}
	return sdk.ContainerInspect(ctx, list[0].ID)
}

type errNotFound string

func (e errNotFound) Error() string { return "no container for service " + string(e) }

func mustInspectService(t *testing.T, project, service string) container.InspectResponse {
	t.Helper()
	resp, err := inspectService(project, service)
	require.NoError(t, err, "inspecting service %s", service)
	return resp
}

// serviceExists reports whether any container, running or stopped, backs
// the service.
func serviceExists(t *testing.T, project, service string) bool {
	t.Helper()
	_, err := inspectService(project, service)
	return err == nil
}

// containerExists reports whether a container with the exact name exists.
func containerExists(t *testing.T, name string) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := sdk.ContainerInspect(ctx, name)
	if err != nil {
		require.True(t, client.IsErrNotFound(err), "inspecting %s: %v", name, err)
		return false
	}
	return true
}

// waitForRunning polls until the service's container reports running.
func waitForRunning(t *testing.T, project, service string, timeout time.Duration) {
	t.Helper()

	ok := Eventually(t, timeout, 500*time.Millisecond, func() bool {
		resp, err := inspectService(project, service)
		return err == nil && resp.State != nil && resp.State.Running
	})
	require.True(t, ok, "service %s did not reach running state", service)
}

// Eventually retries a condition function until it returns true or timeout.
func Eventually(t *testing.T, timeout, interval time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return false
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
