package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CmdRunner abstracts docker CLI invocation for testability.
type CmdRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs docker commands via exec.
type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("docker %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Docker provisions workspaces on the host and executes commands inside
// containers with memory and CPU ceilings. The configured image must have
// git available.
type Docker struct {
	cmd  CmdRunner
	opts Options
}

// NewDocker creates a docker environment and verifies the daemon is
// reachable. Construction fails when it is not, so the selector can
// degrade to the local baseline.
func NewDocker(ctx context.Context, cmd CmdRunner, opts Options) (*Docker, error) {
	if _, err := cmd.Run(ctx, "version", "--format", "{{.Server.Version}}"); err != nil {
		return nil, fmt.Errorf("docker daemon unavailable: %w", err)
	}
	return &Docker{cmd: cmd, opts: opts}, nil
}

func (d *Docker) Name() string { return "docker" }

// limitArgs returns the resource-ceiling flags shared by all container runs.
func (d *Docker) limitArgs() []string {
	args := []string{}
	if d.opts.MemoryLimitMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", d.opts.MemoryLimitMB))
	}
	if d.opts.CPULimit > 0 {
		args = append(args, "--cpus", fmt.Sprintf("%g", d.opts.CPULimit))
	}
	return args
}

// Provision creates a host temp directory and clones the repository into
// it from inside a container, so network and git run under the container's
// resource limits while the checkout stays visible to the engine.
func (d *Docker) Provision(ctx context.Context, repoURL, branch string) (*Handle, error) {
	dir, err := os.MkdirTemp("", "promptsmith-docker-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, d.opts.runTimeout())
	defer cancel()

	args := []string{"run", "--rm", "-v", dir + ":/workspace"}
	args = append(args, d.limitArgs()...)
	args = append(args, d.opts.Image, "git", "clone", "--depth", "1")
	if branch != "" {
		args = append(args, "-b", branch)
	}
	args = append(args, repoURL, "/workspace")

	if _, err := d.cmd.Run(runCtx, args...); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("clone %s in container: %w", repoURL, err)
	}

	return &Handle{Dir: dir, Provider: d.Name()}, nil
}

// Run executes a command inside a container with the workspace mounted.
func (d *Docker) Run(ctx context.Context, h *Handle, command string, cmdArgs ...string) (*RunResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, d.opts.runTimeout())
	defer cancel()

	args := []string{"run", "--rm", "-v", h.Dir + ":/workspace", "-w", "/workspace"}
	args = append(args, d.limitArgs()...)
	args = append(args, d.opts.Image, command)
	args = append(args, cmdArgs...)

	out, err := d.cmd.Run(runCtx, args...)
	res := &RunResult{Stdout: out}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if err != nil {
		// docker run exits with the container's exit code; the combined
		// output already carries the container's stderr.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = 1
		res.Stderr = err.Error()
		return res, nil
	}
	return res, nil
}

// Teardown removes the host-side workspace directory.
func (d *Docker) Teardown(h *Handle) error {
	if h == nil || h.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(h.Dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", h.Dir, err)
	}
	return nil
}
