package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Local runs everything directly on the host filesystem. It is the
// guaranteed-available baseline every other provider degrades to.
type Local struct {
	cloner Cloner
	opts   Options
}

// NewLocal creates the baseline environment.
func NewLocal(cloner Cloner, opts Options) *Local {
	return &Local{cloner: cloner, opts: opts}
}

func (l *Local) Name() string { return "local" }

// Provision clones the repository into a fresh temp directory.
func (l *Local) Provision(ctx context.Context, repoURL, branch string) (*Handle, error) {
	dir, err := os.MkdirTemp("", "promptsmith-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	if err := l.cloner.Clone(ctx, repoURL, branch, dir); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("clone %s: %w", repoURL, err)
	}

	return &Handle{Dir: dir, Provider: l.Name()}, nil
}

// Run executes a command in the workspace with the configured timeout.
func (l *Local) Run(ctx context.Context, h *Handle, command string, args ...string) (*RunResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, l.opts.runTimeout())
	defer cancel()

	cmd := exec.CommandContext(runCtx, command, args...)
	cmd.Dir = h.Dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &RunResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("exec %s: %w", command, err)
	}
	return res, nil
}

// Teardown removes the workspace. Removing an already-removed directory is
// not an error.
func (l *Local) Teardown(h *Handle) error {
	if h == nil || h.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(h.Dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", h.Dir, err)
	}
	return nil
}
