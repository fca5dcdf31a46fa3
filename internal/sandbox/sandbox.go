// Package sandbox provides isolated workspaces for pipeline runs: a
// provisioning/execution/teardown contract, concrete local, docker and
// remote implementations, and a selector that degrades to the local
// baseline whenever a requested provider is unavailable.
package sandbox

import (
	"context"
	"time"
)

// Handle is the run-scoped reference to a provisioned workspace. It is
// exclusively owned by one pipeline run and must be released exactly once
// via the environment's Teardown.
type Handle struct {
	Dir      string // filesystem root of the checked-out repository
	Provider string // name of the environment that provisioned it
}

// RunResult is the outcome of executing a command in a workspace.
// A timeout is a distinct outcome, not an error, so callers can decide
// whether to continue degraded or abort.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Environment is the capability contract the pipeline engine needs from an
// execution backend.
type Environment interface {
	// Name identifies the provider ("local", "docker", "remote").
	Name() string

	// Provision clones the repository into a fresh isolated workspace.
	// On failure no usable handle is returned.
	Provision(ctx context.Context, repoURL, branch string) (*Handle, error)

	// Run executes a command inside the workspace, bounded by the
	// configured timeout and resource ceilings.
	Run(ctx context.Context, h *Handle, command string, args ...string) (*RunResult, error)

	// Teardown releases the workspace. It must tolerate an
	// already-removed workspace without error.
	Teardown(h *Handle) error
}

// Cloner abstracts repository cloning so environments don't depend on a
// concrete version-control implementation.
type Cloner interface {
	Clone(ctx context.Context, repoURL, branch, dir string) error
}

// Options carries the resource configuration shared by all providers.
type Options struct {
	Timeout        time.Duration
	MemoryLimitMB  int
	CPULimit       float64
	Image          string // docker only
	RemoteEndpoint string // remote only
	RemoteToken    string // remote only
}

// runTimeout returns the effective command timeout.
func (o Options) runTimeout() time.Duration {
	if o.Timeout <= 0 {
		return 5 * time.Minute
	}
	return o.Timeout
}
