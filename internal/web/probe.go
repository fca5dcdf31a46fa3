package web

import (
	"context"
	"os/exec"
	"time"
)

// probeDocker asks the local docker daemon for its version. A short timeout
// keeps health checks fast when the daemon is absent.
func probeDocker(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "version", "--format", "{{.Server.Version}}").Run()
}
