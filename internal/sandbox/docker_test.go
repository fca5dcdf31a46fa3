package sandbox

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

type mockDockerCmd struct {
	calls   [][]string
	results []mockCmdResult
	idx     int
}

type mockCmdResult struct {
	output string
	err    error
}

func (m *mockDockerCmd) Run(ctx context.Context, args ...string) (string, error) {
	m.calls = append(m.calls, args)
	if m.idx >= len(m.results) {
		return "", nil
	}
	r := m.results[m.idx]
	m.idx++
	return r.output, r.err
}

func TestNewDocker_DaemonUnavailable(t *testing.T) {
	cmd := &mockDockerCmd{results: []mockCmdResult{{err: errors.New("cannot connect to the docker daemon")}}}

	_, err := NewDocker(context.Background(), cmd, Options{Image: "python:3.9-slim"})
	if err == nil {
		t.Fatal("expected error when daemon is unreachable")
	}
	if !strings.Contains(err.Error(), "daemon") {
		t.Errorf("error should mention the daemon, got %v", err)
	}
}

func TestDocker_ProvisionClonesInContainer(t *testing.T) {
	cmd := &mockDockerCmd{results: []mockCmdResult{
		{output: "27.0.1"}, // version probe
		{output: ""},       // clone run
	}}

	d, err := NewDocker(context.Background(), cmd, Options{
		Image:         "python:3.9-slim",
		MemoryLimitMB: 1024,
		CPULimit:      2.0,
		Timeout:       time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, err := d.Provision(context.Background(), "https://github.com/org/repo", "main")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	defer d.Teardown(h)

	if h.Provider != "docker" {
		t.Errorf("expected provider docker, got %q", h.Provider)
	}

	clone := strings.Join(cmd.calls[1], " ")
	for _, want := range []string{
		"run --rm",
		"--memory 1024m",
		"--cpus 2",
		"python:3.9-slim git clone",
		"-b main https://github.com/org/repo /workspace",
	} {
		if !strings.Contains(clone, want) {
			t.Errorf("clone args missing %q: %s", want, clone)
		}
	}
}

func TestDocker_ProvisionFailureRemovesWorkspace(t *testing.T) {
	cmd := &mockDockerCmd{results: []mockCmdResult{
		{output: "27.0.1"},
		{err: errors.New("fatal: repository not found")},
	}}

	d, err := NewDocker(context.Background(), cmd, Options{Image: "python:3.9-slim"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, err := d.Provision(context.Background(), "https://github.com/org/missing", "main")
	if err == nil {
		t.Fatal("expected error")
	}
	if h != nil {
		t.Error("no handle should be returned on failure")
	}

	// The mounted host dir appears in the -v flag of the recorded call.
	mount := cmd.calls[1][3]
	dir := strings.TrimSuffix(mount, ":/workspace")
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Error("failed provision should remove its workspace")
	}
}

func TestDocker_RunMountsWorkspace(t *testing.T) {
	cmd := &mockDockerCmd{results: []mockCmdResult{
		{output: "27.0.1"},
		{output: "ok"},
	}}

	d, err := NewDocker(context.Background(), cmd, Options{Image: "python:3.9-slim", Timeout: time.Minute})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := &Handle{Dir: "/tmp/ws", Provider: "docker"}
	res, err := d.Run(context.Background(), h, "python", "main.py")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Stdout != "ok" || res.ExitCode != 0 {
		t.Errorf("unexpected result: %+v", res)
	}

	args := strings.Join(cmd.calls[1], " ")
	for _, want := range []string{"-v /tmp/ws:/workspace", "-w /workspace", "python main.py"} {
		if !strings.Contains(args, want) {
			t.Errorf("run args missing %q: %s", want, args)
		}
	}
}
