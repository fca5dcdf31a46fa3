package sandbox

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

type mockCloner struct {
	calls []cloneCall
	err   error
}

type cloneCall struct {
	RepoURL string
	Branch  string
	Dir     string
}

func (m *mockCloner) Clone(ctx context.Context, repoURL, branch, dir string) error {
	m.calls = append(m.calls, cloneCall{RepoURL: repoURL, Branch: branch, Dir: dir})
	return m.err
}

func TestLocal_ProvisionAndTeardown(t *testing.T) {
	cloner := &mockCloner{}
	env := NewLocal(cloner, Options{})

	h, err := env.Provision(context.Background(), "https://github.com/org/repo", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Provider != "local" {
		t.Errorf("expected provider local, got %q", h.Provider)
	}
	if len(cloner.calls) != 1 || cloner.calls[0].Dir != h.Dir {
		t.Fatalf("expected one clone into %s, got %+v", h.Dir, cloner.calls)
	}
	if _, err := os.Stat(h.Dir); err != nil {
		t.Fatalf("workspace missing: %v", err)
	}

	if err := env.Teardown(h); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if _, err := os.Stat(h.Dir); !os.IsNotExist(err) {
		t.Error("workspace should be removed")
	}
	// Double teardown must not raise.
	if err := env.Teardown(h); err != nil {
		t.Errorf("second teardown: %v", err)
	}
}

func TestLocal_ProvisionCloneFailure(t *testing.T) {
	cloner := &mockCloner{err: errors.New("repository not found")}
	env := NewLocal(cloner, Options{})

	h, err := env.Provision(context.Background(), "https://github.com/org/missing", "main")
	if err == nil {
		t.Fatal("expected error")
	}
	if h != nil {
		t.Error("no usable handle should be returned on failure")
	}
	if !strings.Contains(err.Error(), "repository not found") {
		t.Errorf("error should carry the cause, got %v", err)
	}
	// The temp dir from the failed provision must not leak.
	if len(cloner.calls) == 1 {
		if _, statErr := os.Stat(cloner.calls[0].Dir); !os.IsNotExist(statErr) {
			t.Error("failed provision should remove its workspace")
		}
	}
}

func TestLocal_Run(t *testing.T) {
	env := NewLocal(&mockCloner{}, Options{Timeout: 30 * time.Second})
	h := &Handle{Dir: t.TempDir(), Provider: "local"}

	res, err := env.Run(context.Background(), h, "echo", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit 0, got %d", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("expected stdout hello, got %q", res.Stdout)
	}
}

func TestLocal_RunNonZeroExit(t *testing.T) {
	env := NewLocal(&mockCloner{}, Options{Timeout: 30 * time.Second})
	h := &Handle{Dir: t.TempDir(), Provider: "local"}

	res, err := env.Run(context.Background(), h, "sh", "-c", "exit 3")
	if err != nil {
		t.Fatalf("nonzero exit should not be an error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit 3, got %d", res.ExitCode)
	}
}

func TestLocal_RunTimeoutIsDistinctOutcome(t *testing.T) {
	env := NewLocal(&mockCloner{}, Options{Timeout: 50 * time.Millisecond})
	h := &Handle{Dir: t.TempDir(), Provider: "local"}

	res, err := env.Run(context.Background(), h, "sleep", "5")
	if err != nil {
		t.Fatalf("timeout should not be an error: %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut outcome")
	}
}
