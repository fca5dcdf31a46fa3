package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// Remote executes commands through an HTTP function-execution service.
// The checkout is staged locally so the engine can apply changes to it;
// command execution is delegated to the remote endpoint.
type Remote struct {
	cloner Cloner
	client *http.Client
	opts   Options
}

// NewRemote creates a remote environment and verifies the endpoint
// responds. Construction fails when no endpoint is configured or the
// health probe fails, so the selector can degrade to the local baseline.
func NewRemote(ctx context.Context, cloner Cloner, client *http.Client, opts Options) (*Remote, error) {
	if opts.RemoteEndpoint == "" {
		return nil, errors.New("remote endpoint not configured")
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.RemoteEndpoint+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("remote health request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote endpoint unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("remote endpoint unhealthy: %s", resp.Status)
	}

	return &Remote{cloner: cloner, client: client, opts: opts}, nil
}

func (r *Remote) Name() string { return "remote" }

// Provision stages a local checkout for the engine to edit.
func (r *Remote) Provision(ctx context.Context, repoURL, branch string) (*Handle, error) {
	dir, err := os.MkdirTemp("", "promptsmith-remote-")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	if err := r.cloner.Clone(ctx, repoURL, branch, dir); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("clone %s: %w", repoURL, err)
	}
	return &Handle{Dir: dir, Provider: r.Name()}, nil
}

type remoteExecRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

type remoteExecResponse struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out"`
}

// Run posts the command to the execution endpoint.
func (r *Remote) Run(ctx context.Context, h *Handle, command string, args ...string) (*RunResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.opts.runTimeout())
	defer cancel()

	body, err := json.Marshal(remoteExecRequest{Command: command, Args: args})
	if err != nil {
		return nil, fmt.Errorf("marshal exec request: %w", err)
	}

	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, r.opts.RemoteEndpoint+"/exec", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("exec request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.opts.RemoteToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.opts.RemoteToken)
	}

	resp, err := r.client.Do(req)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &RunResult{TimedOut: true, ExitCode: -1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("remote exec: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("remote exec: %s", resp.Status)
	}

	var decoded remoteExecResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode exec response: %w", err)
	}
	return &RunResult{
		Stdout:   decoded.Stdout,
		Stderr:   decoded.Stderr,
		ExitCode: decoded.ExitCode,
		TimedOut: decoded.TimedOut,
	}, nil
}

// Teardown removes the staged checkout.
func (r *Remote) Teardown(h *Handle) error {
	if h == nil || h.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(h.Dir); err != nil {
		return fmt.Errorf("remove workspace %s: %w", h.Dir, err)
	}
	return nil
}
