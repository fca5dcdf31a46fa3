// Package engine drives a single pipeline run: provision an execution
// environment, run a change-generation strategy, apply the resulting
// changes, and commit/push/publish them when possible. Progress streams to
// the caller as an ordered event sequence with exactly one terminal event.
package engine

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lucasnoah/promptsmith/internal/audit"
	"github.com/lucasnoah/promptsmith/internal/config"
	"github.com/lucasnoah/promptsmith/internal/event"
	"github.com/lucasnoah/promptsmith/internal/sandbox"
	"github.com/lucasnoah/promptsmith/internal/strategy"
	"github.com/lucasnoah/promptsmith/internal/vcs"
)

// Request describes one pipeline run. Strategy, Model and Environment are
// optional; empty values fall back to the configured defaults.
type Request struct {
	RepoURL     string `json:"repoUrl"`
	Instruction string `json:"prompt"`
	Strategy    string `json:"strategy,omitempty"`
	Model       string `json:"model,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// Validate rejects requests the pipeline cannot act on.
func (r Request) Validate() error {
	if strings.TrimSpace(r.RepoURL) == "" {
		return fmt.Errorf("repoUrl is required")
	}
	if !strings.HasPrefix(r.RepoURL, "git@") {
		u, err := url.Parse(r.RepoURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("repoUrl %q is not a valid repository URL", r.RepoURL)
		}
	}
	if strings.TrimSpace(r.Instruction) == "" {
		return fmt.Errorf("prompt is required")
	}
	return nil
}

// EnvironmentSelector resolves an environment provider name, degrading to
// the local baseline instead of failing.
type EnvironmentSelector interface {
	Select(ctx context.Context, provider string, opts sandbox.Options) (sandbox.Environment, bool, string)
}

// StrategySelector resolves a strategy provider name, degrading to the
// heuristic baseline instead of failing.
type StrategySelector interface {
	Select(provider, model string) (strategy.Strategy, bool, string)
}

// PublisherFactory builds a publisher from a credential token.
type PublisherFactory func(ctx context.Context, token string) (vcs.Publisher, error)

// Options carries the engine's collaborators. Nil fields get production
// defaults; tests inject fakes.
type Options struct {
	Environments EnvironmentSelector
	Strategies   StrategySelector
	Git          vcs.Control
	NewPublisher PublisherFactory
	Audit        audit.Store
	Log          zerolog.Logger
}

// Engine runs pipeline requests.
type Engine struct {
	cfg          *config.Config
	defaults     config.Defaults
	envs         EnvironmentSelector
	strategies   StrategySelector
	git          vcs.Control
	newPublisher PublisherFactory
	audit        audit.Store
	log          zerolog.Logger
}

func New(cfg *config.Config, opts Options) *Engine {
	e := &Engine{
		cfg:          cfg,
		defaults:     cfg.Defaults,
		envs:         opts.Environments,
		strategies:   opts.Strategies,
		git:          opts.Git,
		newPublisher: opts.NewPublisher,
		audit:        opts.Audit,
		log:          opts.Log,
	}
	if e.git == nil {
		e.git = vcs.NewGit()
	}
	if e.envs == nil {
		e.envs = sandbox.NewSelector(vcs.NewGit(), nil, nil, e.log)
	}
	if e.strategies == nil {
		e.strategies = strategy.NewSelector(cfg, nil, e.log)
	}
	if e.newPublisher == nil {
		e.newPublisher = func(ctx context.Context, token string) (vcs.Publisher, error) {
			return vcs.NewGitHub(ctx, token)
		}
	}
	if e.audit == nil {
		e.audit = audit.Nop{}
	}
	return e
}

// streamBuffer decouples the producer from a slow consumer without letting
// a dead consumer pin the run forever.
const streamBuffer = 64

// Run starts a pipeline run and returns its event stream. The stream is
// closed after the terminal event, or when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, req Request) *event.Stream {
	s := event.NewStream(streamBuffer)
	go e.run(ctx, req, s)
	return s
}

func (e *Engine) run(ctx context.Context, req Request, s *event.Stream) {
	runID := uuid.NewString()
	log := e.log.With().Str("run_id", runID).Str("repo", req.RepoURL).Logger()
	start := time.Now()

	// emit records and publishes one event. A false return means the
	// consumer is gone or the run is cancelled: stop advancing, the
	// deferred teardown still runs.
	emit := func(ev event.Event) bool {
		if err := e.audit.Record(ctx, runID, ev); err != nil {
			log.Debug().Err(err).Msg("audit record failed")
		}
		return s.Publish(ctx, ev)
	}

	if err := req.Validate(); err != nil {
		emit(event.Event{Type: event.Error, Message: err.Error(), Fatal: true})
		return
	}

	// Resolve omitted fields against the defaults snapshot taken at
	// construction. The live config's defaults may be mutated by the
	// config endpoint while a run is in flight.
	if req.Strategy == "" {
		req.Strategy = e.defaults.Strategy
	}
	if req.Model == "" {
		req.Model = e.defaults.Model
	}
	if req.Environment == "" {
		req.Environment = e.defaults.Environment
	}

	if !emit(event.Event{
		Type:    event.Info,
		Message: "Received coding request",
		RepoURL: req.RepoURL,
		Prompt:  req.Instruction,
	}) {
		return
	}

	// Environment selection never fails; unavailability degrades to local.
	env, envDegraded, envCause := e.envs.Select(ctx, req.Environment, e.sandboxOptions())
	if envDegraded {
		if !emit(event.Event{
			Type:     event.Warning,
			Message:  fmt.Sprintf("Environment unavailable, using local: %s", envCause),
			Degraded: true,
			Cause:    envCause,
		}) {
			return
		}
	}

	if !emit(event.Event{Type: event.Progress, Message: "Cloning repository..."}) {
		return
	}
	provisionCtx, cancel := context.WithTimeout(ctx, e.stageTimeout())
	handle, err := env.Provision(provisionCtx, req.RepoURL, "")
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("provision failed")
		emit(event.Event{
			Type:    event.Error,
			Message: fmt.Sprintf("Failed to clone repository: %v", err),
			Fatal:   true,
		})
		return
	}
	// Teardown exactly once, on every exit path from here on.
	defer func() {
		if err := env.Teardown(handle); err != nil {
			log.Warn().Err(err).Msg("teardown failed")
		}
	}()

	if !emit(event.Event{Type: event.Success, Message: "Repository cloned"}) {
		return
	}

	strat, stratDegraded, stratCause := e.strategies.Select(req.Strategy, req.Model)
	if stratDegraded {
		if !emit(event.Event{
			Type:     event.Warning,
			Message:  fmt.Sprintf("Strategy unavailable, using heuristic: %s", stratCause),
			Degraded: true,
			Cause:    stratCause,
		}) {
			return
		}
	}
	if !emit(event.Event{Type: event.Info, Message: fmt.Sprintf("Strategy ready: %s", strat.Name())}) {
		return
	}

	if !emit(event.Event{Type: event.Progress, Message: "Analyzing codebase..."}) {
		return
	}
	analyzeCtx, cancel := context.WithTimeout(ctx, e.stageTimeout())
	analysis, err := strat.Analyze(analyzeCtx, handle.Dir, req.Instruction)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("analyze failed")
		emit(event.Event{
			Type:    event.Error,
			Message: fmt.Sprintf("Failed to analyze repository: %v", err),
			Fatal:   true,
		})
		return
	}
	if analysis.Degraded {
		if !emit(event.Event{
			Type:     event.Warning,
			Message:  fmt.Sprintf("Strategy failed, fell back to heuristic: %s", analysis.Cause),
			Degraded: true,
			Cause:    analysis.Cause,
		}) {
			return
		}
	}
	if !emit(event.Event{
		Type:    event.Info,
		Message: fmt.Sprintf("Analysis complete. Found %d files.", len(analysis.Files)),
	}) {
		return
	}

	if !emit(event.Event{Type: event.Progress, Message: "Generating changes..."}) {
		return
	}
	wasDegraded := analysis.Degraded
	modifyCtx, cancel := context.WithTimeout(ctx, e.stageTimeout())
	changes, err := strat.Modify(modifyCtx, handle.Dir, analysis, req.Instruction)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("modify failed")
		emit(event.Event{
			Type:    event.Error,
			Message: fmt.Sprintf("Failed to generate changes: %v", err),
			Fatal:   true,
		})
		return
	}
	// The strategy may fall back during modification and tag the analysis
	// after the fact; surface that the same way as an analyze-time fallback.
	if analysis.Degraded && !wasDegraded {
		if !emit(event.Event{
			Type:     event.Warning,
			Message:  fmt.Sprintf("Strategy failed, fell back to heuristic: %s", analysis.Cause),
			Degraded: true,
			Cause:    analysis.Cause,
		}) {
			return
		}
	}

	// Apply changes in sequence order. A failed write is a warning for
	// that file only; application is non-transactional.
	var applied []string
	for _, change := range changes {
		if err := applyChange(handle.Dir, change); err != nil {
			log.Warn().Err(err).Str("path", change.Path).Msg("change application failed")
			if !emit(event.Event{
				Type:    event.Warning,
				Message: fmt.Sprintf("Failed to apply change to %s: %v", change.Path, err),
			}) {
				return
			}
			continue
		}
		desc := change.Description
		if desc == "" {
			desc = fmt.Sprintf("Modified %s", change.Path)
		}
		applied = append(applied, desc)
		if !emit(event.Event{Type: event.Change, Message: desc}) {
			return
		}
	}

	if len(applied) == 0 {
		log.Info().Dur("elapsed", time.Since(start)).Msg("run complete, no changes")
		emit(event.Event{Type: event.Done, Message: "No changes were made for this prompt."})
		return
	}

	// Publication sub-sequence. Branch or commit failure abandons
	// publication but the run still reaches done.
	branch := vcs.BranchName(req.Instruction)
	if !emit(event.Event{Type: event.Progress, Message: "Creating git branch..."}) {
		return
	}
	if err := e.git.CreateBranch(handle.Dir, branch); err != nil {
		log.Error().Err(err).Str("branch", branch).Msg("branch creation failed")
		if !emit(event.Event{Type: event.Error, Message: fmt.Sprintf("Failed to create branch: %v", err)}) {
			return
		}
		emit(doneLocal(applied))
		return
	}
	if !emit(event.Event{Type: event.Success, Message: fmt.Sprintf("Created branch: %s", branch)}) {
		return
	}

	if !emit(event.Event{Type: event.Progress, Message: "Committing changes..."}) {
		return
	}
	if _, err := e.git.Commit(handle.Dir, vcs.CommitMessage(req.Instruction)); err != nil {
		log.Error().Err(err).Msg("commit failed")
		if !emit(event.Event{Type: event.Error, Message: fmt.Sprintf("Failed to commit changes: %v", err)}) {
			return
		}
		emit(doneLocal(applied))
		return
	}
	if !emit(event.Event{Type: event.Success, Message: "Changes committed"}) {
		return
	}

	token := os.Getenv(e.tokenEnv())
	if token == "" {
		if !emit(event.Event{Type: event.Warning, Message: "No GitHub token provided. Skipping PR creation."}) {
			return
		}
		log.Info().Dur("elapsed", time.Since(start)).Msg("run complete, local only")
		emit(event.Event{
			Type:    event.Done,
			Message: fmt.Sprintf("Changes applied locally. Set %s to create PR.", e.tokenEnv()),
			Changes: applied,
		})
		return
	}

	if !emit(event.Event{Type: event.Progress, Message: "Pushing branch to remote..."}) {
		return
	}
	pushCtx, cancel := context.WithTimeout(ctx, e.stageTimeout())
	err = e.git.Push(pushCtx, handle.Dir, branch, token)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("push failed")
		if !emit(event.Event{Type: event.Error, Message: fmt.Sprintf("Failed to push branch: %v", err)}) {
			return
		}
		emit(doneLocal(applied))
		return
	}
	if !emit(event.Event{Type: event.Success, Message: "Branch pushed to remote"}) {
		return
	}

	if !emit(event.Event{Type: event.Progress, Message: "Creating pull request..."}) {
		return
	}
	prURL, err := e.publish(ctx, token, req, branch, env.Name(), strat.Name(), analysis, applied)
	if err != nil {
		log.Error().Err(err).Msg("publish failed")
		if !emit(event.Event{Type: event.Error, Message: fmt.Sprintf("Failed to create PR: %v", err)}) {
			return
		}
		emit(doneLocal(applied))
		return
	}
	if !emit(event.Event{Type: event.Success, Message: "Pull request created!", PullRequestURL: prURL}) {
		return
	}

	log.Info().Dur("elapsed", time.Since(start)).Str("pr_url", prURL).Msg("run complete")
	emit(event.Event{
		Type:           event.Done,
		Message:        "Process completed successfully!",
		PullRequestURL: prURL,
		Changes:        applied,
	})
}

func (e *Engine) publish(ctx context.Context, token string, req Request, branch, envName, stratName string, analysis *strategy.Analysis, applied []string) (string, error) {
	publisher, err := e.newPublisher(ctx, token)
	if err != nil {
		return "", err
	}
	body := vcs.PRBody(vcs.PRBodyInput{
		Instruction: req.Instruction,
		Strategy:    stratName,
		Model:       req.Model,
		Environment: envName,
		Degraded:    analysis.Degraded,
		Rationale:   analysis.Rationale,
		Approach:    analysis.Approach,
		Changes:     applied,
	})
	publishCtx, cancel := context.WithTimeout(ctx, e.stageTimeout())
	defer cancel()
	return publisher.Publish(publishCtx, req.RepoURL, vcs.PullRequest{
		Title: vcs.PRTitle(req.Instruction),
		Body:  body,
		Head:  branch,
		Base:  e.cfg.GitHub.BaseBranch,
	})
}

func doneLocal(applied []string) event.Event {
	return event.Event{
		Type:    event.Done,
		Message: "Changes applied locally but not published.",
		Changes: applied,
	}
}

func (e *Engine) sandboxOptions() sandbox.Options {
	sb := e.cfg.Sandbox
	return sandbox.Options{
		Timeout:        e.cfg.SandboxTimeout(),
		MemoryLimitMB:  sb.MemoryLimitMB,
		CPULimit:       sb.CPULimit,
		Image:          sb.DockerImage,
		RemoteEndpoint: sb.RemoteEndpoint,
		RemoteToken:    os.Getenv(sb.RemoteTokenEnv),
	}
}

func (e *Engine) stageTimeout() time.Duration {
	return e.cfg.SandboxTimeout()
}

func (e *Engine) tokenEnv() string {
	if e.cfg.GitHub.TokenEnv != "" {
		return e.cfg.GitHub.TokenEnv
	}
	return "GITHUB_TOKEN"
}
