package strategy

import (
	"context"

	"github.com/rs/zerolog"
)

// Fallback wraps a preferred strategy with a baseline. When the preferred
// strategy fails at any step, the same step runs on the baseline and the
// result is tagged as degraded with the failure as its cause. The wrapper
// only errors when the baseline itself errors.
type Fallback struct {
	preferred Strategy
	baseline  Strategy
	log       zerolog.Logger
}

func NewFallback(preferred, baseline Strategy, log zerolog.Logger) *Fallback {
	return &Fallback{preferred: preferred, baseline: baseline, log: log}
}

// Name reports the preferred strategy. Degradation is surfaced per result,
// not by renaming the strategy.
func (f *Fallback) Name() string { return f.preferred.Name() }

func (f *Fallback) Analyze(ctx context.Context, workspace, instruction string) (*Analysis, error) {
	analysis, err := f.preferred.Analyze(ctx, workspace, instruction)
	if err == nil {
		return analysis, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f.log.Warn().Err(err).
		Str("strategy", f.preferred.Name()).
		Msg("strategy analyze failed, falling back")

	analysis, baseErr := f.baseline.Analyze(ctx, workspace, instruction)
	if baseErr != nil {
		return nil, baseErr
	}
	analysis.Degraded = true
	analysis.Cause = err.Error()
	return analysis, nil
}

func (f *Fallback) Modify(ctx context.Context, workspace string, analysis *Analysis, instruction string) (ChangeSet, error) {
	// An analysis produced by the baseline is not a valid plan for the
	// preferred strategy; stay on the baseline for the rest of the run.
	if analysis != nil && analysis.Degraded {
		return f.baseline.Modify(ctx, workspace, analysis, instruction)
	}

	changes, err := f.preferred.Modify(ctx, workspace, analysis, instruction)
	if err == nil {
		return changes, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f.log.Warn().Err(err).
		Str("strategy", f.preferred.Name()).
		Msg("strategy modify failed, falling back")

	if analysis != nil {
		analysis.Degraded = true
		analysis.Cause = err.Error()
	}
	return f.baseline.Modify(ctx, workspace, analysis, instruction)
}
