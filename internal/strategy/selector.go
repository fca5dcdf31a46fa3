package strategy

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/lucasnoah/promptsmith/internal/config"
)

// Selector picks a strategy for a run. Selection never fails: when the
// requested provider is unknown or cannot be constructed, the heuristic
// baseline is returned with degraded=true and the cause recorded.
type Selector struct {
	cfg    *config.Config
	client *http.Client
	log    zerolog.Logger
}

func NewSelector(cfg *config.Config, client *http.Client, log zerolog.Logger) *Selector {
	if client == nil {
		client = http.DefaultClient
	}
	return &Selector{cfg: cfg, client: client, log: log}
}

// Select resolves a provider name and optional model override into a ready
// strategy. Hosted providers are wrapped so that runtime failures fall back
// to the baseline instead of aborting the run. Callers resolve configured
// defaults before calling; an empty provider means the baseline.
func (s *Selector) Select(provider, model string) (Strategy, bool, string) {
	if provider == "" || provider == "heuristic" {
		return NewHeuristic(), false, ""
	}

	sc, ok := s.cfg.Strategies[provider]
	if !ok {
		cause := fmt.Sprintf("unknown strategy provider %q", provider)
		s.log.Warn().Str("strategy", provider).Msg("unknown strategy provider, using heuristic")
		return NewHeuristic(), true, cause
	}
	if model != "" {
		sc.Model = model
	}

	llm, err := NewLLM(provider, sc, s.client)
	if err != nil {
		s.log.Warn().Err(err).
			Str("strategy", provider).
			Msg("strategy unavailable, using heuristic")
		return NewHeuristic(), true, err.Error()
	}
	return NewFallback(llm, NewHeuristic(), s.log), false, ""
}
