package sandbox

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Selector chooses a concrete environment for a requested provider name,
// degrading to the local baseline when the request can't be satisfied.
// Selection never fails.
type Selector struct {
	cloner Cloner
	docker CmdRunner
	client *http.Client
	log    zerolog.Logger
}

// NewSelector creates a Selector. docker and client may be nil, in which
// case the exec-based docker CLI and http.DefaultClient are used.
func NewSelector(cloner Cloner, docker CmdRunner, client *http.Client, log zerolog.Logger) *Selector {
	if docker == nil {
		docker = &ExecRunner{}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Selector{cloner: cloner, docker: docker, client: client, log: log}
}

// Select returns an environment for the named provider. When the requested
// provider is unavailable it returns the local baseline with degraded=true
// and the failure cause.
func (s *Selector) Select(ctx context.Context, provider string, opts Options) (env Environment, degraded bool, cause string) {
	local := NewLocal(s.cloner, opts)

	switch provider {
	case "", "local":
		return local, false, ""

	case "docker":
		d, err := NewDocker(ctx, s.docker, opts)
		if err != nil {
			s.log.Warn().Err(err).Msg("docker environment unavailable, using local")
			return local, true, err.Error()
		}
		return d, false, ""

	case "remote":
		r, err := NewRemote(ctx, s.cloner, s.client, opts)
		if err != nil {
			s.log.Warn().Err(err).Msg("remote environment unavailable, using local")
			return local, true, err.Error()
		}
		return r, false, ""

	default:
		cause = fmt.Sprintf("unknown environment provider %q", provider)
		s.log.Warn().Str("provider", provider).Msg("unknown environment provider, using local")
		return local, true, cause
	}
}
