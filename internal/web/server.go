// Package web exposes the pipeline over HTTP: a streaming run endpoint, a
// runtime configuration endpoint, and health/service-info endpoints.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lucasnoah/promptsmith/internal/config"
	"github.com/lucasnoah/promptsmith/internal/engine"
	"github.com/lucasnoah/promptsmith/internal/event"
)

// Runner starts pipeline runs. Satisfied by *engine.Engine.
type Runner interface {
	Run(ctx context.Context, req engine.Request) *event.Stream
}

// Prober reports whether an external component answers right now.
type Prober func(ctx context.Context) error

// Server is the HTTP front end.
type Server struct {
	runner Runner
	log    zerolog.Logger

	mu  sync.RWMutex
	cfg *config.Config

	// dockerProbe is swapped out in tests.
	dockerProbe Prober
}

func NewServer(cfg *config.Config, runner Runner, log zerolog.Logger) *Server {
	return &Server{
		runner:      runner,
		cfg:         cfg,
		log:         log,
		dockerProbe: probeDocker,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/code", s.handleCode)
	return mux
}

// Start serves until the listener fails.
func (s *Server) Start() error {
	s.mu.RLock()
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.mu.RUnlock()
	s.log.Info().Str("addr", addr).Msg("starting server")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "promptsmith",
		"endpoints": map[string]string{
			"POST /code":   "run the coding pipeline, streaming progress as SSE",
			"POST /config": "update default strategy and environment",
			"GET /health":  "component availability",
		},
	})
}

// handleCode starts a pipeline run and streams its events as SSE.
func (s *Server) handleCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Fill omitted fields from the current defaults here, under the lock,
	// since POST /config mutates them concurrently.
	s.mu.RLock()
	if req.Strategy == "" {
		req.Strategy = s.cfg.Defaults.Strategy
	}
	if req.Model == "" {
		req.Model = s.cfg.Defaults.Model
	}
	if req.Environment == "" {
		req.Environment = s.cfg.Defaults.Environment
	}
	s.mu.RUnlock()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if present

	stream := s.runner.Run(r.Context(), req)
	for ev := range stream.Events() {
		payload, err := json.Marshal(ev)
		if err != nil {
			s.log.Error().Err(err).Msg("event encoding failed")
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

// configUpdate is the accepted shape of POST /config.
type configUpdate struct {
	Strategy    *string `json:"strategy,omitempty"`
	Model       *string `json:"model,omitempty"`
	Environment *string `json:"environment,omitempty"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.RLock()
		defaults := s.cfg.Defaults
		s.mu.RUnlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"defaults": defaults})
	case http.MethodPost:
		var upd configUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		if upd.Strategy != nil {
			s.cfg.Defaults.Strategy = *upd.Strategy
		}
		if upd.Model != nil {
			s.cfg.Defaults.Model = *upd.Model
		}
		if upd.Environment != nil {
			s.cfg.Defaults.Environment = *upd.Environment
		}
		defaults := s.cfg.Defaults
		s.mu.Unlock()
		s.log.Info().
			Str("strategy", defaults.Strategy).
			Str("environment", defaults.Environment).
			Msg("defaults updated")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":  "Configuration updated",
			"defaults": defaults,
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	strategies := s.cfg.Strategies
	tokenEnv := s.cfg.GitHub.TokenEnv
	s.mu.RUnlock()

	components := map[string]string{}
	if err := s.dockerProbe(r.Context()); err != nil {
		components["docker"] = "not_available"
	} else {
		components["docker"] = "available"
	}
	for name, sc := range strategies {
		if sc.APIKeyEnv == "" {
			continue
		}
		if os.Getenv(sc.APIKeyEnv) != "" {
			components[name] = "available"
		} else {
			components[name] = "no_credentials"
		}
	}
	if tokenEnv == "" {
		tokenEnv = "GITHUB_TOKEN"
	}
	if os.Getenv(tokenEnv) != "" {
		components["github"] = "available"
	} else {
		components["github"] = "no_credentials"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"components": components,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
