package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedEnvironments is the set of valid sandbox provider names.
var recognizedEnvironments = map[string]bool{
	"local":  true,
	"docker": true,
	"remote": true,
}

// recognizedAuditBackends is the set of valid audit-log backends.
var recognizedAuditBackends = map[string]bool{
	"sqlite":   true,
	"postgres": true,
	"off":      true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be in 1..65535, got %d", cfg.Server.Port),
		})
	}

	if cfg.Defaults.Strategy != "heuristic" {
		if _, ok := cfg.Strategies[cfg.Defaults.Strategy]; !ok {
			errs = append(errs, ValidationError{
				Field:   "defaults.strategy",
				Message: fmt.Sprintf("references undefined strategy %q", cfg.Defaults.Strategy),
			})
		}
	}
	if !recognizedEnvironments[cfg.Defaults.Environment] {
		errs = append(errs, ValidationError{
			Field:   "defaults.environment",
			Message: fmt.Sprintf("unrecognized environment %q", cfg.Defaults.Environment),
		})
	}

	for name, sc := range cfg.Strategies {
		prefix := fmt.Sprintf("strategies.%s", name)
		if sc.Model == "" {
			errs = append(errs, ValidationError{Field: prefix + ".model", Message: "is required"})
		}
		if sc.MaxTokens < 0 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".max_tokens",
				Message: fmt.Sprintf("must be non-negative, got %d", sc.MaxTokens),
			})
		}
		if sc.Temperature < 0 || sc.Temperature > 2 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".temperature",
				Message: fmt.Sprintf("must be in 0..2, got %g", sc.Temperature),
			})
		}
	}

	if _, err := time.ParseDuration(cfg.Sandbox.Timeout); err != nil {
		errs = append(errs, ValidationError{
			Field:   "sandbox.timeout",
			Message: fmt.Sprintf("invalid duration %q", cfg.Sandbox.Timeout),
		})
	}
	if cfg.Sandbox.MemoryLimitMB < 0 {
		errs = append(errs, ValidationError{
			Field:   "sandbox.memory_limit_mb",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Sandbox.MemoryLimitMB),
		})
	}
	if cfg.Sandbox.CPULimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "sandbox.cpu_limit",
			Message: fmt.Sprintf("must be non-negative, got %g", cfg.Sandbox.CPULimit),
		})
	}

	if !recognizedAuditBackends[cfg.Audit.Backend] {
		errs = append(errs, ValidationError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("unrecognized backend %q", cfg.Audit.Backend),
		})
	}
	if cfg.Audit.Backend == "postgres" && cfg.Audit.DatabaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "audit.database_url",
			Message: "is required for the postgres backend",
		})
	}

	return errs
}

// SandboxTimeout returns the parsed sandbox timeout, falling back to five
// minutes when the configured value is unparseable.
func (c *Config) SandboxTimeout() time.Duration {
	d, err := time.ParseDuration(c.Sandbox.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}
