// Package audit persists the event history of every run. Recording is
// best-effort: the pipeline never fails because the audit backend is down.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasnoah/promptsmith/internal/config"
	"github.com/lucasnoah/promptsmith/internal/event"
)

// Store records run events.
type Store interface {
	Record(ctx context.Context, runID string, ev event.Event) error
	Close() error
}

// DefaultPath returns ~/.promptsmith/audit.db, creating the directory if
// needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(home, ".promptsmith")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "audit.db"), nil
}

// Open builds the store selected by the configuration.
func Open(ctx context.Context, cfg config.Audit) (Store, error) {
	switch cfg.Backend {
	case "off":
		return Nop{}, nil
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			var err error
			if path, err = DefaultPath(); err != nil {
				return nil, err
			}
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
}

// Nop discards all events.
type Nop struct{}

func (Nop) Record(context.Context, string, event.Event) error { return nil }
func (Nop) Close() error                                      { return nil }
