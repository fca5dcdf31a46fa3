package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasnoah/promptsmith/internal/strategy"
)

// applyChange writes one change into the workspace. Paths are confined to
// the workspace; a change must not escape it through "..".
func applyChange(dir string, c strategy.Change) error {
	if c.Path == "" {
		return fmt.Errorf("change has no path")
	}
	target := filepath.Join(dir, filepath.FromSlash(c.Path))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q escapes the workspace", c.Path)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(c.NewContent), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
