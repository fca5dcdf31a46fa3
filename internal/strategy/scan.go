package strategy

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// mainFileNames are the entry-point style files surfaced by analysis.
var mainFileNames = map[string]bool{
	"main.py":          true,
	"app.py":           true,
	"index.js":         true,
	"package.json":     true,
	"requirements.txt": true,
	"README.md":        true,
}

// sourceExtensions are files whose contents are worth shipping to an LLM.
var sourceExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".java": true,
	".cpp": true, ".c": true, ".h": true, ".go": true, ".rs": true,
}

// maxInlineSize bounds how large a file may be to inline its content.
const maxInlineSize = 10 * 1024

// snapshot is a read-only view of a workspace used by both strategies.
type snapshot struct {
	Files     []string
	FileTypes map[string][]string
	MainFiles []string
	Contents  map[string]string // only populated when withContents is set
}

// scanWorkspace walks the workspace, skipping hidden files and
// directories (including .git), and returns a deterministic snapshot.
func scanWorkspace(root string, withContents bool) (*snapshot, error) {
	snap := &snapshot{
		FileTypes: make(map[string][]string),
		Contents:  make(map[string]string),
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		snap.Files = append(snap.Files, rel)

		ext := filepath.Ext(name)
		snap.FileTypes[ext] = append(snap.FileTypes[ext], rel)

		if mainFileNames[name] {
			snap.MainFiles = append(snap.MainFiles, rel)
		}

		if withContents && sourceExtensions[ext] {
			if info, err := d.Info(); err == nil && info.Size() < maxInlineSize {
				if data, err := os.ReadFile(path); err == nil {
					snap.Contents[rel] = string(data)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(snap.Files)
	sort.Strings(snap.MainFiles)
	for _, list := range snap.FileTypes {
		sort.Strings(list)
	}
	return snap, nil
}

// readWorkspaceFile reads a file addressed relative to the workspace root.
func readWorkspaceFile(root, rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
