package strategy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestHeuristic_AnalyzeSkipsHiddenDirs(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "main.py", "def handle(request):\n    return 1\n")
	writeFile(t, ws, "lib/util.py", "def add(a, b):\n    return a + b\n")
	writeFile(t, ws, ".git/config", "[core]\n")
	writeFile(t, ws, "README.md", "# demo\n")

	h := NewHeuristic()
	analysis, err := h.Analyze(context.Background(), ws, "do something")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	want := []string{"README.md", "lib/util.py", "main.py"}
	if strings.Join(analysis.Files, ",") != strings.Join(want, ",") {
		t.Errorf("expected files %v, got %v", want, analysis.Files)
	}
	if len(analysis.FileTypes[".py"]) != 2 {
		t.Errorf("expected 2 python files, got %v", analysis.FileTypes[".py"])
	}
	if len(analysis.MainFiles) != 2 { // main.py and README.md
		t.Errorf("expected 2 main files, got %v", analysis.MainFiles)
	}
}

func TestHeuristic_ValidationRule(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "main.py", "def handle(request):\n    return 1\n")
	writeFile(t, ws, "test_main.py", "def test_handle(request):\n    pass\n")
	writeFile(t, ws, "plain.py", "x = 1\n")

	h := NewHeuristic()
	analysis, _ := h.Analyze(context.Background(), ws, "")
	changes, err := h.Modify(context.Background(), ws, analysis, "Add input validation")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}

	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	c := changes[0]
	if c.Op != OpEdit || c.Path != "main.py" {
		t.Errorf("unexpected change target: %+v", c)
	}
	if !strings.Contains(c.NewContent, "from typing import") {
		t.Errorf("expected typing import, got %q", c.NewContent)
	}
	if c.OldContent == c.NewContent {
		t.Error("edit must differ from original")
	}
}

func TestHeuristic_ErrorHandlingRule(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "svc.py", "def run():\n    return compute()\n")

	h := NewHeuristic()
	analysis, _ := h.Analyze(context.Background(), ws, "")
	changes, err := h.Modify(context.Background(), ws, analysis, "improve error handling")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}

	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if !strings.Contains(changes[0].NewContent, "except Exception") {
		t.Errorf("expected try/except insertion, got %q", changes[0].NewContent)
	}
}

func TestHeuristic_TestRule(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "main.py", "def run():\n    return 1\n")

	h := NewHeuristic()
	analysis, _ := h.Analyze(context.Background(), ws, "")
	changes, err := h.Modify(context.Background(), ws, analysis, "add tests")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}

	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	c := changes[0]
	if c.Op != OpCreate || c.Path != "test_main.py" {
		t.Errorf("unexpected change: %+v", c)
	}
	if !strings.Contains(c.NewContent, "unittest") {
		t.Errorf("expected unittest skeleton, got %q", c.NewContent)
	}
}

func TestHeuristic_CreateRules(t *testing.T) {
	ws := t.TempDir()

	h := NewHeuristic()
	analysis, _ := h.Analyze(context.Background(), ws, "")

	changes, err := h.Modify(context.Background(), ws, analysis, "Create a hello world python script")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(changes) != 1 || changes[0].Path != "hello.py" {
		t.Fatalf("expected hello.py creation, got %+v", changes)
	}

	changes, err = h.Modify(context.Background(), ws, analysis, "add a readme")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(changes) != 1 || changes[0].Path != "README.md" {
		t.Fatalf("expected README.md creation, got %+v", changes)
	}
}

func TestHeuristic_NoMatchingRule(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "main.py", "def run():\n    return 1\n")

	h := NewHeuristic()
	analysis, _ := h.Analyze(context.Background(), ws, "")
	changes, err := h.Modify(context.Background(), ws, analysis, "refactor the database layer")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %+v", changes)
	}
}
