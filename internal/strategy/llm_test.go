package strategy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lucasnoah/promptsmith/internal/config"
)

// anthropicStub replies to every completion request with the given text in
// the messages API response shape.
func anthropicStub(t *testing.T, reply func(r *http.Request) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			t.Error("expected x-api-key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("expected anthropic-version header")
		}
		resp := map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": reply(r)}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestNewLLM_MissingCredentials(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewLLM("anthropic", config.StrategyConfig{}, nil)
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Errorf("error should name the env var, got %v", err)
	}
}

func TestNewLLM_UnsupportedProvider(t *testing.T) {
	_, err := NewLLM("mistral", config.StrategyConfig{}, nil)
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestLLM_AnalyzeParsesPlan(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	srv := anthropicStub(t, func(r *http.Request) string {
		return "Here is the plan:\n```json\n" +
			`{"files_to_modify": ["main.py"], "analysis": "needs validation", "approach": "add typing", "dependencies": [], "risks": ["none"]}` +
			"\n```"
	})
	defer srv.Close()

	ws := t.TempDir()
	writeFile(t, ws, "main.py", "def handle(request):\n    return 1\n")

	llm, err := NewLLM("anthropic", config.StrategyConfig{Endpoint: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	analysis, err := llm.Analyze(context.Background(), ws, "add validation")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(analysis.FilesToModify) != 1 || analysis.FilesToModify[0] != "main.py" {
		t.Errorf("unexpected plan: %+v", analysis.FilesToModify)
	}
	if analysis.Rationale != "needs validation" || analysis.Approach != "add typing" {
		t.Errorf("unexpected analysis fields: %+v", analysis)
	}
	if len(analysis.Files) != 1 {
		t.Errorf("snapshot files should be carried, got %v", analysis.Files)
	}
}

func TestLLM_AnalyzeRejectsGarbage(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	srv := anthropicStub(t, func(r *http.Request) string { return "I cannot help with that." })
	defer srv.Close()

	llm, err := NewLLM("anthropic", config.StrategyConfig{Endpoint: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := llm.Analyze(context.Background(), t.TempDir(), "do things"); err == nil {
		t.Fatal("expected parse error for non-JSON reply")
	}
}

func TestLLM_ModifyRewritesFiles(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	srv := anthropicStub(t, func(r *http.Request) string {
		return "```python\ndef handle(request):\n    validate(request)\n    return 1\n```"
	})
	defer srv.Close()

	ws := t.TempDir()
	original := "def handle(request):\n    return 1\n"
	writeFile(t, ws, "main.py", original)

	llm, err := NewLLM("anthropic", config.StrategyConfig{Endpoint: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	changes, err := llm.Modify(context.Background(), ws, &Analysis{FilesToModify: []string{"main.py"}}, "add validation")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	c := changes[0]
	if c.Op != OpEdit || c.Path != "main.py" || c.OldContent != original {
		t.Errorf("unexpected change: %+v", c)
	}
	if strings.Contains(c.NewContent, "```") {
		t.Errorf("fences must be stripped, got %q", c.NewContent)
	}
	if !strings.Contains(c.NewContent, "validate(request)") {
		t.Errorf("expected rewritten body, got %q", c.NewContent)
	}
}

func TestLLM_ModifyCreatesMissingFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	srv := anthropicStub(t, func(r *http.Request) string { return "print('hi')\n" })
	defer srv.Close()

	llm, err := NewLLM("anthropic", config.StrategyConfig{Endpoint: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	changes, err := llm.Modify(context.Background(), t.TempDir(), &Analysis{FilesToModify: []string{"hello.py"}}, "add hello")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if len(changes) != 1 || changes[0].Op != OpCreate {
		t.Fatalf("expected a create change, got %+v", changes)
	}
}

func TestLLM_ServerErrorSurfaces(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	llm, err := NewLLM("openai", config.StrategyConfig{Endpoint: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := llm.Analyze(context.Background(), t.TempDir(), "anything"); err == nil {
		t.Fatal("expected error on 5xx")
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain text", "plain text"},
		{"```\ncode\n```", "code"},
		{"```python\ncode\n```", "code"},
		{"  ```go\nline1\nline2\n```  ", "line1\nline2"},
	}
	for _, c := range cases {
		if got := stripFences(c.in); got != c.want {
			t.Errorf("stripFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
