package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, sub := range []string{"serve", "run", "config", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptsmith.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	configFile = path
	defer func() { configFile = "" }()

	out, err := executeCommand("config", "validate")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "valid") {
		t.Errorf("expected valid config message, got: %s", out)
	}
}

func TestConfigValidateBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptsmith.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	configFile = path
	defer func() { configFile = "" }()

	out, err := executeCommand("config", "validate")
	if err == nil {
		t.Fatalf("expected validation failure, got:\n%s", out)
	}
}

func TestConfigShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptsmith.yaml")
	if err := os.WriteFile(path, []byte("defaults:\n  strategy: anthropic\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	configFile = path
	defer func() { configFile = "" }()

	out, err := executeCommand("config", "show")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "anthropic") {
		t.Errorf("resolved config missing user value:\n%s", out)
	}
	if !strings.Contains(out, "8000") {
		t.Errorf("resolved config missing defaults:\n%s", out)
	}
}

func TestRunCommandRejectsBadArgs(t *testing.T) {
	if _, err := executeCommand("run", "only-one-arg"); err == nil {
		t.Error("expected error for missing instruction")
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := executeCommand("nonexistent"); err == nil {
		t.Error("expected error for unknown command, got nil")
	}
}
