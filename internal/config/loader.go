package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it fills in defaults for values the file doesn't set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./promptsmith.yaml, ~/.promptsmith/config.yaml.
// When none exists it returns a config with all defaults applied.
func LoadDefault() (*Config, error) {
	candidates := []string{"promptsmith.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".promptsmith", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills zero values with working defaults so that a bare
// config file (or none at all) still yields a runnable service.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}

	if cfg.Defaults.Strategy == "" {
		cfg.Defaults.Strategy = "heuristic"
	}
	if cfg.Defaults.Environment == "" {
		cfg.Defaults.Environment = "local"
	}

	if cfg.Strategies == nil {
		cfg.Strategies = make(map[string]StrategyConfig)
	}
	if _, ok := cfg.Strategies["anthropic"]; !ok {
		cfg.Strategies["anthropic"] = StrategyConfig{
			Model:       "claude-3-5-sonnet-20240620",
			Endpoint:    "https://api.anthropic.com/v1/messages",
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			MaxTokens:   4000,
			Temperature: 0.1,
		}
	}
	if _, ok := cfg.Strategies["openai"]; !ok {
		cfg.Strategies["openai"] = StrategyConfig{
			Model:       "gpt-4",
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   4000,
			Temperature: 0.1,
		}
	}

	if cfg.Sandbox.Timeout == "" {
		cfg.Sandbox.Timeout = "5m"
	}
	if cfg.Sandbox.MemoryLimitMB == 0 {
		cfg.Sandbox.MemoryLimitMB = 512
	}
	if cfg.Sandbox.CPULimit == 0 {
		cfg.Sandbox.CPULimit = 1.0
	}
	if cfg.Sandbox.DockerImage == "" {
		cfg.Sandbox.DockerImage = "python:3.9-slim"
	}

	if cfg.GitHub.TokenEnv == "" {
		cfg.GitHub.TokenEnv = "GITHUB_TOKEN"
	}
	if cfg.GitHub.BaseBranch == "" {
		cfg.GitHub.BaseBranch = "main"
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}
