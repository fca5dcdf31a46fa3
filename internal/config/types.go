package config

// Config is the top-level configuration structure parsed from promptsmith YAML.
type Config struct {
	Server     Server                    `yaml:"server"`
	Defaults   Defaults                  `yaml:"defaults"`
	Strategies map[string]StrategyConfig `yaml:"strategies"`
	Sandbox    Sandbox                   `yaml:"sandbox"`
	GitHub     GitHub                    `yaml:"github"`
	Audit      Audit                     `yaml:"audit"`
	Logging    Logging                   `yaml:"logging"`
}

// Server holds HTTP server settings.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Defaults selects the strategy and environment used by requests that
// don't specify their own.
type Defaults struct {
	Strategy    string `yaml:"strategy"`
	Model       string `yaml:"model"`
	Environment string `yaml:"environment"`
}

// StrategyConfig configures a hosted change-generation provider.
type StrategyConfig struct {
	Model       string  `yaml:"model"`
	Endpoint    string  `yaml:"endpoint"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Sandbox configures workspace provisioning and command execution limits.
type Sandbox struct {
	Timeout        string  `yaml:"timeout"`
	MemoryLimitMB  int     `yaml:"memory_limit_mb"`
	CPULimit       float64 `yaml:"cpu_limit"`
	DockerImage    string  `yaml:"docker_image"`
	RemoteEndpoint string  `yaml:"remote_endpoint"`
	RemoteTokenEnv string  `yaml:"remote_token_env"`
}

// GitHub holds publication settings. The token itself is read from the
// named environment variable, never from the config file.
type GitHub struct {
	TokenEnv   string `yaml:"token_env"`
	BaseBranch string `yaml:"base_branch"`
}

// Audit configures the run-event audit log.
type Audit struct {
	Backend     string `yaml:"backend"` // "sqlite", "postgres", "off"
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}
