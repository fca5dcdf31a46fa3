package cli

import (
	"github.com/spf13/cobra"

	"github.com/lucasnoah/promptsmith/internal/config"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var configFile string

var rootCmd = &cobra.Command{
	Use:   "promptsmith",
	Short: "promptsmith — prompt-driven code change pipeline",
	Long: `promptsmith takes a repository URL and a natural-language instruction,
provisions an isolated workspace, generates and applies code changes, and
optionally commits, pushes, and opens a pull request.

Run it as a service (promptsmith serve) streaming progress over SSE, or as
a one-shot pipeline (promptsmith run).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}
