package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/promptsmith/internal/audit"
	"github.com/lucasnoah/promptsmith/internal/engine"
	"github.com/lucasnoah/promptsmith/internal/event"
	"github.com/lucasnoah/promptsmith/internal/logging"
)

var runCmd = &cobra.Command{
	Use:   "run <repo-url> <instruction>",
	Short: "Run the pipeline once and print its events",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logging.New(cfg.Logging)

		store, err := audit.Open(cmd.Context(), cfg.Audit)
		if err != nil {
			log.Warn().Err(err).Msg("audit backend unavailable, events will not be recorded")
			store = audit.Nop{}
		}
		defer store.Close()

		strategyName, _ := cmd.Flags().GetString("strategy")
		model, _ := cmd.Flags().GetString("model")
		environment, _ := cmd.Flags().GetString("environment")

		req := engine.Request{
			RepoURL:     args[0],
			Instruction: strings.Join(args[1:], " "),
			Strategy:    strategyName,
			Model:       model,
			Environment: environment,
		}
		if err := req.Validate(); err != nil {
			return err
		}

		eng := engine.New(cfg, engine.Options{Audit: store, Log: log})
		stream := eng.Run(cmd.Context(), req)

		var terminal *event.Event
		for ev := range stream.Events() {
			cmd.Printf("[%s] %s\n", ev.Type, ev.Message)
			if ev.PullRequestURL != "" {
				cmd.Printf("        %s\n", ev.PullRequestURL)
			}
			// The last done or error event decides the exit status. A
			// non-fatal error followed by done still exits clean.
			if ev.Type == event.Done || ev.Type == event.Error {
				last := ev
				terminal = &last
			}
		}

		if terminal == nil {
			return fmt.Errorf("run aborted before completion")
		}
		if terminal.Type == event.Error {
			return fmt.Errorf("run failed: %s", terminal.Message)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().String("strategy", "", "Strategy provider (heuristic, anthropic, openai)")
	runCmd.Flags().String("model", "", "Model override for the chosen strategy")
	runCmd.Flags().String("environment", "", "Execution environment (local, docker, remote)")
}
