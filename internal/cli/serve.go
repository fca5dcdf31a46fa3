package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/promptsmith/internal/audit"
	"github.com/lucasnoah/promptsmith/internal/config"
	"github.com/lucasnoah/promptsmith/internal/engine"
	"github.com/lucasnoah/promptsmith/internal/logging"
	"github.com/lucasnoah/promptsmith/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pipeline service",
	Long: `Start the HTTP service. POST /code runs the pipeline and streams progress
as server-sent events; GET /health reports component availability.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			for _, e := range errs {
				cmd.PrintErrf("  - %s\n", e)
			}
			return fmt.Errorf("config has %d validation error(s)", len(errs))
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Server.Port = port
		}
		if host, _ := cmd.Flags().GetString("host"); host != "" {
			cfg.Server.Host = host
		}

		log := logging.New(cfg.Logging)

		store, err := audit.Open(cmd.Context(), cfg.Audit)
		if err != nil {
			log.Warn().Err(err).Msg("audit backend unavailable, events will not be recorded")
			store = audit.Nop{}
		}
		defer store.Close()

		eng := engine.New(cfg, engine.Options{Audit: store, Log: log})
		return web.NewServer(cfg, eng, log).Start()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().String("host", "", "Host to bind (overrides config)")
}
