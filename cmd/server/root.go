package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ridwanfathin/labellens-service/internal/config"
	"github.com/ridwanfathin/labellens-service/internal/logging"
)

// cliEnv is what every subcommand needs before it starts
type cliEnv struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	rt := &cliEnv{}

	cmd := &cobra.Command{
		Use:   "labellens",
		Short: "Offline-capable product label scanning service",
		Long: `LabelLens extracts product details from label photos.

Images selected while offline are queued durably and extracted by the
sync engine once connectivity returns. Running without a subcommand
starts the HTTP server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			rt.cfg = cfg
			rt.logger = logging.New(cfg.LogFormat, cfg.LogLevel)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rt)
		},
	}

	cmd.AddCommand(newServeCmd(rt))
	cmd.AddCommand(newSyncCmd(rt))
	cmd.AddCommand(newQueueCmd(rt))
	cmd.AddCommand(newMigrateCmd(rt))

	return cmd
}
