package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridwanfathin/labellens-service/internal/database"
	"github.com/ridwanfathin/labellens-service/internal/repository"
)

func newMigrateCmd(rt *cliEnv) *cobra.Command {
	var ordersOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema",
		Long: `Applies the embedded migrations for the Postgres store
(POSTGRES_DB_URL) and the order tables (ORDERS_DB_URL) when configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger := rt.cfg, rt.logger

			if !ordersOnly {
				if cfg.PostgresDBURL == "" {
					return fmt.Errorf("POSTGRES_DB_URL is not set")
				}
				db, err := database.NewPostgresDB(ctx, cfg.PostgresDBURL)
				if err != nil {
					return err
				}
				defer db.Close()

				applied, err := db.Migrate(ctx, logger)
				if err != nil {
					return err
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "store schema is up to date")
				}
			}

			if cfg.OrdersDBURL != "" {
				db, err := repository.OpenOrderDB(cfg.OrdersDBURL)
				if err != nil {
					return err
				}
				if err := closeGorm(db)(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "order tables migrated")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ordersOnly, "orders-only", false, "Only migrate the order tables")

	return cmd
}
