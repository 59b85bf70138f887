package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd(rt *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one drain pass over the pending queue",
		Long: `Runs a single sync pass against the configured store, treating
connectivity as online, and prints the pass result as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, rt.cfg, rt.logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.engine.Trigger(ctx)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
