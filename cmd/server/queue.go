package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

func newQueueCmd(rt *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the pending image queue",
	}
	cmd.AddCommand(newQueueListCmd(rt))
	return cmd
}

func newQueueListCmd(rt *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List images waiting for extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, rt.cfg, rt.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.queue.List(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILENAME\tSIZE\tENQUEUED\tBAG NO\tQUANTITY")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
					e.ID, e.Filename, e.Size, e.EnqueuedAt.Format(time.DateTime),
					e.Prefilled[domain.FieldBagNo], e.Prefilled[domain.FieldQuantity])
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d pending\n", len(entries))
			return nil
		},
	}
}
