package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ridwanfathin/labellens-service/internal/connectivity"
	"github.com/ridwanfathin/labellens-service/internal/handler"
	"github.com/ridwanfathin/labellens-service/internal/server"
)

func newServeCmd(rt *cliEnv) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the sync engine",
		Example: `  # Start on the configured PORT (default 8080)
  labellens serve

  # Start on a custom port with the in-memory store
  STORE_BACKEND=memory labellens serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				rt.cfg.Port = port
			}
			return runServe(cmd.Context(), rt)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides PORT)")

	return cmd
}

func runServe(ctx context.Context, rt *cliEnv) error {
	cfg, logger := rt.cfg, rt.logger

	a, err := newApp(ctx, cfg, logger, cfg.StartOnline)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("shutdown finished with errors")
		}
	}()

	handlers := server.Handlers{
		Scan:          handler.NewScanHandler(a.session),
		Queue:         handler.NewQueueHandler(a.queue, a.engine, a.monitor),
		Products:      handler.NewProductHandler(a.history, a.session, a.refs),
		Notifications: handler.NewNotificationHandler(a.feed),
	}
	if a.orders != nil {
		handlers.Orders = handler.NewOrderHandler(a.orders)
	}
	srv := server.NewServer(cfg, handlers, a.monitor, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.engine.Run(gctx)
	})
	if cfg.CheckAddr != "" {
		checker := connectivity.NewChecker(a.monitor, cfg.CheckAddr, cfg.CheckInterval, logger)
		g.Go(func() error {
			checker.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		return srv.Start(gctx)
	})

	return g.Wait()
}
