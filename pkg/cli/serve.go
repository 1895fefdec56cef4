package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tally/pkg/cli/config"
	controller "github.com/secmon-lab/tally/pkg/controller/http"
	"github.com/secmon-lab/tally/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		dashCfg   dashboardConfig
	)

	flags := joinFlags(
		serverCfg.Flags(),
		dashCfg.Flags(),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting tally server",
				slog.Any("server", serverCfg),
				slog.Any("warehouse", dashCfg.warehouse),
				slog.Any("cache", dashCfg.cache),
				slog.Any("charts", dashCfg.charts),
			)

			dashboard, cleanup, err := dashCfg.build(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			server, err := controller.NewServer(ctx, serverCfg.Addr, dashboard)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Load the dataset in the background so the first page view is fast
			async.Dispatch(ctx, "warm-dataset", func(ctx context.Context) error {
				page, err := dashboard.Page(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to warm dataset cache")
				}
				ctxlog.From(ctx).Info("Dataset loaded",
					"source", page.Source,
					"records", page.Records,
				)
				return nil
			})

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-serverErr:
				return goerr.Wrap(err, "HTTP server failed", goerr.V("addr", serverCfg.Addr))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
