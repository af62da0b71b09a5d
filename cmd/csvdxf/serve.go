package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdxf/internal/core"
	"github.com/JonMunkholm/csvdxf/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the review pages and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			return a.withService(cmd.Context(), func(svc *core.Service) error {
				slog.Info("configuration loaded",
					"addr", a.cfg.Server.Addr(),
					"engine", a.cfg.Inference.Engine,
					"store", a.cfg.Store.Driver,
					"run_max_concurrent", a.cfg.Run.MaxConcurrent,
				)

				server := web.NewServer(svc, a.cfg)

				errCh := make(chan error, 1)
				go func() {
					slog.Info("server starting", "addr", a.cfg.Server.Addr())
					errCh <- server.Start()
				}()

				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				case <-cmd.Context().Done():
				}

				slog.Info("shutting down...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
				defer cancel()

				// Let in-flight conversions finish before closing the store.
				if status := svc.LimiterStatus(); status.Active > 0 {
					slog.Info("waiting for runs to complete", "active", status.Active)
					if err := svc.WaitForRuns(shutdownCtx); err != nil {
						slog.Warn("runs did not complete in time", "error", err)
					} else {
						slog.Info("all runs completed")
					}
				}

				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("shutdown error", "error", err)
					return err
				}
				slog.Info("server stopped")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Interface to bind (overrides SERVER_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides SERVER_PORT)")
	return cmd
}
