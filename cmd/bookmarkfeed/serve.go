package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"bookmarkfeed/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the widget and bookmark feeds over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := opts.build(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if port == "" {
				port = app.Config.Server.Port
			}
			srv := server.New(server.Config{
				Port:      port,
				FeedTitle: app.Config.Server.FeedTitle,
				Logger:    opts.logger,
			}, app.Renderer)

			if err := srv.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			opts.logger.Info("Shutting down gracefully")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on instead of server.port")
	return cmd
}
