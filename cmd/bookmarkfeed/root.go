package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"bookmarkfeed/internal/config"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	logLevel   string
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "bookmarkfeed",
		Short: "Render a cached bookmark list as an HTML widget or feed",
		Long: `bookmarkfeed fetches a user's recent bookmarks from the bookmark
service, caches them, and renders them as an HTML widget or re-publishes
them as RSS, Atom and JSON feeds.

Example usage:
  bookmarkfeed render --account alice --tags go
  bookmarkfeed serve --config config.toml
  bookmarkfeed cache clear`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logger
			slog.SetDefault(logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.toml", "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newRenderCmd(opts),
		newServeCmd(opts),
		newCacheCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func (o *options) build(ctx context.Context) (*config.App, error) {
	o.logger.Debug("Loading configuration", "path", o.configPath)
	return config.LoadAndBuild(ctx, o.configPath, o.logger)
}
