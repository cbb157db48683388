package main

import (
	"bookmarkfeed/internal/bookmarks"
	"bookmarkfeed/internal/widget"

	"github.com/spf13/cobra"
)

func newRenderCmd(opts *options) *cobra.Command {
	var (
		account string
		tags    string
		count   int
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the bookmark widget to stdout",
		Long: `Render the bookmark widget to stdout. When the bookmarks cannot be
loaded the placeholder message is rendered instead and the command still
succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.build(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			overrides := widget.Overrides{Account: account, Count: count}
			if cmd.Flags().Changed("tags") {
				overrides.Tags = &tags
			}

			err = app.Renderer.Render(cmd.Context(), cmd.OutOrStdout(), overrides)
			if err != nil && !bookmarks.IsNotConfigured(err) && !bookmarks.IsUpstreamError(err) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account to render instead of feed.account")
	cmd.Flags().StringVar(&tags, "tags", "", "tag filter instead of feed.tags")
	cmd.Flags().IntVar(&count, "count", 0, "number of bookmarks instead of feed.count")
	return cmd
}
