package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentsync/internal/bundle"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		source instanceFlags
		limit  int
		filter string
		expand bool
	)

	cmd := &cobra.Command{
		Use:   "export <collection> <dir>",
		Short: "Export a collection and its files into a bundle directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, dir := args[0], args[1]
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			sourceClient, err := ctx.buildClient("source", cfg.Source, source)
			if err != nil {
				return err
			}

			stats, err := bundle.NewExporter(sourceClient, logger).
				Export(cmd.Context(), collection, dir, bundle.ExportOptions{
					Limit:           limit,
					TitleFilter:     filter,
					ExpandRelations: expand,
				})
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items and %d files from %q to %s\n",
				stats.Items, stats.Files, stats.Collection, stats.Dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&source.url, "source-url", "", "Source instance base URL (overrides config)")
	cmd.Flags().StringVar(&source.token, "source-token", "", "Source instance token (overrides config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of items to export (0 = all)")
	cmd.Flags().StringVar(&filter, "filter", "", "Only export items whose translation title contains this substring")
	cmd.Flags().BoolVar(&expand, "expand-relations", false, "Embed 1-level-deep related rows into the manifest")

	return cmd
}
