package main

import (
	"errors"

	"github.com/spf13/cobra"

	"contentsync/internal/bundle"
	"contentsync/internal/history"
	"contentsync/internal/importer"
)

func newBundleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Work with offline transfer bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newBundleImportCommand(ctx))
	return cmd
}

func newBundleImportCommand(ctx *commandContext) *cobra.Command {
	var (
		target     instanceFlags
		dryRun     bool
		heuristics bool
	)

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import a previously exported bundle into the target instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			targetClient, err := ctx.buildClient("target", cfg.Target, target)
			if err != nil {
				return err
			}

			store := openHistory(cmd, ctx)
			if store != nil {
				defer store.Close()
			}

			result, err := bundle.NewImporter(targetClient, logger).
				Import(cmd.Context(), dir, importer.Options{
					DryRun:            dryRun,
					HeuristicMatch:    heuristics || cfg.Sync.HeuristicMatch,
					MappingCollection: cfg.Sync.MappingCollection,
				})
			if err != nil {
				return err
			}

			saveRun(cmd, store, history.KindBundleImport, "bundle:"+dir, targetClient.BaseURL(), result)

			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			renderRunResult(cmd, result)
			if !result.Success {
				return errors.New(result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target.url, "target-url", "", "Target instance base URL (overrides config)")
	cmd.Flags().StringVar(&target.token, "target-token", "", "Target instance token (overrides config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Walk the pipeline without writing to the target")
	cmd.Flags().BoolVar(&heuristics, "heuristic-match", false, "Match existing items by url/path/slug/name/title when no id mapping exists")

	return cmd
}
