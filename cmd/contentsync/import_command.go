package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"contentsync/internal/history"
	"contentsync/internal/importer"
	"contentsync/internal/runlog"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		source     instanceFlags
		target     instanceFlags
		limit      int
		filter     string
		dryRun     bool
		heuristics bool
	)

	cmd := &cobra.Command{
		Use:   "import <collection>",
		Short: "Import a collection from the source instance into the target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := args[0]
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
			targetClient, err := ctx.buildClient("target", cfg.Target, target)
			if err != nil {
				return err
			}

			opts := importer.Options{
				Limit:             limit,
				TitleFilter:       filter,
				DryRun:            dryRun,
				HeuristicMatch:    heuristics || cfg.Sync.HeuristicMatch,
				MappingCollection: cfg.Sync.MappingCollection,
			}

			// The history store's file lock doubles as the run lock, held
			// for the whole import.
			store := openHistory(cmd, ctx)
			if store != nil {
				defer store.Close()
			}

			result := importer.New(sourceClient, targetClient, logger).
				Run(cmd.Context(), collection, opts)

			saveRun(cmd, store, history.KindImport, sourceClient.BaseURL(), targetClient.BaseURL(), result)

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

	cmd.Flags().StringVar(&source.url, "source-url", "", "Source instance base URL (overrides config)")
	cmd.Flags().StringVar(&source.token, "source-token", "", "Source instance token (overrides config)")
	cmd.Flags().StringVar(&target.url, "target-url", "", "Target instance base URL (overrides config)")
	cmd.Flags().StringVar(&target.token, "target-token", "", "Target instance token (overrides config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of items to import (0 = all)")
	cmd.Flags().StringVar(&filter, "filter", "", "Only import items whose translation title contains this substring")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Walk the pipeline without writing to the target")
	cmd.Flags().BoolVar(&heuristics, "heuristic-match", false, "Match existing items by url/path/slug/name/title when no id mapping exists")

	return cmd
}

// openHistory opens the run-history store; failures warn rather than block
// the sync itself.
func openHistory(cmd *cobra.Command, ctx *commandContext) *history.Store {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: history unavailable: %v\n", err)
		return nil
	}
	return store
}

func saveRun(cmd *cobra.Command, store *history.Store, kind, sourceURL, targetURL string, result *runlog.RunResult) {
	if store == nil {
		return
	}
	created, updated, failed := result.Counts()
	run := history.Run{
		ID:         result.RunID,
		Kind:       kind,
		Collection: result.Collection,
		SourceURL:  sourceURL,
		TargetURL:  targetURL,
		Success:    result.Success,
		DryRun:     result.DryRun,
		Created:    created,
		Updated:    updated,
		Failed:     failed,
		Message:    result.Message,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	if err := store.RecordRun(cmd.Context(), run); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: run not recorded in history: %v\n", err)
	}
}
