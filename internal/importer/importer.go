package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"contentsync/internal/api"
	"contentsync/internal/identity"
	"contentsync/internal/preflight"
	"contentsync/internal/reconcile"
	"contentsync/internal/runlog"
	"contentsync/internal/sanitize"
	"contentsync/internal/transfer"
)

// Options parameterizes a run. All historical import variants collapse into
// this one pipeline.
type Options struct {
	// Limit caps how many items are processed; zero means unlimited.
	Limit int
	// TitleFilter restricts the source set to items whose translation title
	// contains the substring.
	TitleFilter string
	// DryRun walks the full pipeline without writing.
	DryRun bool
	// HeuristicMatch enables fallback matching when no id mapping exists.
	HeuristicMatch bool
	// MappingCollection overrides the identity mapping store's collection.
	MappingCollection string
	// SeededFiles pre-resolves source file ids to target file ids, used by
	// bundle import after uploading bundled binaries.
	SeededFiles map[string]string
}

// Importer runs collection syncs between a source and a target handle.
type Importer struct {
	source *api.Client
	target *api.Client
	logger *slog.Logger
}

// New creates an Importer.
func New(source, target *api.Client, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{source: source, target: target, logger: logger}
}

// Run imports one collection from the source instance. The returned result
// reports Success=false only when the source token is rejected or the source
// fetch fails; partial and even total item failure is a normal outcome.
func (im *Importer) Run(ctx context.Context, collection string, opts Options) *runlog.RunResult {
	recorder := runlog.NewRecorder(im.logger)
	result := im.begin(recorder, collection, opts)

	check := preflight.ValidateToken(ctx, im.source)
	recorder.Record("token_check", map[string]any{"success": check.Success, "message": check.Message})
	if !check.Success {
		result.Message = "source credentials rejected: " + check.Message
		return im.finish(result, recorder)
	}

	items, err := im.fetchSource(ctx, collection, opts)
	if err != nil {
		result.Message = fmt.Sprintf("fetching %q from source failed: %s", collection, err.Error())
		recorder.Record("source_fetch_error", map[string]any{"error": err.Error()})
		return im.finish(result, recorder)
	}
	result.Success = true
	recorder.Record("source_fetched", map[string]any{"count": len(items)})

	if len(items) == 0 {
		if opts.TitleFilter != "" {
			result.Message = fmt.Sprintf("source collection %q is empty after title filter %q, nothing to import", collection, opts.TitleFilter)
		} else {
			result.Message = fmt.Sprintf("source collection %q is empty, nothing to import", collection)
		}
		return im.finish(result, recorder)
	}

	result.Items = im.RunItems(ctx, collection, items, opts, recorder)
	created, updated, failed := result.Counts()
	result.Message = summarize(len(items), created, updated, failed, opts.DryRun)
	if first := result.FirstError(); first != "" {
		result.Message += "; first error: " + first
	}
	return im.finish(result, recorder)
}

// RunItems drives prepared raw items through the reconciliation loop. Bundle
// import uses this entry point directly with SeededFiles set.
func (im *Importer) RunItems(ctx context.Context, collection string, items []map[string]any, opts Options, recorder *runlog.Recorder) []runlog.ItemResult {
	folderID := im.ensureFolder(ctx, collection, recorder, opts.DryRun)

	engine := transfer.NewEngine(im.source, im.target, folderID, recorder, im.logger)
	if len(opts.SeededFiles) > 0 {
		engine.SeedCache(opts.SeededFiles)
	}
	sanitizer := sanitize.New(im.target, im.logger)
	mapper := identity.NewMapper(im.target, opts.MappingCollection, im.logger)
	reconciler := reconcile.New(reconcile.Params{
		Collection:     collection,
		Target:         im.target,
		Mapper:         mapper,
		Sanitizer:      sanitizer,
		Engine:         engine,
		Recorder:       recorder,
		Logger:         im.logger,
		HeuristicMatch: opts.HeuristicMatch,
		DryRun:         opts.DryRun,
	})

	schema, err := sanitizer.LoadSchema(ctx, collection)
	if err != nil {
		recorder.Record("schema_load_error", map[string]any{"error": err.Error()})
		schema = sanitize.NewSchema(collection, nil, nil)
	}

	results := make([]runlog.ItemResult, 0, len(items))
	for _, raw := range items {
		if ctx.Err() != nil {
			recorder.Record("run_cancelled", map[string]any{"processed": len(results)})
			break
		}
		results = append(results, reconciler.Item(ctx, raw, schema))
	}
	return results
}

func (im *Importer) begin(recorder *runlog.Recorder, collection string, opts Options) *runlog.RunResult {
	result := &runlog.RunResult{
		RunID:      uuid.NewString(),
		Collection: collection,
		DryRun:     opts.DryRun,
		StartedAt:  time.Now().UTC(),
	}
	recorder.Record("run_started", map[string]any{
		"run_id":     result.RunID,
		"collection": collection,
		"dry_run":    opts.DryRun,
	})
	return result
}

func (im *Importer) finish(result *runlog.RunResult, recorder *runlog.Recorder) *runlog.RunResult {
	result.FinishedAt = time.Now().UTC()
	recorder.Record("run_finished", map[string]any{"message": result.Message})
	result.Log = recorder.Entries()
	return result
}

// fetchSource pulls the source page with translations expanded. The limit is
// re-applied client-side in case the backend ignored it.
func (im *Importer) fetchSource(ctx context.Context, collection string, opts Options) ([]map[string]any, error) {
	query := api.ListQuery{
		Limit:  opts.Limit,
		Fields: []string{"*", "translations.*"},
	}
	if opts.TitleFilter != "" {
		query.Filter = api.ContainsFilter("translations.title", opts.TitleFilter)
	}
	items, err := im.source.ListItems(ctx, collection, query)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

// ensureFolder provisions the collection-named file folder on the target.
// Failure degrades to no folder rather than aborting the run.
func (im *Importer) ensureFolder(ctx context.Context, collection string, recorder *runlog.Recorder, dryRun bool) string {
	if dryRun {
		return ""
	}
	folder, err := im.target.EnsureFolder(ctx, collection)
	if err != nil {
		recorder.Record("folder_error", map[string]any{
			"folder": collection,
			"error":  err.Error(),
		})
		return ""
	}
	recorder.Record("folder_ready", map[string]any{
		"folder": collection,
		"id":     folder.ID.String(),
	})
	return folder.ID.String()
}

func summarize(total, created, updated, failed int, dryRun bool) string {
	if dryRun {
		return fmt.Sprintf("dry run over %d items: %d would be created, %d would be updated, %d failed", total, created, updated, failed)
	}
	return fmt.Sprintf("processed %d items: %d created, %d updated, %d failed", total, created, updated, failed)
}
