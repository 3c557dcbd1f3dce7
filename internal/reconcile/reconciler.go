package reconcile

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"contentsync/internal/api"
	"contentsync/internal/identity"
	"contentsync/internal/runlog"
	"contentsync/internal/sanitize"
	"contentsync/internal/transfer"
	"contentsync/internal/value"
)

// heuristicFields is the fallback match order used only when heuristic
// matching is enabled and no identity mapping exists.
var heuristicFields = []string{"url", "path", "slug", "name", "title"}

// Params configures a Reconciler for one run.
type Params struct {
	Collection string
	Target     *api.Client
	Mapper     *identity.Mapper
	Sanitizer  *sanitize.Sanitizer
	Engine     *transfer.Engine
	Recorder   *runlog.Recorder
	Logger     *slog.Logger

	// HeuristicMatch enables fallback matching by url/path/slug/name/title
	// when no identity mapping exists. Off by default: heuristic merges can
	// pair unrelated rows.
	HeuristicMatch bool
	// DryRun suppresses all writes; results report the action that would
	// have been taken.
	DryRun bool
}

// Reconciler processes items one at a time against the target.
type Reconciler struct {
	params Params
	logger *slog.Logger
}

// New creates a Reconciler.
func New(params Params) *Reconciler {
	logger := params.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{params: params, logger: logger}
}

// Item reconciles one raw source record and always returns a result; errors
// become StatusError results rather than propagating.
func (r *Reconciler) Item(ctx context.Context, raw map[string]any, schema *sanitize.Schema) runlog.ItemResult {
	item := value.Ingest(raw)
	result := runlog.ItemResult{SourceID: item.ID}

	title := DeriveTitle(item)
	r.params.Recorder.Record("item_started", map[string]any{
		"item":  item.ID,
		"title": title,
	})

	targetID, existing := r.findExisting(ctx, item)

	// File resolution uploads binaries, so a dry run skips it entirely.
	if !r.params.DryRun {
		itemCtx := r.params.Engine.NewItemContext(item.ID, title, existing)
		for _, name := range item.FieldNames() {
			entry := item.Fields[name]
			if entry.Kind == value.KindTranslationList {
				continue
			}
			if resolved, changed := r.params.Engine.ResolveField(ctx, itemCtx, name, raw[name]); changed {
				item.Fields[name] = value.Classify(name, resolved)
			}
		}
	}

	payload := r.params.Sanitizer.Clean(item, schema)
	payload = r.params.Sanitizer.FillRequiredDefaults(ctx, payload, schema)
	r.params.Sanitizer.VerifyReferences(ctx, payload, schema)
	if translations := r.params.Sanitizer.NormalizeTranslations(ctx, item, schema); translations != nil {
		if field, ok := schema.TranslationsField(); ok {
			payload[field.Field] = translations
		}
	}

	if r.params.DryRun {
		action := runlog.ActionCreated
		if targetID != "" {
			action = runlog.ActionUpdated
		}
		result.Status = runlog.StatusSuccess
		result.Action = action
		result.TargetID = targetID
		r.params.Recorder.Record("item_dry_run", map[string]any{
			"item":   item.ID,
			"action": string(action),
		})
		return result
	}

	writtenID, action, err := r.write(ctx, targetID, payload)
	if err != nil {
		result.Status = runlog.StatusError
		result.Error = itemError(err)
		r.params.Recorder.Record("item_error", map[string]any{
			"item":  item.ID,
			"error": result.Error.Message,
		})
		return result
	}

	result.Status = runlog.StatusSuccess
	result.Action = action
	result.TargetID = writtenID
	r.params.Mapper.Upsert(ctx, r.params.Collection, item.ID, writtenID)
	r.params.Recorder.Record("item_written", map[string]any{
		"item":   item.ID,
		"target": writtenID,
		"action": string(action),
	})
	return result
}

// findExisting resolves the item's current target counterpart. The identity
// mapping is authoritative; a snapshot fetch failure degrades to "no
// snapshot" so file comparison is simply skipped.
func (r *Reconciler) findExisting(ctx context.Context, item value.Item) (string, map[string]any) {
	if targetID, ok := r.params.Mapper.Lookup(ctx, r.params.Collection, item.ID); ok {
		snapshot, err := r.params.Target.GetItem(ctx, r.params.Collection, targetID, nil)
		if err != nil {
			r.logger.Debug("existing item snapshot unavailable",
				slog.String("item", item.ID),
				slog.String("target", targetID),
				slog.String("error", err.Error()))
			return targetID, nil
		}
		return targetID, snapshot
	}
	if !r.params.HeuristicMatch {
		return "", nil
	}
	return r.heuristicLookup(ctx, item)
}

// heuristicLookup tries url > path > slug > name > title in order; a field
// matches only when exactly one target row carries the same value.
func (r *Reconciler) heuristicLookup(ctx context.Context, item value.Item) (string, map[string]any) {
	for _, field := range heuristicFields {
		entry, ok := item.Fields[field]
		if !ok || entry.Kind != value.KindPrimitive {
			continue
		}
		needle, ok := value.UnwrapString(entry.Primitive)
		if !ok || needle == "" {
			continue
		}
		rows, err := r.params.Target.ListItems(ctx, r.params.Collection, api.ListQuery{
			Limit:  2,
			Filter: api.EqFilter(field, needle),
		})
		if err != nil || len(rows) != 1 {
			continue
		}
		targetID := value.IDString(rows[0]["id"])
		if targetID == "" {
			continue
		}
		r.params.Recorder.Record("heuristic_match", map[string]any{
			"item":   item.ID,
			"field":  field,
			"target": targetID,
		})
		return targetID, rows[0]
	}
	return "", nil
}

// write commits the payload: update when a counterpart exists, with a create
// fallback when the mapped row has vanished; plain create otherwise.
func (r *Reconciler) write(ctx context.Context, targetID string, payload map[string]any) (string, runlog.Action, error) {
	if targetID != "" {
		updated, err := r.params.Target.UpdateItem(ctx, r.params.Collection, targetID, payload)
		if err == nil {
			if id := value.IDString(updated["id"]); id != "" {
				return id, runlog.ActionUpdated, nil
			}
			return targetID, runlog.ActionUpdated, nil
		}
		r.logger.Warn("update failed, falling back to create",
			slog.String("target", targetID),
			slog.String("error", err.Error()))
	}
	created, err := r.params.Target.CreateItem(ctx, r.params.Collection, payload)
	if err != nil {
		return "", "", err
	}
	return value.IDString(created["id"]), runlog.ActionCreated, nil
}

func itemError(err error) *runlog.ItemError {
	itemErr := &runlog.ItemError{Message: err.Error()}
	if status := api.StatusOf(err); status != 0 {
		itemErr.HTTPStatus = status
	}
	if detail := api.DetailOf(err); len(detail) > 0 {
		itemErr.Details = json.RawMessage(detail)
	}
	return itemErr
}
