package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"contentsync/internal/api"
	"contentsync/internal/fileutil"
	"contentsync/internal/runlog"
	"contentsync/internal/value"
)

// Engine resolves source file references to target file ids.
type Engine struct {
	source   *api.Client
	target   *api.Client
	folderID string
	recorder *runlog.Recorder
	logger   *slog.Logger
	runCache map[string]string
}

// NewEngine creates an Engine for one run. folderID may be empty when folder
// provisioning failed; uploads then land without a folder.
func NewEngine(source, target *api.Client, folderID string, recorder *runlog.Recorder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if recorder == nil {
		recorder = runlog.NewRecorder(logger)
	}
	return &Engine{
		source:   source,
		target:   target,
		folderID: folderID,
		recorder: recorder,
		logger:   logger,
		runCache: make(map[string]string),
	}
}

// SeedCache pre-populates the run-level cache, used by bundle import where
// binaries were uploaded ahead of item reconciliation.
func (e *Engine) SeedCache(resolved map[string]string) {
	for sourceID, targetID := range resolved {
		e.runCache[sourceID] = targetID
	}
}

// ItemContext carries per-item resolution state; create one per record and
// discard it when the record is done.
type ItemContext struct {
	ItemID   string
	Title    string
	Existing map[string]any

	itemCache map[string]string
	patched   map[string]bool
}

// NewItemContext creates resolution state for one record. existing is the
// target-side snapshot of the record's current counterpart, nil when none.
func (e *Engine) NewItemContext(itemID, title string, existing map[string]any) *ItemContext {
	return &ItemContext{
		ItemID:    itemID,
		Title:     title,
		Existing:  existing,
		itemCache: make(map[string]string),
		patched:   make(map[string]bool),
	}
}

// ResolveField inspects one field value and, when it references a source
// file, returns the replacement target file id. changed is false when the
// field is not a file reference or when resolution failed; the caller keeps
// the original source-scoped value in both cases.
func (e *Engine) ResolveField(ctx context.Context, item *ItemContext, field string, raw any) (newValue any, changed bool) {
	if _, isArray := raw.([]any); isArray {
		e.recorder.Record("file_field_skipped", map[string]any{
			"item":   item.ItemID,
			"field":  field,
			"reason": "array value (multi-file or junction relation)",
		})
		return raw, false
	}
	candidate := value.IDString(raw)
	if !plausibleFileID(candidate) {
		return raw, false
	}

	if targetID, ok := item.itemCache[candidate]; ok {
		return targetID, true
	}
	if targetID, ok := e.runCache[candidate]; ok {
		item.itemCache[candidate] = targetID
		return targetID, true
	}

	sourceFile, err := e.source.GetFile(ctx, candidate)
	if err != nil {
		if api.IsNotFound(err) {
			// Not a file id; leave the field as opaque data.
			return raw, false
		}
		e.recordCopyError(item, field, candidate, err)
		return raw, false
	}

	targetID, err := e.resolve(ctx, item, field, sourceFile)
	if err != nil {
		e.recordCopyError(item, field, candidate, err)
		return raw, false
	}
	item.itemCache[candidate] = targetID
	e.runCache[candidate] = targetID
	return targetID, true
}

func (e *Engine) resolve(ctx context.Context, item *ItemContext, field string, sourceFile *api.File) (string, error) {
	if reused := e.tryReuse(ctx, item, field, sourceFile); reused != "" {
		return reused, nil
	}
	return e.upload(ctx, item, sourceFile)
}

// tryReuse checks whether the existing target counterpart already holds a
// matching file in the same field. Checksum equality wins over size/type.
func (e *Engine) tryReuse(ctx context.Context, item *ItemContext, field string, sourceFile *api.File) string {
	if item.Existing == nil {
		return ""
	}
	existingID := value.IDString(item.Existing[field])
	if existingID == "" {
		return ""
	}
	targetFile, err := e.target.GetFile(ctx, existingID)
	if err != nil {
		e.logger.Debug("existing file lookup failed",
			slog.String("item", item.ItemID),
			slog.String("field", field),
			slog.String("error", err.Error()))
		return ""
	}
	if !filesMatch(sourceFile, targetFile) {
		return ""
	}
	e.alignMetadata(ctx, item, targetFile, sourceFile)
	e.recorder.Record("file_reused", map[string]any{
		"item":        item.ItemID,
		"field":       field,
		"source_file": sourceFile.ID,
		"target_file": targetFile.ID,
	})
	return targetFile.ID
}

// filesMatch prefers checksum comparison; when either checksum is missing it
// falls back to filesize, plus content type when both sides report one.
func filesMatch(sourceFile, targetFile *api.File) bool {
	if sourceFile.Checksum != "" && targetFile.Checksum != "" {
		return sourceFile.Checksum == targetFile.Checksum
	}
	if sourceFile.Filesize.Int64() == 0 || sourceFile.Filesize != targetFile.Filesize {
		return false
	}
	if sourceFile.Type != "" && targetFile.Type != "" && sourceFile.Type != targetFile.Type {
		return false
	}
	return true
}

// alignMetadata patches a reused file's title and folder at most once per
// file per item.
func (e *Engine) alignMetadata(ctx context.Context, item *ItemContext, targetFile, sourceFile *api.File) {
	if item.patched[targetFile.ID] {
		return
	}
	item.patched[targetFile.ID] = true

	patch := make(map[string]any)
	if title := preferredTitle(item, sourceFile); title != "" && title != targetFile.Title {
		patch["title"] = title
	}
	if e.folderID != "" && targetFile.Folder.String() != e.folderID {
		patch["folder"] = e.folderID
	}
	if len(patch) == 0 {
		return
	}
	if err := e.target.UpdateFile(ctx, targetFile.ID, patch); err != nil {
		e.logger.Debug("file metadata alignment failed",
			slog.String("file", targetFile.ID),
			slog.String("error", err.Error()))
	}
}

func (e *Engine) upload(ctx context.Context, item *ItemContext, sourceFile *api.File) (string, error) {
	data, contentType, err := e.source.DownloadAsset(ctx, sourceFile.ID)
	if err != nil {
		return "", fmt.Errorf("download asset %s: %w", sourceFile.ID, err)
	}
	if fileutil.IsGenericContentType(contentType) {
		if sourceFile.Type != "" && !fileutil.IsGenericContentType(sourceFile.Type) {
			contentType = sourceFile.Type
		} else {
			contentType = fileutil.ContentTypeByName(sourceFile.Filename)
		}
	}
	uploaded, err := e.target.UploadFile(ctx, api.UploadRequest{
		Data:        data,
		Filename:    sourceFile.Filename,
		ContentType: contentType,
		Title:       preferredTitle(item, sourceFile),
		FolderID:    e.folderID,
	})
	if err != nil {
		return "", fmt.Errorf("upload file %s: %w", sourceFile.ID, err)
	}
	e.recorder.Record("file_copied", map[string]any{
		"item":        item.ItemID,
		"source_file": sourceFile.ID,
		"target_file": uploaded.ID,
		"filename":    sourceFile.Filename,
	})
	return uploaded.ID, nil
}

// plausibleFileID gates the /files probe so long text and multi-word values
// are never sent as path segments.
func plausibleFileID(candidate string) bool {
	if candidate == "" || len(candidate) > 128 {
		return false
	}
	for _, r := range candidate {
		if r == ' ' || r == '\n' || r == '\t' || r == '/' {
			return false
		}
	}
	return true
}

func preferredTitle(item *ItemContext, sourceFile *api.File) string {
	if item.Title != "" {
		return item.Title
	}
	return sourceFile.Title
}

func (e *Engine) recordCopyError(item *ItemContext, field, fileID string, err error) {
	details := map[string]any{
		"item":  item.ItemID,
		"field": field,
		"file":  fileID,
		"error": err.Error(),
	}
	if status := api.StatusOf(err); status != 0 {
		details["http_status"] = status
	}
	e.recorder.Record("file_copy_error", details)
	e.logger.Warn("file copy failed",
		slog.String("item", item.ItemID),
		slog.String("field", field),
		slog.String("file", fileID),
		slog.String("error", err.Error()))
}
