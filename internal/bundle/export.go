package bundle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"contentsync/internal/api"
	"contentsync/internal/fileutil"
	"contentsync/internal/value"
)

// ExportOptions parameterizes a bundle export.
type ExportOptions struct {
	Limit       int
	TitleFilter string
	// ExpandRelations embeds 1-level-deep related rows into the manifest's
	// relatedCollections map.
	ExpandRelations bool
}

// ExportStats summarizes what landed in the bundle.
type ExportStats struct {
	Collection string `json:"collection"`
	Items      int    `json:"items"`
	Files      int    `json:"files"`
	Dir        string `json:"dir"`
}

// Exporter writes bundles from a source instance.
type Exporter struct {
	source *api.Client
	logger *slog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(source *api.Client, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exporter{source: source, logger: logger}
}

// Export collects a collection and its referenced binaries into dir.
func (e *Exporter) Export(ctx context.Context, collection, dir string, opts ExportOptions) (*ExportStats, error) {
	query := api.ListQuery{
		Limit:  opts.Limit,
		Fields: []string{"*", "translations.*"},
	}
	if opts.TitleFilter != "" {
		query.Filter = api.ContainsFilter("translations.title", opts.TitleFilter)
	}
	items, err := e.source.ListItems(ctx, collection, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	filesDir := filepath.Join(dir, FilesDir)
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create bundle directory: %w", err)
	}

	manifest := &Manifest{
		Collection: collection,
		ExportedAt: time.Now().UTC(),
		Items:      items,
	}
	if opts.ExpandRelations {
		manifest.RelatedCollections = e.expandRelations(ctx, collection, items)
	}

	copied := make(map[string]bool)
	for _, raw := range items {
		item := value.Ingest(raw)
		for _, name := range item.FieldNames() {
			candidate := value.IDString(raw[name])
			if candidate == "" || copied[candidate] {
				continue
			}
			if ok := e.copyFile(ctx, candidate, filesDir); ok {
				copied[candidate] = true
			}
		}
	}

	if err := WriteManifest(dir, manifest); err != nil {
		return nil, err
	}
	return &ExportStats{
		Collection: collection,
		Items:      len(items),
		Files:      len(copied),
		Dir:        dir,
	}, nil
}

// copyFile probes whether candidate is a file id and, if so, stores its
// binary under files/. Anything unresolvable is left alone.
func (e *Exporter) copyFile(ctx context.Context, candidate, filesDir string) bool {
	meta, err := e.source.GetFile(ctx, candidate)
	if err != nil {
		if !api.IsNotFound(err) {
			e.logger.Warn("file probe failed", slog.String("file", candidate), slog.String("error", err.Error()))
		}
		return false
	}
	data, _, err := e.source.DownloadAsset(ctx, meta.ID)
	if err != nil {
		e.logger.Warn("asset download failed", slog.String("file", meta.ID), slog.String("error", err.Error()))
		return false
	}
	name := fmt.Sprintf("%s_%s", meta.ID, fileutil.SanitizeFilename(meta.Filename))
	if err := os.WriteFile(filepath.Join(filesDir, name), data, 0o644); err != nil {
		e.logger.Warn("bundle file write failed", slog.String("file", name), slog.String("error", err.Error()))
		return false
	}
	return true
}

// expandRelations embeds the rows behind exclusive relation fields, one
// level deep, deduplicated per related collection.
func (e *Exporter) expandRelations(ctx context.Context, collection string, items []map[string]any) map[string][]map[string]any {
	relations, err := e.source.ListRelations(ctx, collection)
	if err != nil {
		e.logger.Warn("relation metadata unavailable, skipping expansion", slog.String("error", err.Error()))
		return nil
	}
	expanded := make(map[string][]map[string]any)
	seen := make(map[string]bool)
	for _, relation := range relations {
		if relation.Collection != collection || !relation.Exclusive() || relation.RelatedCollection == "" {
			continue
		}
		for _, raw := range items {
			id := value.IDString(raw[relation.Field])
			if id == "" {
				continue
			}
			key := relation.RelatedCollection + "/" + id
			if seen[key] {
				continue
			}
			seen[key] = true
			row, err := e.source.GetItem(ctx, relation.RelatedCollection, id, nil)
			if err != nil {
				e.logger.Debug("related row fetch failed",
					slog.String("collection", relation.RelatedCollection),
					slog.String("id", id),
					slog.String("error", err.Error()))
				continue
			}
			expanded[relation.RelatedCollection] = append(expanded[relation.RelatedCollection], row)
		}
	}
	if len(expanded) == 0 {
		return nil
	}
	return expanded
}
