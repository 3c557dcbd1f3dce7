package bundle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"contentsync/internal/api"
	"contentsync/internal/fileutil"
	"contentsync/internal/importer"
	"contentsync/internal/runlog"
)

// Importer replays a bundle into a target instance.
type Importer struct {
	target *api.Client
	logger *slog.Logger
}

// NewImporter creates a bundle Importer.
func NewImporter(target *api.Client, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{target: target, logger: logger}
}

// Import uploads the bundle's binaries, rewrites file references, and runs
// the manifest items through the standard reconciliation path.
func (im *Importer) Import(ctx context.Context, dir string, opts importer.Options) (*runlog.RunResult, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	recorder := runlog.NewRecorder(im.logger)
	result := &runlog.RunResult{
		RunID:      uuid.NewString(),
		Collection: manifest.Collection,
		DryRun:     opts.DryRun,
		StartedAt:  time.Now().UTC(),
	}
	recorder.Record("bundle_import_started", map[string]any{
		"run_id":     result.RunID,
		"collection": manifest.Collection,
		"dir":        dir,
		"items":      len(manifest.Items),
	})

	fileMap := im.uploadFiles(ctx, dir, manifest.Collection, recorder, opts.DryRun)

	items := rewriteFileRefs(manifest.Items, fileMap)
	seeded := make(map[string]string, len(fileMap)*2)
	for sourceID, targetID := range fileMap {
		seeded[sourceID] = targetID
		// Rewritten fields now hold target ids; map those onto themselves so
		// the transfer engine's run cache short-circuits instead of
		// re-uploading.
		seeded[targetID] = targetID
	}
	opts.SeededFiles = seeded

	live := importer.New(im.target, im.target, im.logger)
	result.Items = live.RunItems(ctx, manifest.Collection, items, opts, recorder)
	result.Success = true
	created, updated, failed := result.Counts()
	result.Message = fmt.Sprintf("bundle import of %d items: %d created, %d updated, %d failed; %d files uploaded",
		len(items), created, updated, failed, len(fileMap))
	if first := result.FirstError(); first != "" {
		result.Message += "; first error: " + first
	}
	result.FinishedAt = time.Now().UTC()
	result.Log = recorder.Entries()
	return result, nil
}

// uploadFiles pushes every bundled binary to the target, skipping JSON
// control files so the manifest is never registered as a media asset. The
// returned map keys are the source file ids parsed from the leading filename
// segment before the first underscore.
func (im *Importer) uploadFiles(ctx context.Context, dir, collection string, recorder *runlog.Recorder, dryRun bool) map[string]string {
	fileMap := make(map[string]string)
	filesDir := filepath.Join(dir, FilesDir)
	entries, err := os.ReadDir(filesDir)
	if err != nil {
		recorder.Record("bundle_files_missing", map[string]any{"dir": filesDir, "error": err.Error()})
		return fileMap
	}

	folderID := ""
	if !dryRun {
		if folder, err := im.target.EnsureFolder(ctx, collection); err == nil {
			folderID = folder.ID.String()
		} else {
			recorder.Record("folder_error", map[string]any{"folder": collection, "error": err.Error()})
		}
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		sourceID, originalName, ok := splitBundleName(entry.Name())
		if !ok {
			recorder.Record("bundle_file_skipped", map[string]any{"file": entry.Name(), "reason": "no id segment"})
			continue
		}
		if dryRun {
			fileMap[sourceID] = sourceID
			continue
		}
		data, err := os.ReadFile(filepath.Join(filesDir, entry.Name()))
		if err != nil {
			recorder.Record("file_copy_error", map[string]any{"file": entry.Name(), "error": err.Error()})
			continue
		}
		uploaded, err := im.target.UploadFile(ctx, api.UploadRequest{
			Data:        data,
			Filename:    originalName,
			ContentType: fileutil.ContentTypeByName(originalName),
			FolderID:    folderID,
		})
		if err != nil {
			recorder.Record("file_copy_error", map[string]any{"file": entry.Name(), "error": err.Error()})
			continue
		}
		fileMap[sourceID] = uploaded.ID
		recorder.Record("file_copied", map[string]any{
			"source_file": sourceID,
			"target_file": uploaded.ID,
			"filename":    originalName,
		})
	}
	return fileMap
}

// splitBundleName parses "{sourceFileId}_{originalFilename}"; the id segment
// before the first underscore is load-bearing for the rewrite map.
func splitBundleName(name string) (id, original string, ok bool) {
	idx := strings.Index(name, "_")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

// rewriteFileRefs replaces source file ids with uploaded target ids across
// item fields, both plain strings and {id} objects.
func rewriteFileRefs(items []map[string]any, fileMap map[string]string) []map[string]any {
	if len(fileMap) == 0 {
		return items
	}
	rewritten := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out := make(map[string]any, len(item))
		for name, entry := range item {
			out[name] = rewriteValue(entry, fileMap)
		}
		rewritten = append(rewritten, out)
	}
	return rewritten
}

func rewriteValue(entry any, fileMap map[string]string) any {
	switch typed := entry.(type) {
	case string:
		if mapped, ok := fileMap[typed]; ok {
			return mapped
		}
	case map[string]any:
		if id, ok := typed["id"].(string); ok {
			if mapped, exists := fileMap[id]; exists {
				out := make(map[string]any, len(typed))
				for key, val := range typed {
					out[key] = val
				}
				out["id"] = mapped
				return out
			}
		}
	}
	return entry
}
