package transfer_test

import (
	"context"
	"testing"
	"time"

	"contentsync/internal/api"
	"contentsync/internal/logging"
	"contentsync/internal/runlog"
	"contentsync/internal/testsupport"
	"contentsync/internal/transfer"
)

type fixture struct {
	source   *testsupport.Instance
	target   *testsupport.Instance
	engine   *transfer.Engine
	recorder *runlog.Recorder
	cleanup  func()
}

func newFixture(t *testing.T, folderID string) *fixture {
	t.Helper()
	source := testsupport.NewInstance()
	target := testsupport.NewInstance()
	sourceSrv := source.Server()
	targetSrv := target.Server()

	newClient := func(baseURL string) *api.Client {
		client, err := api.New(api.Config{
			BaseURL:              baseURL,
			Logger:               logging.NewNop(),
			RetryAttempts:        1,
			RetryInitialInterval: time.Millisecond,
		})
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		return client
	}

	recorder := runlog.NewRecorder(logging.NewNop())
	engine := transfer.NewEngine(newClient(sourceSrv.URL), newClient(targetSrv.URL), folderID, recorder, logging.NewNop())
	return &fixture{
		source:   source,
		target:   target,
		engine:   engine,
		recorder: recorder,
		cleanup: func() {
			sourceSrv.Close()
			targetSrv.Close()
		},
	}
}

func (f *fixture) steps() []string {
	entries := f.recorder.Entries()
	steps := make([]string, 0, len(entries))
	for _, entry := range entries {
		steps = append(steps, entry.Step)
	}
	return steps
}

func hasStep(steps []string, want string) bool {
	for _, step := range steps {
		if step == want {
			return true
		}
	}
	return false
}

func TestResolveFieldUploadsAndCaches(t *testing.T) {
	f := newFixture(t, "")
	defer f.cleanup()
	f.source.AddFile(testsupport.StubFile{ID: "src-1", Filename: "photo.png", Type: "image/png", Data: []byte("png")})

	item := f.engine.NewItemContext("a1", "Alpha", nil)
	resolved, changed := f.engine.ResolveField(context.Background(), item, "hero", "src-1")
	if !changed {
		t.Fatal("expected a file reference to resolve")
	}
	targetID, _ := resolved.(string)
	if targetID == "" || targetID == "src-1" {
		t.Fatalf("expected a target file id, got %v", resolved)
	}
	if f.target.UploadCount() != 1 {
		t.Fatalf("expected one upload, got %d", f.target.UploadCount())
	}

	// Same file in another field of the same item: served from the item cache.
	again, changed := f.engine.ResolveField(context.Background(), item, "thumb", "src-1")
	if !changed || again != resolved {
		t.Fatalf("expected cached id %v, got %v", resolved, again)
	}

	// And from a later item, served from the run cache.
	other := f.engine.NewItemContext("a2", "Beta", nil)
	fromRun, changed := f.engine.ResolveField(context.Background(), other, "hero", "src-1")
	if !changed || fromRun != resolved {
		t.Fatalf("expected run-cached id %v, got %v", resolved, fromRun)
	}
	if f.target.UploadCount() != 1 {
		t.Fatalf("caches failed, %d uploads", f.target.UploadCount())
	}
}

func TestResolveFieldReusesByChecksum(t *testing.T) {
	f := newFixture(t, "")
	defer f.cleanup()
	f.source.AddFile(testsupport.StubFile{ID: "src-1", Filename: "photo.png", Checksum: "abc123", Filesize: 100, Data: []byte("png")})
	// Same checksum but a different recorded size: checksum equality wins.
	f.target.AddFile(testsupport.StubFile{ID: "tgt-9", Filename: "photo.png", Checksum: "abc123", Filesize: 999, Data: []byte("different")})

	item := f.engine.NewItemContext("a1", "Alpha", map[string]any{"hero": "tgt-9"})
	resolved, changed := f.engine.ResolveField(context.Background(), item, "hero", "src-1")
	if !changed || resolved != "tgt-9" {
		t.Fatalf("expected reuse of tgt-9, got %v (changed=%v)", resolved, changed)
	}
	if f.target.UploadCount() != 0 {
		t.Fatalf("reuse must not upload, got %d uploads", f.target.UploadCount())
	}
	if !hasStep(f.steps(), "file_reused") {
		t.Fatalf("expected a file_reused audit entry, steps: %v", f.steps())
	}
}

func TestResolveFieldReusesBySizeAndType(t *testing.T) {
	f := newFixture(t, "")
	defer f.cleanup()
	src := f.source.AddFile(testsupport.StubFile{ID: "src-1", Filename: "doc.pdf", Type: "application/pdf", Data: []byte("1234")})
	tgt := f.target.AddFile(testsupport.StubFile{ID: "tgt-9", Filename: "doc.pdf", Type: "application/pdf", Data: []byte("5678")})
	// No checksum on either side forces the size/type fallback.
	src.Checksum = ""
	tgt.Checksum = ""

	item := f.engine.NewItemContext("a1", "Alpha", map[string]any{"attachment": "tgt-9"})
	resolved, changed := f.engine.ResolveField(context.Background(), item, "attachment", "src-1")
	if !changed || resolved != "tgt-9" {
		t.Fatalf("expected size/type reuse of tgt-9, got %v (changed=%v)", resolved, changed)
	}
	if f.target.UploadCount() != 0 {
		t.Fatalf("reuse must not upload, got %d uploads", f.target.UploadCount())
	}
}

func TestResolveFieldUploadsWhenSizesDiffer(t *testing.T) {
	f := newFixture(t, "")
	defer f.cleanup()
	src := f.source.AddFile(testsupport.StubFile{ID: "src-1", Filename: "doc.pdf", Type: "application/pdf", Data: []byte("12345")})
	tgt := f.target.AddFile(testsupport.StubFile{ID: "tgt-9", Filename: "doc.pdf", Type: "application/pdf", Data: []byte("99")})
	src.Checksum = ""
	tgt.Checksum = ""

	item := f.engine.NewItemContext("a1", "Alpha", map[string]any{"attachment": "tgt-9"})
	resolved, changed := f.engine.ResolveField(context.Background(), item, "attachment", "src-1")
	if !changed {
		t.Fatal("expected resolution via upload")
	}
	if resolved == "tgt-9" {
		t.Fatal("mismatched files must not be reused")
	}
	if f.target.UploadCount() != 1 {
		t.Fatalf("expected an upload, got %d", f.target.UploadCount())
	}
}

func TestResolveFieldReuseAlignsMetadata(t *testing.T) {
	f := newFixture(t, "folder-7")
	defer f.cleanup()
	f.source.AddFile(testsupport.StubFile{ID: "src-1", Filename: "photo.png", Checksum: "abc", Data: []byte("png")})
	f.target.AddFile(testsupport.StubFile{ID: "tgt-9", Filename: "photo.png", Checksum: "abc", Title: "Old", Data: []byte("png")})

	item := f.engine.NewItemContext("a1", "New Title", map[string]any{"hero": "tgt-9"})
	if _, changed := f.engine.ResolveField(context.Background(), item, "hero", "src-1"); !changed {
		t.Fatal("expected reuse")
	}
	stored := f.target.Files["tgt-9"]
	if stored.Title != "New Title" {
		t.Fatalf("title not aligned: %q", stored.Title)
	}
	if stored.Folder != "folder-7" {
		t.Fatalf("folder not aligned: %q", stored.Folder)
	}
}

func TestResolveFieldSkipsArrays(t *testing.T) {
	f := newFixture(t, "")
	defer f.cleanup()

	item := f.engine.NewItemContext("a1", "Alpha", nil)
	raw := []any{map[string]any{"id": "x"}}
	resolved, changed := f.engine.ResolveField(context.Background(), item, "gallery", raw)
	if changed {
		t.Fatal("array values must not resolve")
	}
	if _, ok := resolved.([]any); !ok {
		t.Fatalf("array value must pass through, got %T", resolved)
	}
	if !hasStep(f.steps(), "file_field_skipped") {
		t.Fatalf("expected a file_field_skipped audit entry, steps: %v", f.steps())
	}
}

func TestResolveFieldLeavesOpaqueValues(t *testing.T) {
	f := newFixture(t, "")
	defer f.cleanup()

	item := f.engine.NewItemContext("a1", "Alpha", nil)
	for _, raw := range []any{
		"plain text with spaces",
		"not-a-file-id", // plausible shape, but the instance knows no such file
		nil,
		true,
	} {
		resolved, changed := f.engine.ResolveField(context.Background(), item, "body", raw)
		if changed {
			t.Fatalf("value %v must not resolve", raw)
		}
		if resolved == nil && raw != nil {
			t.Fatalf("value %v was dropped", raw)
		}
	}
	if f.target.UploadCount() != 0 {
		t.Fatalf("opaque values triggered %d uploads", f.target.UploadCount())
	}
}

func TestSeedCacheShortCircuitsResolution(t *testing.T) {
	f := newFixture(t, "")
	defer f.cleanup()
	f.engine.SeedCache(map[string]string{"src-1": "tgt-5"})

	item := f.engine.NewItemContext("a1", "Alpha", nil)
	resolved, changed := f.engine.ResolveField(context.Background(), item, "hero", "src-1")
	if !changed || resolved != "tgt-5" {
		t.Fatalf("expected seeded id tgt-5, got %v (changed=%v)", resolved, changed)
	}
	if f.target.UploadCount() != 0 {
		t.Fatalf("seeded resolution uploaded %d files", f.target.UploadCount())
	}
}

func TestResolveFieldRecordsCopyError(t *testing.T) {
	f := newFixture(t, "")
	defer f.cleanup()
	f.source.AddFile(testsupport.StubFile{ID: "src-1", Filename: "photo.png", Data: []byte("png")})
	// Uploads rejected: the field keeps its source value and the failure is
	// recorded, but the caller sees no error.
	f.target.Token = "locked"

	item := f.engine.NewItemContext("a1", "Alpha", nil)
	resolved, changed := f.engine.ResolveField(context.Background(), item, "hero", "src-1")
	if changed {
		t.Fatal("failed resolution must not report a change")
	}
	if resolved != "src-1" {
		t.Fatalf("failed resolution must keep the source value, got %v", resolved)
	}
	if !hasStep(f.steps(), "file_copy_error") {
		t.Fatalf("expected a file_copy_error audit entry, steps: %v", f.steps())
	}
}
