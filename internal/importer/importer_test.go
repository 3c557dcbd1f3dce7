package importer_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"contentsync/internal/api"
	"contentsync/internal/importer"
	"contentsync/internal/logging"
	"contentsync/internal/runlog"
	"contentsync/internal/testsupport"
)

func newClient(t *testing.T, baseURL, token string) *api.Client {
	t.Helper()
	client, err := api.New(api.Config{
		BaseURL:              baseURL,
		Token:                token,
		Logger:               logging.NewNop(),
		RetryAttempts:        1,
		RetryInitialInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func articleFields() []map[string]any {
	return []map[string]any{
		{"collection": "articles", "field": "id", "type": "uuid", "schema": map[string]any{"is_nullable": false}},
		{"collection": "articles", "field": "title", "type": "string", "schema": map[string]any{"is_nullable": true}},
		{"collection": "articles", "field": "slug", "type": "string", "schema": map[string]any{"is_nullable": true}},
		{"collection": "articles", "field": "hero", "type": "uuid", "schema": map[string]any{"is_nullable": true}, "meta": map[string]any{"special": []string{"file"}}},
		{"collection": "articles", "field": "thumb", "type": "uuid", "schema": map[string]any{"is_nullable": true}, "meta": map[string]any{"special": []string{"file"}}},
	}
}

// newTarget builds a target stub that knows the articles schema and carries
// an empty mapping store.
func newTarget() *testsupport.Instance {
	target := testsupport.NewInstance()
	target.Collections["articles"] = []map[string]any{}
	target.Collections["sync_id_map"] = []map[string]any{}
	target.FieldDefs["articles"] = articleFields()
	return target
}

func TestRunCreatesThenUpdates(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "title": "Alpha", "slug": "alpha"},
		{"id": "a2", "title": "Beta", "slug": "beta"},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())

	first := im.Run(context.Background(), "articles", importer.Options{})
	if !first.Success {
		t.Fatalf("first run failed: %s", first.Message)
	}
	created, updated, failed := first.Counts()
	if created != 2 || updated != 0 || failed != 0 {
		t.Fatalf("first run counts: created=%d updated=%d failed=%d", created, updated, failed)
	}
	if rows := target.Rows("articles"); len(rows) != 2 {
		t.Fatalf("expected 2 target rows, got %d", len(rows))
	}
	if rows := target.Rows("sync_id_map"); len(rows) != 2 {
		t.Fatalf("expected 2 mapping rows, got %d", len(rows))
	}

	second := im.Run(context.Background(), "articles", importer.Options{})
	if !second.Success {
		t.Fatalf("second run failed: %s", second.Message)
	}
	created, updated, failed = second.Counts()
	if created != 0 || updated != 2 || failed != 0 {
		t.Fatalf("second run counts: created=%d updated=%d failed=%d", created, updated, failed)
	}
	if rows := target.Rows("articles"); len(rows) != 2 {
		t.Fatalf("second run duplicated rows: got %d", len(rows))
	}
	if rows := target.Rows("sync_id_map"); len(rows) != 2 {
		t.Fatalf("second run duplicated mapping rows: got %d", len(rows))
	}
}

func TestRunUploadsSharedFileOnce(t *testing.T) {
	source := testsupport.NewInstance()
	source.AddFile(testsupport.StubFile{
		ID:       "f-1",
		Filename: "photo.png",
		Type:     "image/png",
		Data:     []byte("png-bytes"),
	})
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "title": "Alpha", "hero": "f-1", "thumb": "f-1"},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{})
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	if target.UploadCount() != 1 {
		t.Fatalf("expected exactly one upload, got %d", target.UploadCount())
	}
	rows := target.Rows("articles")
	if len(rows) != 1 {
		t.Fatalf("expected 1 target row, got %d", len(rows))
	}
	hero, _ := rows[0]["hero"].(string)
	thumb, _ := rows[0]["thumb"].(string)
	if hero == "" || hero != thumb {
		t.Fatalf("expected hero and thumb to share one target file, got hero=%q thumb=%q", hero, thumb)
	}
	if hero == "f-1" {
		t.Fatal("hero still references the source file id")
	}
}

func TestRunReusesExistingFileOnSecondRun(t *testing.T) {
	source := testsupport.NewInstance()
	source.AddFile(testsupport.StubFile{
		ID:       "f-1",
		Filename: "photo.png",
		Type:     "image/png",
		Data:     []byte("png-bytes"),
	})
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "title": "Alpha", "hero": "f-1"},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	if result := im.Run(context.Background(), "articles", importer.Options{}); !result.Success {
		t.Fatalf("first run failed: %s", result.Message)
	}
	if result := im.Run(context.Background(), "articles", importer.Options{}); !result.Success {
		t.Fatalf("second run failed: %s", result.Message)
	}
	if target.UploadCount() != 1 {
		t.Fatalf("second run re-uploaded unchanged file: %d uploads", target.UploadCount())
	}
}

func TestRunIsolatesItemFailures(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "title": "Alpha"},
		{"id": "a2", "title": "Beta"},
		{"id": "a3", "title": "Gamma"},
		{"id": "a4", "title": "Delta"},
		{"id": "a5", "title": "Epsilon"},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	target.CreateHook = func(collection string, payload map[string]any) (int, string) {
		if collection == "articles" && payload["title"] == "Gamma" {
			return 422, "Validation failed for field \"body\"."
		}
		return 0, ""
	}
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{})
	if !result.Success {
		t.Fatalf("partial failure must not fail the run: %s", result.Message)
	}
	if len(result.Items) != 5 {
		t.Fatalf("expected one result per source item, got %d", len(result.Items))
	}
	created, updated, failed := result.Counts()
	if created != 4 || updated != 0 || failed != 1 {
		t.Fatalf("counts: created=%d updated=%d failed=%d", created, updated, failed)
	}
	var itemErr *runlog.ItemError
	for _, item := range result.Items {
		if item.SourceID == "a3" {
			if item.Status != runlog.StatusError {
				t.Fatalf("expected a3 to fail, got status %q", item.Status)
			}
			itemErr = item.Error
		}
	}
	if itemErr == nil {
		t.Fatal("expected error detail on the failed item")
	}
	if itemErr.HTTPStatus != 422 {
		t.Fatalf("expected status 422 on item error, got %d", itemErr.HTTPStatus)
	}
	if !strings.Contains(result.Message, "first error") {
		t.Fatalf("summary should surface the first error, got %q", result.Message)
	}
}

func TestRunEmptyCollection(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{})
	if !result.Success {
		t.Fatalf("empty collection must succeed: %s", result.Message)
	}
	if !strings.Contains(result.Message, "empty") {
		t.Fatalf("message should say the collection is empty, got %q", result.Message)
	}
	if len(result.Items) != 0 {
		t.Fatalf("expected no item results, got %d", len(result.Items))
	}
}

func TestRunEmptyAfterTitleFilterEchoesFilter(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "translations": []any{map[string]any{"languages_code": "en-US", "title": "Welcome"}}},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{TitleFilter: "nonexistent"})
	if !result.Success {
		t.Fatalf("empty filtered result must succeed: %s", result.Message)
	}
	if !strings.Contains(result.Message, "nonexistent") {
		t.Fatalf("message should echo the filter term, got %q", result.Message)
	}
}

func TestRunTitleFilterSelectsSubset(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "translations": []any{map[string]any{"languages_code": "en-US", "title": "Welcome Page"}}},
		{"id": "a2", "translations": []any{map[string]any{"languages_code": "en-US", "title": "Contact"}}},
		{"id": "a3", "translations": []any{map[string]any{"languages_code": "en-US", "title": "Imprint"}}},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{TitleFilter: "welcome"})
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 filtered item, got %d", len(result.Items))
	}
	if result.Items[0].SourceID != "a1" {
		t.Fatalf("expected a1 to match, got %q", result.Items[0].SourceID)
	}
}

func TestRunLimitCapsItems(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "title": "Alpha"},
		{"id": "a2", "title": "Beta"},
		{"id": "a3", "title": "Gamma"},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{Limit: 2})
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected limit to cap at 2 items, got %d", len(result.Items))
	}
}

func TestRunFolderCreatedOnce(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{{"id": "a1", "title": "Alpha"}}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	for i := 0; i < 2; i++ {
		if result := im.Run(context.Background(), "articles", importer.Options{}); !result.Success {
			t.Fatalf("run %d failed: %s", i+1, result.Message)
		}
	}
	if len(target.Folders) != 1 {
		t.Fatalf("expected a single collection folder, got %d", len(target.Folders))
	}
	if target.Folders[0]["name"] != "articles" {
		t.Fatalf("folder named %v, want articles", target.Folders[0]["name"])
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	source := testsupport.NewInstance()
	source.AddFile(testsupport.StubFile{ID: "f-1", Filename: "photo.png", Data: []byte("png")})
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "title": "Alpha", "hero": "f-1"},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{DryRun: true})
	if !result.Success {
		t.Fatalf("dry run failed: %s", result.Message)
	}
	created, updated, failed := result.Counts()
	if created != 1 || updated != 0 || failed != 0 {
		t.Fatalf("dry run counts: created=%d updated=%d failed=%d", created, updated, failed)
	}
	if !strings.Contains(result.Message, "dry run") {
		t.Fatalf("message should mention dry run, got %q", result.Message)
	}
	if rows := target.Rows("articles"); len(rows) != 0 {
		t.Fatalf("dry run wrote %d rows", len(rows))
	}
	if len(target.Folders) != 0 {
		t.Fatal("dry run created a folder")
	}
	if target.UploadCount() != 0 {
		t.Fatalf("dry run uploaded %d files", target.UploadCount())
	}
}

func TestRunRejectedTokenFailsRun(t *testing.T) {
	source := testsupport.NewInstance()
	source.Token = "secret"
	source.Collections["articles"] = []map[string]any{{"id": "a1"}}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, "wrong"), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{})
	if result.Success {
		t.Fatal("expected rejected token to fail the run")
	}
	if !strings.Contains(result.Message, "credentials") {
		t.Fatalf("message should name the credential failure, got %q", result.Message)
	}
}

func TestRunMissingSourceCollectionFailsRun(t *testing.T) {
	source := testsupport.NewInstance()
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{})
	if result.Success {
		t.Fatal("expected missing source collection to fail the run")
	}
	if !strings.Contains(result.Message, "fetching") {
		t.Fatalf("message should name the fetch failure, got %q", result.Message)
	}
}

func TestRunWithoutMappingStoreAlwaysCreates(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{{"id": "a1", "title": "Alpha"}}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	// No sync_id_map collection on the target: the mapper degrades to
	// always-create mode instead of failing the run.
	target := testsupport.NewInstance()
	target.Collections["articles"] = []map[string]any{}
	target.FieldDefs["articles"] = articleFields()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	for i := 0; i < 2; i++ {
		result := im.Run(context.Background(), "articles", importer.Options{})
		if !result.Success {
			t.Fatalf("run %d failed: %s", i+1, result.Message)
		}
		created, updated, _ := result.Counts()
		if created != 1 || updated != 0 {
			t.Fatalf("run %d counts: created=%d updated=%d", i+1, created, updated)
		}
	}
	if rows := target.Rows("articles"); len(rows) != 2 {
		t.Fatalf("always-create mode should duplicate, got %d rows", len(rows))
	}
}

func TestRunHeuristicMatchUpdatesExistingRow(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "title": "Fresh Title", "slug": "welcome"},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	target.Collections["articles"] = []map[string]any{
		{"id": "t-77", "title": "Stale Title", "slug": "welcome"},
	}
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{HeuristicMatch: true})
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	created, updated, failed := result.Counts()
	if created != 0 || updated != 1 || failed != 0 {
		t.Fatalf("counts: created=%d updated=%d failed=%d", created, updated, failed)
	}
	rows := target.Rows("articles")
	if len(rows) != 1 {
		t.Fatalf("heuristic match should not duplicate, got %d rows", len(rows))
	}
	if rows[0]["title"] != "Fresh Title" {
		t.Fatalf("expected updated title, got %v", rows[0]["title"])
	}
	if mappings := target.Rows("sync_id_map"); len(mappings) != 1 {
		t.Fatalf("heuristic match should record the mapping, got %d rows", len(mappings))
	}
}

func TestRunWithoutHeuristicMatchCreatesDuplicate(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{
		{"id": "a1", "title": "Fresh Title", "slug": "welcome"},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	target.Collections["articles"] = []map[string]any{
		{"id": "t-77", "title": "Stale Title", "slug": "welcome"},
	}
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{})
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}
	created, _, _ := result.Counts()
	if created != 1 {
		t.Fatalf("expected a create without heuristics, counts created=%d", created)
	}
	if rows := target.Rows("articles"); len(rows) != 2 {
		t.Fatalf("expected 2 rows without heuristics, got %d", len(rows))
	}
}

func TestRunNormalizesTranslations(t *testing.T) {
	source := testsupport.NewInstance()
	source.Collections["articles"] = []map[string]any{
		{
			"id": "a1",
			"translations": []any{
				map[string]any{"id": 7, "languages_code": "en_us", "title": map[string]any{"value": "Hello"}},
				map[string]any{"id": 8, "languages_code": "fr_FR", "title": "Bonjour"},
			},
		},
	}
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	target.FieldDefs["articles"] = append(articleFields(), map[string]any{
		"collection": "articles",
		"field":      "translations",
		"type":       "alias",
		"schema":     map[string]any{"is_nullable": true},
		"meta":       map[string]any{"special": []string{"translations"}},
	})
	target.RelationDefs["articles"] = []map[string]any{
		{
			"collection":         "articles_translations",
			"field":              "articles_id",
			"related_collection": "articles",
			"meta":               map[string]any{"one_field": "translations", "junction_field": "languages_code"},
		},
	}
	target.Collections["languages"] = []map[string]any{
		{"code": "en-US"},
		{"code": "de-DE"},
	}
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	result := im.Run(context.Background(), "articles", importer.Options{})
	if !result.Success {
		t.Fatalf("run failed: %s", result.Message)
	}

	rows := target.Rows("articles")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	translations, _ := rows[0]["translations"].([]any)
	if len(translations) != 1 {
		t.Fatalf("expected the unsupported locale to be dropped, got %d entries", len(translations))
	}
	entry, _ := translations[0].(map[string]any)
	if entry["languages_code"] != "en-US" {
		t.Fatalf("locale not normalized: %v", entry["languages_code"])
	}
	if entry["title"] != "Hello" {
		t.Fatalf("rich-text wrapper not collapsed: %v", entry["title"])
	}
	if _, hasID := entry["id"]; hasID {
		t.Fatal("translation id must be stripped before the nested write")
	}
}

func TestRunItemsStopsOnCancelledContext(t *testing.T) {
	source := testsupport.NewInstance()
	sourceSrv := source.Server()
	defer sourceSrv.Close()

	target := newTarget()
	targetSrv := target.Server()
	defer targetSrv.Close()

	im := importer.New(newClient(t, sourceSrv.URL, ""), newClient(t, targetSrv.URL, ""), logging.NewNop())
	recorder := runlog.NewRecorder(logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []map[string]any{{"id": "a1"}, {"id": "a2"}}
	results := im.RunItems(ctx, "articles", items, importer.Options{}, recorder)
	if len(results) != 0 {
		t.Fatalf("cancelled run processed %d items", len(results))
	}
	var sawCancel bool
	for _, entry := range recorder.Entries() {
		if entry.Step == "run_cancelled" {
			sawCancel = true
		}
	}
	if !sawCancel {
		t.Fatal("expected a run_cancelled audit entry")
	}
}
