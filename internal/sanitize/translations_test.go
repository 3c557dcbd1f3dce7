package sanitize_test

import (
	"context"
	"testing"

	"contentsync/internal/testsupport"
	"contentsync/internal/value"
)

func ingestWithTranslations(entries []any) value.Item {
	return value.Ingest(map[string]any{
		"id":           "a1",
		"translations": entries,
	})
}

func TestNormalizeTranslationsStripsIDsAndWrappers(t *testing.T) {
	schema := articleSchema(t)
	target := testsupport.NewInstance()
	target.Collections["languages"] = []map[string]any{{"code": "en-US"}}
	sanitizer, done := newSanitizer(t, target)
	defer done()

	item := ingestWithTranslations([]any{
		map[string]any{
			"id":             42,
			"languages_code": "en-US",
			"title":          map[string]any{"value": "Hello"},
			"body":           "plain",
		},
	})
	rows := sanitizer.NormalizeTranslations(context.Background(), item, schema)
	if len(rows) != 1 {
		t.Fatalf("expected 1 translation, got %d", len(rows))
	}
	row := rows[0]
	if _, ok := row["id"]; ok {
		t.Fatal("translation id must be stripped")
	}
	if row["title"] != "Hello" {
		t.Fatalf("wrapper not collapsed: %v", row["title"])
	}
	if row["body"] != "plain" {
		t.Fatalf("plain value mangled: %v", row["body"])
	}
}

func TestNormalizeTranslationsMapsLocaleVariants(t *testing.T) {
	schema := articleSchema(t)
	target := testsupport.NewInstance()
	target.Collections["languages"] = []map[string]any{{"code": "en-US"}, {"code": "de-DE"}}
	sanitizer, done := newSanitizer(t, target)
	defer done()

	item := ingestWithTranslations([]any{
		map[string]any{"languages_code": "en_us", "title": "Exact-ish"},
		map[string]any{"languages_code": "en-GB", "title": "Base match"},
		map[string]any{"languages_code": "fr-FR", "title": "Unsupported"},
	})
	rows := sanitizer.NormalizeTranslations(context.Background(), item, schema)
	if len(rows) != 2 {
		t.Fatalf("expected the unsupported locale to be dropped, got %d rows", len(rows))
	}
	for _, row := range rows {
		if row["languages_code"] != "en-US" {
			t.Fatalf("locale not normalized to en-US: %v", row["languages_code"])
		}
	}
}

func TestNormalizeTranslationsPassesThroughWithoutLanguageList(t *testing.T) {
	schema := articleSchema(t)
	// No languages collection on the target: codes pass through untouched
	// rather than every translation being dropped.
	sanitizer, done := newSanitizer(t, testsupport.NewInstance())
	defer done()

	item := ingestWithTranslations([]any{
		map[string]any{"languages_code": "xx-XX", "title": "Kept"},
	})
	rows := sanitizer.NormalizeTranslations(context.Background(), item, schema)
	if len(rows) != 1 {
		t.Fatalf("expected pass-through, got %d rows", len(rows))
	}
	if rows[0]["languages_code"] != "xx-XX" {
		t.Fatalf("code must pass through unchanged, got %v", rows[0]["languages_code"])
	}
}

func TestNormalizeTranslationsNilWithoutTranslations(t *testing.T) {
	schema := articleSchema(t)
	sanitizer, done := newSanitizer(t, testsupport.NewInstance())
	defer done()

	item := value.Ingest(map[string]any{"id": "a1", "title": "Alpha"})
	if rows := sanitizer.NormalizeTranslations(context.Background(), item, schema); rows != nil {
		t.Fatalf("expected nil for an item without translations, got %v", rows)
	}
}
