package reconcile_test

import (
	"testing"

	"contentsync/internal/reconcile"
	"contentsync/internal/value"
)

func TestDeriveTitlePrefersOwnField(t *testing.T) {
	item := value.Ingest(map[string]any{
		"id":    "a1",
		"title": "Own Title",
		"translations": []any{
			map[string]any{"languages_code": "en-US", "title": "Translated"},
		},
	})
	if got := reconcile.DeriveTitle(item); got != "Own Title" {
		t.Fatalf("DeriveTitle = %q", got)
	}
}

func TestDeriveTitleFallsBackToTranslations(t *testing.T) {
	item := value.Ingest(map[string]any{
		"id":    "a1",
		"title": "   ",
		"translations": []any{
			map[string]any{"languages_code": "en-US"},
			map[string]any{"languages_code": "de-DE", "title": map[string]any{"value": "Wrapped"}},
		},
	})
	if got := reconcile.DeriveTitle(item); got != "Wrapped" {
		t.Fatalf("DeriveTitle = %q", got)
	}
}

func TestDeriveTitleEmptyWithoutCandidates(t *testing.T) {
	item := value.Ingest(map[string]any{"id": "a1", "slug": "welcome"})
	if got := reconcile.DeriveTitle(item); got != "" {
		t.Fatalf("DeriveTitle = %q, want empty", got)
	}
}
