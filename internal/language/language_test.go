package language_test

import (
	"testing"

	"contentsync/internal/language"
)

func TestNormalize(t *testing.T) {
	supported := []string{"en-US", "de-DE", "pt-BR"}

	cases := []struct {
		code string
		want string
		ok   bool
	}{
		{"en-US", "en-US", true},
		{"EN-us", "en-US", true},
		{"en_US", "en-US", true},
		{"en-GB", "en-US", true}, // base-language fallback
		{"de", "de-DE", true},
		{"pt-PT", "pt-BR", true},
		{"fr-FR", "", false},
		{"", "", false},
		{"not a locale", "", false},
	}
	for _, tc := range cases {
		got, ok := language.Normalize(tc.code, supported)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tc.code, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeEmptySupportedSet(t *testing.T) {
	if _, ok := language.Normalize("en-US", nil); ok {
		t.Fatal("empty supported set must never match")
	}
}
