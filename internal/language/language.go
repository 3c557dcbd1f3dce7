package language

import (
	"strings"

	"golang.org/x/text/language"
)

// Normalize maps code onto one of the supported codes. Matching order:
// exact (case-insensitive, "-"/"_" separators unified), then same base
// language (so "en-GB" lands on "en-US" when only the latter exists).
// Returns ok=false when no supported code shares the base language; callers
// drop the translation entry in that case rather than risking a
// foreign-key violation.
func Normalize(code string, supported []string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" || len(supported) == 0 {
		return "", false
	}
	for _, candidate := range supported {
		if equalFold(code, candidate) {
			return candidate, true
		}
	}
	base, ok := baseOf(code)
	if !ok {
		return "", false
	}
	for _, candidate := range supported {
		if candidateBase, ok := baseOf(candidate); ok && candidateBase == base {
			return candidate, true
		}
	}
	return "", false
}

func equalFold(a, b string) bool {
	return strings.EqualFold(canonical(a), canonical(b))
}

func canonical(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
}

func baseOf(code string) (string, bool) {
	tag, err := language.Parse(canonical(code))
	if err != nil {
		return "", false
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", false
	}
	return base.String(), true
}
