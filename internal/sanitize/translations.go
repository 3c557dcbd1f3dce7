package sanitize

import (
	"context"
	"log/slog"

	"contentsync/internal/api"
	"contentsync/internal/language"
	"contentsync/internal/value"
)

// languagesCollection is the conventional collection listing supported
// locale codes on an instance.
const languagesCollection = "languages"

// NormalizeTranslations prepares an item's translation sub-records for a
// nested write: per-translation ids are stripped so the target creates fresh
// rows, rich-text wrappers collapse to plain strings, and locale codes are
// normalized against the target's supported set. Entries whose locale cannot
// be mapped are dropped. Returns nil when the item carries no usable
// translations.
func (s *Sanitizer) NormalizeTranslations(ctx context.Context, item value.Item, schema *Schema) []map[string]any {
	field, ok := schema.TranslationsField()
	if !ok {
		return nil
	}
	entry, ok := item.Fields[field.Field]
	if !ok || entry.Kind != value.KindTranslationList {
		return nil
	}

	supported := s.supportedLanguages(ctx)
	cleaned := make([]map[string]any, 0, len(entry.Translations))
	for _, translation := range entry.Translations {
		row := make(map[string]any, len(translation.Fields))
		for name, fieldValue := range translation.Fields {
			if name == "id" {
				continue
			}
			row[name] = value.Unwrap(fieldValue)
		}
		code := translation.LanguageCode()
		if code != "" && supported != nil {
			normalized, ok := language.Normalize(code, supported)
			if !ok {
				s.logger.Warn("translation dropped, locale unsupported on target",
					slog.String("item", item.ID),
					slog.String("locale", code))
				continue
			}
			row["languages_code"] = normalized
		}
		cleaned = append(cleaned, row)
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

// supportedLanguages lazily fetches the target's locale codes. A fetch
// failure degrades to nil, which skips normalization instead of dropping
// every translation.
func (s *Sanitizer) supportedLanguages(ctx context.Context) []string {
	if s.languagesLoaded {
		return s.languages
	}
	s.languagesLoaded = true
	rows, err := s.target.ListItems(ctx, languagesCollection, api.ListQuery{Fields: []string{"code"}})
	if err != nil {
		s.logger.Warn("language list unavailable, locale codes pass through unchanged",
			slog.String("error", err.Error()))
		s.languages = nil
		return nil
	}
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		if code := value.IDString(row["code"]); code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		s.languages = nil
		return nil
	}
	s.languages = codes
	return s.languages
}
