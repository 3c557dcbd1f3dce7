package reconcile

import (
	"strings"

	"contentsync/internal/value"
)

// DeriveTitle computes an item's display title: its own title field when
// non-empty, else the first translation entry carrying one. Translation
// titles may be plain strings or rich-text {"value": ...} wrappers.
func DeriveTitle(item value.Item) string {
	if entry, ok := item.Fields["title"]; ok && entry.Kind == value.KindPrimitive {
		if title, ok := value.UnwrapString(entry.Primitive); ok {
			if title = strings.TrimSpace(title); title != "" {
				return title
			}
		}
	}
	for _, name := range item.FieldNames() {
		fieldValue := item.Fields[name]
		if fieldValue.Kind != value.KindTranslationList {
			continue
		}
		for _, translation := range fieldValue.Translations {
			if title, ok := value.UnwrapString(translation.Fields["title"]); ok {
				if title = strings.TrimSpace(title); title != "" {
					return title
				}
			}
		}
	}
	return ""
}
