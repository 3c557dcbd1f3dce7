package value

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Kind discriminates the variant stored in a Value.
type Kind int

const (
	// KindPrimitive holds a scalar (string, number, bool, nil) or an opaque
	// composite that none of the other variants claim.
	KindPrimitive Kind = iota
	// KindRef holds a single reference: an object carrying an id. The schema
	// decides later whether it points at a file or a related record.
	KindRef
	// KindRelationList holds an array of id-bearing objects (one-to-many or
	// junction rows).
	KindRelationList
	// KindTranslationList holds locale sub-records.
	KindTranslationList
)

// Value is one classified payload field.
type Value struct {
	Kind         Kind
	Primitive    any
	Ref          string
	List         []map[string]any
	Translations []Translation
}

// Translation is one locale sub-record of a translations field.
type Translation struct {
	Fields map[string]any
}

// LanguageCode returns the entry's locale code, if present.
func (t Translation) LanguageCode() string {
	return IDString(t.Fields["languages_code"])
}

// Item is an ingested source record.
type Item struct {
	ID     string
	Fields map[string]Value
	Raw    map[string]any
}

// FieldNames returns the item's field names in stable order.
func (it Item) FieldNames() []string {
	names := make([]string, 0, len(it.Fields))
	for name := range it.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ingest classifies a raw record into the variant model. The record's own id
// is lifted out of the field set.
func Ingest(raw map[string]any) Item {
	item := Item{
		ID:     IDString(raw["id"]),
		Fields: make(map[string]Value, len(raw)),
		Raw:    raw,
	}
	for name, entry := range raw {
		if name == "id" {
			continue
		}
		item.Fields[name] = Classify(name, entry)
	}
	return item
}

// Classify maps one raw field value onto the variant model.
func Classify(name string, entry any) Value {
	switch typed := entry.(type) {
	case map[string]any:
		if id := IDString(typed["id"]); id != "" {
			return Value{Kind: KindRef, Ref: id, Primitive: typed}
		}
		return Value{Kind: KindPrimitive, Primitive: typed}
	case []any:
		objects := make([]map[string]any, 0, len(typed))
		for _, element := range typed {
			obj, ok := element.(map[string]any)
			if !ok {
				return Value{Kind: KindPrimitive, Primitive: typed}
			}
			objects = append(objects, obj)
		}
		if name == "translations" || allTranslationShaped(objects) {
			translations := make([]Translation, 0, len(objects))
			for _, obj := range objects {
				translations = append(translations, Translation{Fields: obj})
			}
			return Value{Kind: KindTranslationList, Translations: translations}
		}
		return Value{Kind: KindRelationList, List: objects}
	default:
		return Value{Kind: KindPrimitive, Primitive: entry}
	}
}

func allTranslationShaped(objects []map[string]any) bool {
	if len(objects) == 0 {
		return false
	}
	for _, obj := range objects {
		if _, ok := obj["languages_code"]; !ok {
			return false
		}
	}
	return true
}

// IDString renders an id of any JSON-decoded shape (string, number, object
// with an id key) as its canonical string form. Returns "" for shapes that
// cannot carry an id.
func IDString(entry any) string {
	switch typed := entry.(type) {
	case string:
		return typed
	case json.Number:
		return typed.String()
	case float64:
		if typed == float64(int64(typed)) {
			return strconv.FormatInt(int64(typed), 10)
		}
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case map[string]any:
		return IDString(typed["id"])
	default:
		return ""
	}
}

// Unwrap reduces rich-text wrapper objects of shape {"value": "..."} to the
// inner string; any other input passes through unchanged.
func Unwrap(entry any) any {
	obj, ok := entry.(map[string]any)
	if !ok || len(obj) != 1 {
		return entry
	}
	inner, ok := obj["value"]
	if !ok {
		return entry
	}
	return inner
}

// UnwrapString returns the plain-string form of a value that may be either a
// string or a {"value": string} wrapper; ok is false for anything else.
func UnwrapString(entry any) (string, bool) {
	if s, ok := entry.(string); ok {
		return s, true
	}
	if s, ok := Unwrap(entry).(string); ok {
		return s, true
	}
	return "", false
}
