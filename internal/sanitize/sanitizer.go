package sanitize

import (
	"context"
	"io"
	"log/slog"

	"contentsync/internal/api"
	"contentsync/internal/value"
)

// Sanitizer cleans ingested items against a target collection's schema.
type Sanitizer struct {
	target *api.Client
	logger *slog.Logger

	languages       []string
	languagesLoaded bool
}

// New creates a Sanitizer bound to a target instance handle.
func New(target *api.Client, logger *slog.Logger) *Sanitizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sanitizer{target: target, logger: logger}
}

// Clean reduces an ingested item to the fields the destination schema knows,
// with references coerced to plain ids. Translation lists are excluded here;
// NormalizeTranslations prepares them for the deep write separately.
func (s *Sanitizer) Clean(item value.Item, schema *Schema) map[string]any {
	payload := make(map[string]any)
	for _, name := range item.FieldNames() {
		if IsServerManaged(name) {
			continue
		}
		field, known := schema.Field(name)
		if !known {
			continue
		}
		entry := item.Fields[name]
		switch entry.Kind {
		case value.KindPrimitive:
			if _, isComposite := entry.Primitive.(map[string]any); isComposite {
				// Composite without an id: nothing the target can store.
				continue
			}
			if field.IsFile() {
				if id := value.IDString(entry.Primitive); id != "" {
					payload[name] = id
				}
				continue
			}
			payload[name] = entry.Primitive
		case value.KindRef:
			if field.IsFile() || s.isExclusiveRelation(schema, name) {
				payload[name] = entry.Ref
			}
		case value.KindRelationList, value.KindTranslationList:
			// Deep relation writes are out of scope for this layer; the
			// translations allowance happens in NormalizeTranslations.
			continue
		}
	}
	return payload
}

func (s *Sanitizer) isExclusiveRelation(schema *Schema, field string) bool {
	relation, ok := schema.Relation(field)
	return ok && relation.Exclusive()
}

// FillRequiredDefaults supplies values for required fields the payload
// leaves empty: the declared default first, else, for an exclusive single
// relation, the id of an arbitrary existing related row (a best-effort
// filler for the non-null constraint, not a semantic linkage). Fields with
// neither stay absent and the target's rejection surfaces as the item error.
func (s *Sanitizer) FillRequiredDefaults(ctx context.Context, payload map[string]any, schema *Schema) map[string]any {
	for _, field := range schema.Fields {
		if !field.Required() || IsServerManaged(field.Field) || field.HasSpecial("translations") {
			continue
		}
		if present(payload[field.Field]) {
			continue
		}
		if defaultValue := field.Default(); defaultValue != nil {
			payload[field.Field] = defaultValue
			continue
		}
		relation, ok := schema.Relation(field.Field)
		if !ok || !relation.Exclusive() || relation.RelatedCollection == "" {
			continue
		}
		rows, err := s.target.ListItems(ctx, relation.RelatedCollection, api.ListQuery{Limit: 1, Fields: []string{"id"}})
		if err != nil {
			s.logger.Warn("required default lookup failed",
				slog.String("field", field.Field),
				slog.String("related_collection", relation.RelatedCollection),
				slog.String("error", err.Error()))
			continue
		}
		if len(rows) == 0 {
			continue
		}
		if id := value.IDString(rows[0]["id"]); id != "" {
			payload[field.Field] = id
		}
	}
	return payload
}

func present(entry any) bool {
	if entry == nil {
		return false
	}
	if s, ok := entry.(string); ok {
		return s != ""
	}
	return true
}

// VerifyReferences nulls out single file or relation references whose target
// row does not exist, trading the dangling link for a writable payload.
func (s *Sanitizer) VerifyReferences(ctx context.Context, payload map[string]any, schema *Schema) {
	for name, entry := range payload {
		id, ok := entry.(string)
		if !ok || id == "" {
			continue
		}
		field, known := schema.Field(name)
		if !known {
			continue
		}
		switch {
		case field.IsFile():
			if _, err := s.target.GetFile(ctx, id); api.IsNotFound(err) {
				payload[name] = nil
			}
		case s.isExclusiveRelation(schema, name):
			relation, _ := schema.Relation(name)
			if _, err := s.target.GetItem(ctx, relation.RelatedCollection, id, []string{"id"}); api.IsNotFound(err) {
				payload[name] = nil
			}
		}
	}
}
