package sanitize

import (
	"context"
	"fmt"

	"contentsync/internal/api"
)

// serverManagedFields are stripped unconditionally before any other rule.
var serverManagedFields = map[string]struct{}{
	"id":           {},
	"date_created": {},
	"date_updated": {},
	"user_created": {},
	"user_updated": {},
}

// IsServerManaged reports whether the target maintains the field itself.
func IsServerManaged(field string) bool {
	_, ok := serverManagedFields[field]
	return ok
}

// Schema bundles a collection's field and relation metadata.
type Schema struct {
	Collection string
	Fields     []api.Field
	Relations  []api.Relation

	fieldsByName     map[string]api.Field
	relationsByField map[string]api.Relation
}

// NewSchema indexes previously fetched metadata.
func NewSchema(collection string, fields []api.Field, relations []api.Relation) *Schema {
	schema := &Schema{
		Collection:       collection,
		Fields:           fields,
		Relations:        relations,
		fieldsByName:     make(map[string]api.Field, len(fields)),
		relationsByField: make(map[string]api.Relation, len(relations)),
	}
	for _, field := range fields {
		schema.fieldsByName[field.Field] = field
	}
	for _, relation := range relations {
		if relation.Collection == collection {
			schema.relationsByField[relation.Field] = relation
		}
	}
	return schema
}

// Field returns the schema entry for a field name.
func (s *Schema) Field(name string) (api.Field, bool) {
	field, ok := s.fieldsByName[name]
	return field, ok
}

// Relation returns the relation rooted at the given field of this collection.
func (s *Schema) Relation(field string) (api.Relation, bool) {
	relation, ok := s.relationsByField[field]
	return relation, ok
}

// TranslationsField returns the field exposing the translations relation.
func (s *Schema) TranslationsField() (api.Field, bool) {
	for _, field := range s.Fields {
		if field.HasSpecial("translations") {
			return field, true
		}
	}
	return api.Field{}, false
}

// TranslationsCollection resolves the child collection holding translation
// rows, empty when the schema exposes no translations relation.
func (s *Schema) TranslationsCollection() string {
	field, ok := s.TranslationsField()
	if !ok {
		return ""
	}
	for _, relation := range s.Relations {
		if relation.Meta.OneField == field.Field && relation.Collection != s.Collection {
			return relation.Collection
		}
	}
	return ""
}

// LoadSchema fetches and indexes field and relation metadata for a
// collection from the target instance.
func (s *Sanitizer) LoadSchema(ctx context.Context, collection string) (*Schema, error) {
	fields, err := s.target.ListFields(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("load fields for %s: %w", collection, err)
	}
	relations, err := s.target.ListRelations(ctx, collection)
	if err != nil {
		// Relations are advisory; fields alone still allow cleaning.
		s.logger.Warn("relation metadata unavailable", "collection", collection, "error", err.Error())
		relations = nil
	}
	return NewSchema(collection, fields, relations), nil
}
