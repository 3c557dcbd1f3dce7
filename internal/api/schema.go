package api

import (
	"context"
	"net/url"
	"slices"
)

// Field describes one column of a collection as reported by the instance's
// field metadata endpoint.
type Field struct {
	Collection string `json:"collection"`
	Field      string `json:"field"`
	Type       string `json:"type"`
	Schema     struct {
		IsNullable   bool `json:"is_nullable"`
		DefaultValue any  `json:"default_value"`
	} `json:"schema"`
	Meta struct {
		Special  []string `json:"special"`
		Required bool     `json:"required"`
	} `json:"meta"`
}

// Required reports whether a write must supply a value for the field.
func (f Field) Required() bool {
	return f.Meta.Required || !f.Schema.IsNullable
}

// Default returns the field's declared default value, nil when absent.
func (f Field) Default() any { return f.Schema.DefaultValue }

// HasSpecial reports whether the field carries the given special marker
// (e.g. "file", "m2o", "translations").
func (f Field) HasSpecial(marker string) bool {
	return slices.Contains(f.Meta.Special, marker)
}

// IsFile reports whether the field stores a single file reference.
func (f Field) IsFile() bool {
	return f.HasSpecial("file") || f.Type == "file"
}

// ListFields fetches the field schema for a collection.
func (c *Client) ListFields(ctx context.Context, collection string) ([]Field, error) {
	var envelope struct {
		Data []Field `json:"data"`
	}
	if err := c.getJSON(ctx, "fields/"+url.PathEscape(collection), nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// Relation describes a relational link originating from a collection.
type Relation struct {
	Collection        string `json:"collection"`
	Field             string `json:"field"`
	RelatedCollection string `json:"related_collection"`
	Meta              struct {
		OneField              string `json:"one_field"`
		JunctionField         string `json:"junction_field"`
		ManyCollection        string `json:"many_collection"`
		ManyField             string `json:"many_field"`
		OneCollection         string `json:"one_collection"`
		SortField             string `json:"sort_field"`
		OneCollectionField    string `json:"one_collection_field"`
		OneAllowedCollections any    `json:"one_allowed_collections"`
	} `json:"meta"`
}

// Exclusive reports whether the relation is a single (many-to-one) link
// rather than a junction/many-to-many arrangement.
func (r Relation) Exclusive() bool {
	return r.Meta.JunctionField == ""
}

// ListRelations fetches relation metadata for a collection.
func (c *Client) ListRelations(ctx context.Context, collection string) ([]Relation, error) {
	var envelope struct {
		Data []Relation `json:"data"`
	}
	if err := c.getJSON(ctx, "relations/"+url.PathEscape(collection), nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
