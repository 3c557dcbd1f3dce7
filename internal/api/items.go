package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ListQuery describes item listing parameters.
type ListQuery struct {
	// Limit caps the number of returned items; zero or negative requests the
	// backend's unlimited sentinel (-1).
	Limit int
	// Fields selects returned fields, including dotted child selections such
	// as "translations.*".
	Fields []string
	// Filter holds filter expressions keyed by their fully rendered query
	// parameter, e.g. "filter[translations][title][_contains]" -> "term".
	Filter map[string]string
}

func (q ListQuery) values() url.Values {
	params := url.Values{}
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	params.Set("limit", strconv.Itoa(limit))
	if len(q.Fields) > 0 {
		params.Set("fields", strings.Join(q.Fields, ","))
	}
	for key, value := range q.Filter {
		params.Set(key, value)
	}
	return params
}

// ContainsFilter renders a "_contains" filter expression for a possibly
// nested field path such as "translations.title".
func ContainsFilter(fieldPath, term string) map[string]string {
	key := "filter"
	for _, segment := range strings.Split(fieldPath, ".") {
		key += "[" + segment + "]"
	}
	return map[string]string{key + "[_contains]": term}
}

// EqFilter renders an "_eq" filter expression for a field.
func EqFilter(field, value string) map[string]string {
	return map[string]string{"filter[" + field + "][_eq]": value}
}

// MergeFilters combines filter maps; later maps win on key collisions.
func MergeFilters(filters ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, filter := range filters {
		for key, value := range filter {
			merged[key] = value
		}
	}
	return merged
}

// ListItems fetches records from a collection.
func (c *Client) ListItems(ctx context.Context, collection string, query ListQuery) ([]map[string]any, error) {
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := c.getJSON(ctx, "items/"+url.PathEscape(collection), query.values(), &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// GetItem fetches a single record by id.
func (c *Client) GetItem(ctx context.Context, collection, id string, fields []string) (map[string]any, error) {
	params := url.Values{}
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	path := fmt.Sprintf("items/%s/%s", url.PathEscape(collection), url.PathEscape(id))
	if err := c.getJSON(ctx, path, params, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// CreateItem writes a new record and returns the created row.
func (c *Client) CreateItem(ctx context.Context, collection string, payload map[string]any) (map[string]any, error) {
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := c.writeJSON(ctx, "POST", "items/"+url.PathEscape(collection), payload, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// UpdateItem applies a partial update to an existing record.
func (c *Client) UpdateItem(ctx context.Context, collection, id string, payload map[string]any) (map[string]any, error) {
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	path := fmt.Sprintf("items/%s/%s", url.PathEscape(collection), url.PathEscape(id))
	if err := c.writeJSON(ctx, "PATCH", path, payload, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
