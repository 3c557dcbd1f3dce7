package api

import (
	"context"
	"fmt"
)

// Folder groups uploaded files under a display name.
type Folder struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

// FindFolder looks up a folder by exact name, returning nil when absent.
func (c *Client) FindFolder(ctx context.Context, name string) (*Folder, error) {
	query := ListQuery{Limit: 1, Filter: EqFilter("name", name)}
	var envelope struct {
		Data []Folder `json:"data"`
	}
	if err := c.getJSON(ctx, "folders", query.values(), &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 {
		return nil, nil
	}
	return &envelope.Data[0], nil
}

// CreateFolder creates a folder with the given name.
func (c *Client) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	var envelope struct {
		Data Folder `json:"data"`
	}
	if err := c.writeJSON(ctx, "POST", "folders", map[string]any{"name": name}, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// EnsureFolder looks up a folder by name and creates it when absent. Running
// it repeatedly for the same name always lands on the first folder created.
func (c *Client) EnsureFolder(ctx context.Context, name string) (*Folder, error) {
	folder, err := c.FindFolder(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find folder %q: %w", name, err)
	}
	if folder != nil {
		return folder, nil
	}
	folder, err = c.CreateFolder(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create folder %q: %w", name, err)
	}
	return folder, nil
}
