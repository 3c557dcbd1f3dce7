package api

import (
	"context"
)

// ServerInfo is the subset of instance metadata used for diagnostics.
type ServerInfo struct {
	Project struct {
		Name       string `json:"project_name"`
		Descriptor string `json:"project_descriptor"`
	} `json:"project"`
	Version string `json:"version"`
}

// ServerInfo fetches the instance's public metadata.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var envelope struct {
		Data ServerInfo `json:"data"`
	}
	if err := c.getJSON(ctx, "server/info", nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// CurrentUser verifies the configured token by fetching the authenticated
// user record. An unauthorized error means the token is rejected.
func (c *Client) CurrentUser(ctx context.Context) (map[string]any, error) {
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := c.getJSON(ctx, "users/me", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
