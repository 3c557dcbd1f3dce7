// Package preflight runs the token and permission diagnostics issued before
// a sync touches any data.
package preflight

import (
	"context"
	"fmt"

	"contentsync/internal/api"
)

// Result is the outcome of one diagnostic check.
type Result struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	ServerInfo *api.ServerInfo `json:"server_info,omitempty"`
}

// ValidateToken verifies that the client's token is accepted by the
// instance and returns the server's public metadata on success.
func ValidateToken(ctx context.Context, client *api.Client) Result {
	if _, err := client.CurrentUser(ctx); err != nil {
		if api.IsUnauthorized(err) {
			return Result{Message: "token rejected: " + err.Error()}
		}
		return Result{Message: "token check failed: " + err.Error()}
	}
	info, err := client.ServerInfo(ctx)
	if err != nil {
		// Token works even if the info endpoint is locked down.
		return Result{Success: true, Message: "token accepted"}
	}
	message := "token accepted"
	if info.Project.Name != "" {
		message = fmt.Sprintf("token accepted by %q", info.Project.Name)
	}
	return Result{Success: true, Message: message, ServerInfo: info}
}

// CheckCollectionAccess verifies the token can read the given collection.
func CheckCollectionAccess(ctx context.Context, client *api.Client, collection string) Result {
	if _, err := client.ListItems(ctx, collection, api.ListQuery{Limit: 1, Fields: []string{"id"}}); err != nil {
		return Result{Message: fmt.Sprintf("collection %q not readable: %s", collection, err.Error())}
	}
	return Result{Success: true, Message: fmt.Sprintf("collection %q readable", collection)}
}
