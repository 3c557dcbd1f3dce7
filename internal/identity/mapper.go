package identity

import (
	"context"
	"io"
	"log/slog"

	"contentsync/internal/api"
	"contentsync/internal/value"
)

// DefaultCollection is the mapping store's collection name on the target.
const DefaultCollection = "sync_id_map"

// Mapper looks up and records id mappings on the target instance.
type Mapper struct {
	target     *api.Client
	collection string
	logger     *slog.Logger
	disabled   bool
}

// NewMapper creates a Mapper backed by the given target handle. An empty
// collection name selects DefaultCollection.
func NewMapper(target *api.Client, collection string, logger *slog.Logger) *Mapper {
	if collection == "" {
		collection = DefaultCollection
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Mapper{target: target, collection: collection, logger: logger}
}

// Enabled reports whether the mapping store has been reachable so far.
func (m *Mapper) Enabled() bool { return !m.disabled }

// Lookup resolves the target id recorded for (table, sourceID). The mapping
// is the sole authority for "already exists"; callers fall back to heuristics
// only when this returns no result.
func (m *Mapper) Lookup(ctx context.Context, table, sourceID string) (string, bool) {
	row := m.find(ctx, table, sourceID)
	if row == nil {
		return "", false
	}
	localID := value.IDString(row["local_id"])
	return localID, localID != ""
}

// Upsert records targetID for (table, sourceID), updating an existing row in
// place so at most one mapping exists per pair. Failures are logged, never
// returned.
func (m *Mapper) Upsert(ctx context.Context, table, sourceID, targetID string) {
	if m.disabled {
		return
	}
	row := m.find(ctx, table, sourceID)
	if row != nil {
		if value.IDString(row["local_id"]) == targetID {
			return
		}
		rowID := value.IDString(row["id"])
		if _, err := m.target.UpdateItem(ctx, m.collection, rowID, map[string]any{"local_id": targetID}); err != nil {
			m.logger.Warn("id mapping update failed",
				slog.String("table", table),
				slog.String("source_id", sourceID),
				slog.String("error", err.Error()))
		}
		return
	}
	payload := map[string]any{
		"table":    table,
		"sync_id":  sourceID,
		"local_id": targetID,
	}
	if _, err := m.target.CreateItem(ctx, m.collection, payload); err != nil {
		m.logger.Warn("id mapping insert failed",
			slog.String("table", table),
			slog.String("source_id", sourceID),
			slog.String("error", err.Error()))
	}
}

func (m *Mapper) find(ctx context.Context, table, sourceID string) map[string]any {
	if m.disabled {
		return nil
	}
	query := api.ListQuery{
		Limit: 1,
		Filter: api.MergeFilters(
			api.EqFilter("table", table),
			api.EqFilter("sync_id", sourceID),
		),
	}
	rows, err := m.target.ListItems(ctx, m.collection, query)
	if err != nil {
		if api.IsNotFound(err) || api.IsUnauthorized(err) {
			m.disabled = true
			m.logger.Info("id mapping store unavailable, continuing in always-create mode",
				slog.String("collection", m.collection))
			return nil
		}
		m.logger.Warn("id mapping lookup failed",
			slog.String("table", table),
			slog.String("source_id", sourceID),
			slog.String("error", err.Error()))
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
