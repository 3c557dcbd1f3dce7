// Package identity maintains the durable (collection, source id) → target id
// mapping that makes re-runs idempotent.
//
// The mapping lives in a plain items collection on the target instance. When
// that collection is absent or unreadable the mapper degrades to always
// reporting "no mapping", which turns the sync into always-create mode
// without failing the run. Upsert failures are logged and swallowed for the
// same reason: losing idempotency on one item must not abort the run.
package identity
