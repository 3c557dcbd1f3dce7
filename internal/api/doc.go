// Package api wraps the REST data API exposed by a content-management
// instance (items, files, assets, folders, fields, relations, server info).
//
// A Client is an explicit per-instance handle built from a base URL and a
// static token; two Clients (source and target) are threaded through the
// sync pipeline rather than any shared ambient session. Idempotent GET
// requests retry with bounded exponential backoff on transient failures;
// writes are issued exactly once.
//
// Backend errors are surfaced as *Error values carrying the upstream HTTP
// status and the detail payload the server returned, so callers can record
// them in the run log without re-parsing response bodies.
package api
