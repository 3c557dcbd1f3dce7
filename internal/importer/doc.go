// Package importer is the top-level driver of a collection sync run: it
// validates source credentials, provisions the target folder, fetches the
// source page, and feeds every item sequentially through reconciliation.
//
// Only a rejected source token or a failed source fetch fails the whole run;
// per-item failures are collected and reported while the loop continues.
// Items are processed strictly one at a time so the run log stays ordered
// and the per-run caches need no locking; cancellation is honored at item
// boundaries.
package importer
