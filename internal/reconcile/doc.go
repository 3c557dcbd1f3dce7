// Package reconcile drives one source item through the create-or-update
// decision: derive a title, resolve the existing target counterpart via the
// identity mapping (heuristic matching only when explicitly enabled), clean
// the payload, rewrite file references, and commit the write.
//
// Item returns an explicit result value instead of raising; the calling loop
// only collects results, so a failure on one item never reaches the next.
package reconcile
