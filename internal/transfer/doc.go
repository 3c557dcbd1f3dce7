// Package transfer moves binary file attachments from a source instance to a
// target instance, deciding per reference whether to reuse an existing
// target file or fetch and upload a fresh copy.
//
// Resolution consults two caches before touching the network: a per-item
// cache (the same file referenced twice inside one record) and a per-run
// cache (the same file referenced by different records). Reuse of an
// existing target-side file prefers checksum equality and falls back to
// size-plus-type. A failure while handling one field is contained to that
// field: the value is left source-scoped and the item continues.
package transfer
