// Package history persists a local record of completed sync runs in SQLite.
//
// The store also owns an advisory file lock taken for the duration of a run
// so two imports cannot interleave against the same history database (and,
// in practice, the same target instance from one machine). The database is a
// convenience archive; deleting it loses nothing but the local audit list.
package history
