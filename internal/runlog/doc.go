// Package runlog accumulates the append-only audit trail of a sync run and
// the per-item results returned to the caller.
//
// The Recorder mirrors every step into the process logger but keeps its own
// ordered entry list; entries are never mutated after append, so the log a
// caller receives is the exact sequence of steps the run took.
package runlog
