package runlog

import (
	"io"
	"log/slog"
	"time"
)

// Entry is one audit-trail step.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Step      string         `json:"step"`
	Details   map[string]any `json:"details,omitempty"`
}

// Recorder collects ordered audit entries for one run.
type Recorder struct {
	entries []Entry
	logger  *slog.Logger
	clock   func() time.Time
}

// NewRecorder creates a Recorder that mirrors entries to logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{logger: logger, clock: time.Now}
}

// Record appends one entry. Details are captured as-is; callers must not
// mutate the map afterwards.
func (r *Recorder) Record(step string, details map[string]any) {
	entry := Entry{Timestamp: r.clock().UTC(), Step: step, Details: details}
	r.entries = append(r.entries, entry)

	attrs := make([]any, 0, len(details)*2)
	for key, val := range details {
		attrs = append(attrs, slog.Any(key, val))
	}
	r.logger.Debug(step, attrs...)
}

// Entries returns a copy of the accumulated audit trail.
func (r *Recorder) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Status classifies an item outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Action records which write path an item took.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// ItemError captures a per-item failure with whatever the backend reported.
type ItemError struct {
	Message    string `json:"message"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Details    any    `json:"details,omitempty"`
}

// ItemResult is the outcome of reconciling one source item. Every source
// item of a run yields exactly one ItemResult regardless of failures.
type ItemResult struct {
	SourceID string     `json:"source_id"`
	TargetID string     `json:"target_id,omitempty"`
	Status   Status     `json:"status"`
	Action   Action     `json:"action,omitempty"`
	Error    *ItemError `json:"error,omitempty"`
}

// RunResult is the contract returned to any caller of a sync run.
type RunResult struct {
	RunID      string       `json:"run_id"`
	Collection string       `json:"collection"`
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	DryRun     bool         `json:"dry_run,omitempty"`
	Items      []ItemResult `json:"imported_items"`
	Log        []Entry      `json:"import_log"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Counts tallies item outcomes in run order.
func (r *RunResult) Counts() (created, updated, failed int) {
	for _, item := range r.Items {
		switch {
		case item.Status == StatusError:
			failed++
		case item.Action == ActionUpdated:
			updated++
		default:
			created++
		}
	}
	return created, updated, failed
}

// FirstError returns the first item-level error message of the run, if any.
func (r *RunResult) FirstError() string {
	for _, item := range r.Items {
		if item.Status == StatusError && item.Error != nil {
			return item.Error.Message
		}
	}
	return ""
}
