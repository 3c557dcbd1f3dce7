// Package logging constructs the process-wide slog logger from
// configuration: level, console or JSON format, and optional log-file
// mirroring alongside stdout.
package logging
