// Package config loads, normalizes, and validates contentsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for
// instance tokens. Always obtain settings through this package so downstream
// code receives sanitized URLs and clear validation errors.
package config
