// Package fileutil provides filename and content-type helpers shared by the
// bundle codec and the file transfer engine.
package fileutil

import (
	"mime"
	"path/filepath"
	"strings"
)

// SanitizeFilename replaces path separators and control characters so a
// download filename is safe as a single path component.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}
	var builder strings.Builder
	builder.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			builder.WriteByte('_')
		case r < 0x20 || r == 0x7f:
			builder.WriteByte('_')
		default:
			builder.WriteRune(r)
		}
	}
	sanitized := strings.Trim(builder.String(), ". ")
	if sanitized == "" {
		return "unnamed"
	}
	return sanitized
}

// ContentTypeByName infers a MIME type from the filename extension, falling
// back to application/octet-stream.
func ContentTypeByName(name string) string {
	if inferred := mime.TypeByExtension(filepath.Ext(name)); inferred != "" {
		return inferred
	}
	return "application/octet-stream"
}

// IsGenericContentType reports whether a stored content type carries no real
// information and should be replaced by an extension-based guess.
func IsGenericContentType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		return true
	}
	if semicolon := strings.IndexByte(contentType, ';'); semicolon >= 0 {
		contentType = strings.TrimSpace(contentType[:semicolon])
	}
	switch contentType {
	case "application/octet-stream", "binary/octet-stream", "application/binary":
		return true
	}
	return false
}
