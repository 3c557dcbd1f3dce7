package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound marks 404 responses from the instance.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks 401/403 responses (bad token, missing permission).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransient marks 5xx responses and transport-level failures worth retrying.
	ErrTransient = errors.New("transient failure")
)

// Error describes a failed API call, preserving the upstream status code and
// whatever detail payload the backend attached to the response.
type Error struct {
	Status int
	Method string
	Path   string
	Detail json.RawMessage
	msg    string
}

func (e *Error) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("%s %s: %s (status %d)", e.Method, e.Path, e.msg, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// Message returns the human-readable error text the backend supplied, if any.
func (e *Error) Message() string { return e.msg }

func (e *Error) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status >= 500:
		return ErrTransient
	default:
		return nil
	}
}

// IsNotFound reports whether err represents a 404 from the instance.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnauthorized reports whether err represents a 401/403 from the instance.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// StatusOf extracts the upstream HTTP status from err, or 0 when err does not
// wrap an API error.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// DetailOf extracts the backend-provided detail payload from err, if present.
func DetailOf(err error) json.RawMessage {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return nil
}

// errorEnvelope matches the backend's error response shape.
type errorEnvelope struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func newError(method, path string, status int, body []byte) *Error {
	apiErr := &Error{Status: status, Method: method, Path: path}
	if len(body) == 0 {
		return apiErr
	}
	apiErr.Detail = json.RawMessage(body)
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		apiErr.msg = envelope.Errors[0].Message
	}
	return apiErr
}
