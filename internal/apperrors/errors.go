// Package apperrors provides common static errors used throughout the application.
package apperrors

import (
	"errors"
	"fmt"
)

// HTTPError represents an HTTP error with a status code.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NewHTTPError creates a new HTTPError.
func NewHTTPError(statusCode int, body string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Body: body}
}

// PathError ties a document failure to the file it happened on.
// Kind is one of the sentinel errors below, Err is the underlying cause (may be nil).
type PathError struct {
	Kind error
	Path string
	Err  error
}

// NewPathError creates a new PathError.
func NewPathError(kind error, path string, err error) *PathError {
	return &PathError{Kind: kind, Path: path, Err: err}
}

// Error implements the error interface.
func (e *PathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ExhaustedError is returned when an optimistic update never got a confirmed write.
type ExhaustedError struct {
	Path     string
	Attempts int
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts", ErrUpdateExhausted, e.Path, e.Attempts)
}

// Is reports whether target is ErrUpdateExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrUpdateExhausted
}

// RemoteError ties a git remote failure to the (redacted) remote URL.
// Kind is one of the sentinel errors below, Err is the underlying cause (may be nil).
type RemoteError struct {
	Kind error
	URL  string
	Err  error
}

// NewRemoteError creates a new RemoteError.
func NewRemoteError(kind error, url string, err error) *RemoteError {
	return &RemoteError{Kind: kind, URL: url, Err: err}
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.URL)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Common static errors used throughout the application.
var (
	// ErrTooLarge is returned when a document exceeds the configured size cap.
	ErrTooLarge = errors.New("document too large")

	// ErrParse is returned when a document is not valid JSON.
	ErrParse = errors.New("invalid JSON document")

	// ErrNilUpdate is returned when an update function returns a nil document.
	ErrNilUpdate = errors.New("update function returned nil")

	// ErrUpdateExhausted is returned when every optimistic update attempt lost a race.
	ErrUpdateExhausted = errors.New("update not confirmed")

	// ErrWrite is returned when an atomic write fails.
	ErrWrite = errors.New("atomic write failed")

	// ErrPathOutsideRoot is returned when a document name escapes the repository root.
	ErrPathOutsideRoot = errors.New("path escapes repository root")

	// ErrNotAnObject is returned when a keyed edit targets a document that is not a JSON object.
	ErrNotAnObject = errors.New("document is not a JSON object")

	// ErrNotAnArray is returned when an append targets a document that is not a JSON array.
	ErrNotAnArray = errors.New("document is not a JSON array")

	// ErrRemoteNotConfigured is returned when a git remote operation is attempted but no remote is configured.
	ErrRemoteNotConfigured = errors.New("no remote configured")

	// ErrRemoteNotConfiguredSetURL is returned when push/pull is attempted without CK_GIT_URL set.
	ErrRemoteNotConfiguredSetURL = errors.New("remote not configured (set CK_GIT_URL)")

	// ErrHTTPSPasswordRequired is returned when HTTPS git URL is used without CK_GIT_PASSWORD.
	ErrHTTPSPasswordRequired = errors.New("CK_GIT_PASSWORD required for HTTPS URLs")

	// ErrInvalidRemoteURL is returned when CK_GIT_URL cannot be parsed as a git endpoint.
	ErrInvalidRemoteURL = errors.New("invalid remote URL")

	// ErrRemoteAuth is returned when credentials for the remote cannot be prepared.
	ErrRemoteAuth = errors.New("remote authentication unavailable")

	// ErrRemoteUnreachable is returned when listing the remote references fails.
	ErrRemoteUnreachable = errors.New("remote unreachable")

	// ErrHistoryDisabled is returned when a git operation is requested on a store without history.
	ErrHistoryDisabled = errors.New("document history is disabled")

	// ErrTitleNotFound is returned when a title lookup has no matching result.
	ErrTitleNotFound = errors.New("title not found")

	// ErrEmptyInput is returned when an empty input is provided.
	ErrEmptyInput = errors.New("empty input")

	// ErrArgumentRequired is returned when a command is missing a positional argument.
	ErrArgumentRequired = errors.New("missing argument")

	// ErrInvalidUnit is returned when a byte or duration unit is unknown.
	ErrInvalidUnit = errors.New("invalid unit")

	// ErrInvalidIDNumber is returned when an ID number has the wrong length or non-digit characters.
	ErrInvalidIDNumber = errors.New("invalid ID number")

	// ErrInvalidLogFormat is returned when the configured log format is unknown.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
