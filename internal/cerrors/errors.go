// Package cerrors implements the service's error taxonomy: a fixed set of Kind values,
// a single tagged error type that carries request-scoped context, and the Kind-based
// routing policy (request-scoped errors halt the request; file-scoped errors collect into
// a per-response file_errors list; Internal never leaks implementation detail).
package cerrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind is one of the error taxonomy's fixed entries.
type Kind string

const (
	InvalidParameters  Kind = "invalid_parameters"
	UnsupportedLanguage Kind = "unsupported_language"
	InvalidPattern     Kind = "invalid_pattern"
	InvalidRule        Kind = "invalid_rule"
	PathEscapesRoot    Kind = "path_escapes_root"
	FileTooLarge       Kind = "file_too_large"
	FileIOError        Kind = "file_io_error"
	InvalidCursor      Kind = "invalid_cursor"
	DuplicateID        Kind = "duplicate_id"
	NotFound           Kind = "not_found"
	PatternMatchFailed Kind = "pattern_match_failed"
	Internal           Kind = "internal"
)

// RequestScoped reports whether errors of this Kind halt the whole request (true) or
// are collected as per-file, non-fatal entries (false).
func (k Kind) RequestScoped() bool {
	switch k {
	case FileTooLarge, FileIOError:
		return false
	default:
		return true
	}
}

// Error is the single tagged error type used throughout the engine. Suggestion is an
// optional "did you mean" hint (internal/didyoumean) that never changes Kind.
type Error struct {
	Kind       Kind
	Message    string
	Path       string // populated for file-scoped errors
	Suggestion string
	Underlying error
	Timestamp  time.Time
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Timestamp: time.Now()}
}

// Wrap constructs an Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithPath attaches a file path to a file-scoped error and returns the receiver.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithSuggestion attaches a "did you mean" hint and returns the receiver.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s (did you mean %q?)", msg, e.Suggestion)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Underlying }

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Internal for untagged errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Internal
}
