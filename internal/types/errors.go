package types

import (
	"errors"
	"fmt"
)

// Kind is a stable, abstract error classification shared across every
// core package so callers can branch with errors.As instead of string
// matching.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindAlreadyExists         Kind = "already_exists"
	KindValidation            Kind = "validation_error"
	KindPermissionDenied      Kind = "permission_denied"
	KindTransient             Kind = "transient"
	KindStorage               Kind = "storage_error"
	KindEmbeddingUnavailable  Kind = "embedding_unavailable"
	KindConsolidationRunning  Kind = "consolidation_in_progress"
	KindCloudSyncNetwork      Kind = "cloud_sync_network_error"
	KindPatternCycle          Kind = "pattern_dependency_cycle"
	KindTimeoutExceeded       Kind = "timeout_exceeded"
	KindTaintPathTooLong      Kind = "taint_path_too_long"
)

// SourceLocation pins a user-visible error to a file/line when relevant
// (e.g. a quality gate violation or a parse error).
type SourceLocation struct {
	File string
	Line int
}

// Error is the stable error shape surfaced by every core component: a
// Kind for programmatic branching, a human message, an optional source
// location, and a wrapped cause for errors.Unwrap chains.
type Error struct {
	Kind     Kind
	Message  string
	Location *SourceLocation
	Cause    error
}

func (e *Error) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s: %s (%s:%d)", e.Kind, e.Message, e.Location.File, e.Location.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, &Error{Kind: KindNotFound}) style matching on
// Kind alone, ignoring Message/Cause/Location.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Kind == e.Kind
	}
	return false
}

// NewError builds an *Error with the given kind and formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new *Error of the given kind.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithLocation attaches a file/line to an existing error, returning a copy.
func (e *Error) WithLocation(file string, line int) *Error {
	cp := *e
	cp.Location = &SourceLocation{File: file, Line: line}
	return &cp
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err is (or wraps) a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
