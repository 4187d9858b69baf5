// Package xmlerr implements the error taxonomy of spec.md §7: a small set
// of sentinel-wrapped error kinds that propagate through the CORE's
// components, each identifiable via errors.Is/errors.As regardless of the
// underlying cause it wraps.
package xmlerr

import (
	"errors"
	"fmt"
)

// Kind identifies which branch of the spec.md §7 taxonomy an error
// belongs to.
type Kind string

const (
	// KindInput — unreadable file, malformed XML (C1).
	KindInput Kind = "input"
	// KindSchema — inference could not identify a root, or mode=External
	// was requested and no external schema could be resolved (C3).
	KindSchema Kind = "schema"
	// KindResolution — external schema download or parse failed (C2);
	// only fatal in mode=External.
	KindResolution Kind = "resolution"
	// KindCoercion — a value could not be converted to its declared type
	// (C5); non-fatal, logged and dropped or stringified.
	KindCoercion Kind = "coercion"
	// KindConflict — target exists and write mode is FailIfExists (C5).
	KindConflict Kind = "conflict"
	// KindSink — connection, authentication, or batch-insert failure
	// (C5); fatal.
	KindSink Kind = "sink"
	// KindConfig — configuration is internally inconsistent, e.g. an
	// unrecognized write-mode string.
	KindConfig Kind = "config"
)

// Error is the concrete error type returned across component boundaries.
// Component identifies which subsystem raised it (e.g. "xmlrecord",
// "schemaresolver", "sink/relational") for diagnostic messages.
type Error struct {
	Kind      Kind
	Component string
	Msg       string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, &xmlerr.Error{Kind: xmlerr.KindInput}) style
// checks by comparing Kind fields only.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

func newf(kind Kind, component, format string, cause error, args ...any) *Error {
	return &Error{Kind: kind, Component: component, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Input constructs a KindInput error.
func Input(component string, cause error, format string, args ...any) *Error {
	return newf(KindInput, component, format, cause, args...)
}

// Schema constructs a KindSchema error.
func Schema(component string, cause error, format string, args ...any) *Error {
	return newf(KindSchema, component, format, cause, args...)
}

// Resolution constructs a KindResolution error.
func Resolution(component string, cause error, format string, args ...any) *Error {
	return newf(KindResolution, component, format, cause, args...)
}

// Coercion constructs a KindCoercion error.
func Coercion(component string, cause error, format string, args ...any) *Error {
	return newf(KindCoercion, component, format, cause, args...)
}

// Conflict constructs a KindConflict error.
func Conflict(component string, cause error, format string, args ...any) *Error {
	return newf(KindConflict, component, format, cause, args...)
}

// Sink constructs a KindSink error.
func Sink(component string, cause error, format string, args ...any) *Error {
	return newf(KindSink, component, format, cause, args...)
}

// Config constructs a KindConfig error.
func Config(component string, cause error, format string, args ...any) *Error {
	return newf(KindConfig, component, format, cause, args...)
}

// IsKind reports whether err (or any error it wraps) is an *Error of the
// given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
