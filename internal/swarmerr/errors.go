// Package swarmerr defines the typed error taxonomy shared by every
// swarmctl component: schema errors, semantic/state-machine errors,
// integrity errors, policy errors, I/O errors, capture errors, and
// CI-provider errors.
package swarmerr

import (
	"errors"
	"fmt"
)

// Kind discriminates the error categories a swarmctl command can report.
type Kind string

const (
	KindSchema    Kind = "schema"
	KindSemantic  Kind = "semantic"
	KindIntegrity Kind = "integrity"
	KindPolicy    Kind = "policy"
	KindIO        Kind = "io"
	KindCapture   Kind = "capture"
	KindCI        Kind = "ci"
)

// Error is a typed error carrying a kind, a human message, and optional
// structured values (e.g. the offending phase name) for callers that
// want to render JSON diagnostics instead of plain text.
type Error struct {
	Kind    Kind
	Message string
	Values  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New constructs an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithValue attaches a structured key/value pair and returns the receiver
// for chaining at the call site.
func (e *Error) WithValue(key, value string) *Error {
	if e.Values == nil {
		e.Values = make(map[string]string)
	}
	e.Values[key] = value
	return e
}

// Is supports errors.Is comparisons based on Kind alone, so callers can
// write `errors.Is(err, swarmerr.New(swarmerr.KindPolicy, ""))`-style
// sentinel checks, or more idiomatically use IsKind below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
