// Package apperr defines the error taxonomy shared by both stores, the
// worker bus and the exchange layer.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers and for the worker wire format.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindTransport  Kind = "transport"
	KindStructural Kind = "structural"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Validation creates a validation error.
func Validation(message string, cause error) *Error {
	return New(KindValidation, message, cause)
}

// NotFound creates a not-found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

// NotFoundf formats a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...), nil)
}

// Transport creates a transport error.
func Transport(message string, cause error) *Error {
	return New(KindTransport, message, cause)
}

// Structural creates a structural error.
func Structural(message string, cause error) *Error {
	return New(KindStructural, message, cause)
}

// Conflict creates a conflict error.
func Conflict(message string, cause error) *Error {
	return New(KindConflict, message, cause)
}

// KindOf returns the kind of the first classified error in the chain,
// or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// ParseKind maps a wire string back to a Kind. Unknown values map to
// KindInternal.
func ParseKind(s string) Kind {
	switch k := Kind(strings.TrimSpace(s)); k {
	case KindValidation, KindNotFound, KindTransport, KindStructural, KindConflict:
		return k
	default:
		return KindInternal
	}
}
