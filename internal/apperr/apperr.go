// Package apperr defines the typed errors the services return. The transport
// layer maps Kind to an HTTP status; Code is a stable machine identifier for
// clients.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound indicates an agenda or turno that does not exist.
	KindNotFound
	// KindValidation indicates malformed input (bad range, bad duration, ...).
	KindValidation
	// KindConflict indicates a clash with existing state (overlap, duplicate,
	// repeated state action).
	KindConflict
	// KindPolicy indicates input that is well formed but rejected by a
	// scheduling rule (frozen date, outside hours, too soon, ...).
	KindPolicy
	// KindInternal indicates an unexpected failure.
	KindInternal
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Policy(code, message string) *Error {
	return New(KindPolicy, code, message)
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf extracts the machine code from an error chain, "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
