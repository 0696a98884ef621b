// Package domainerrors provides coded errors shared by services and transport.
//
// Services return *Error values carrying a Code; the HTTP layer is the only
// place that translates a Code into a status. Stores return sentinel errors
// (pkg/platform/sentinel) which services wrap into coded errors.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	// CodeValidation covers malformed input: bad ids, missing fields, bad dates.
	CodeValidation Code = "validation"
	// CodeNotFound means an id did not resolve in the requested domain.
	CodeNotFound Code = "not_found"
	// CodeDuplicate is used for reported import outcomes, never returned from Import.
	CodeDuplicate Code = "duplicate"
	// CodePeerUnavailable means no peer answered within the search budget.
	CodePeerUnavailable Code = "peer_unavailable"
	// CodeStorage wraps persistent store failures.
	CodeStorage Code = "storage"
	CodeForbidden    Code = "forbidden"
	CodeUnauthorized Code = "unauthorized"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal"
)

// Error is a coded error with a human readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost coded message, or a generic message for uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
