// Package domainerrors carries coded errors across service boundaries so the
// transport layer can map failures onto HTTP statuses without string matching.
// Stores return sentinel errors; services wrap them here with a Code.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and for HTTP translation.
type Code string

const (
	// CodeBadRequest marks malformed or self-contradictory caller input.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks references to entities that do not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks uniqueness or concurrency conflicts.
	CodeConflict Code = "conflict"
	// CodeInvalidState marks actions whose state-machine precondition fails.
	CodeInvalidState Code = "invalid_state"
	// CodeUnavailable marks transient collaborator failures worth retrying.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks everything the caller cannot do anything about.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It wraps an optional cause so errors.Is and
// errors.As keep working through service layers.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto the HTTP status the transport layer should
// return. Integrity anomalies are data, not errors, and never pass through
// here.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
