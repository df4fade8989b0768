// Package domainerrors defines the error taxonomy services speak. Stores
// return sentinel errors for infrastructure facts; services wrap or translate
// them into coded domain errors that transports can map to responses.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and for HTTP translation.
type Code string

const (
	// CodeValidation: a synchronously rejected parameter; the operation
	// never started.
	CodeValidation Code = "validation_error"
	// CodeInvalidInput: malformed or out-of-range input values.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest: a request that cannot be parsed or prepared.
	CodeBadRequest Code = "bad_request"
	// CodeUnauthorized: the caller is not authenticated.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden: the caller is authenticated but lacks owner/agent
	// privilege for the operation.
	CodeForbidden Code = "forbidden"
	// CodeNotFound: the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict: the operation collides with existing state, e.g. a
	// duplicate rule registration.
	CodeConflict Code = "conflict"
	// CodeInternal: unexpected infrastructure failure. Details are logged,
	// never surfaced to clients.
	CodeInternal Code = "internal_error"
	// CodeInvariantViolation: internal bookkeeping diverged from ledger
	// truth. These indicate bugs, not caller mistakes.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a coded domain error. It wraps an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// non-domain errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to its HTTP status for transport layers.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
