// Package domainerrors defines the coded error type shared by services and
// transport. Stores return sentinel errors (pkg/platform/sentinel); services
// translate them into coded errors here so handlers can map them to HTTP
// statuses without inspecting infrastructure details.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and retry decisions.
type Code string

const (
	// CodeInvalidInput covers malformed external input (unparseable ids,
	// unknown enum values, bad request bodies).
	CodeInvalidInput Code = "invalid_input"
	// CodeValidation covers per-field schema failures. Locally recoverable:
	// the respondent corrects the answer and retries the same transition.
	CodeValidation Code = "validation_failed"
	// CodePersistence covers failed record-store writes. Retryable: the
	// transition may be re-invoked; committed answers are never lost.
	CodePersistence Code = "persistence_failed"
	// CodeConfiguration covers fatal form-session states (no visible
	// questions, undefined current question). Terminates the session.
	CodeConfiguration Code = "configuration_error"
	// CodeInvalidState covers transitions not allowed in the current
	// navigation state (submit before the last question, previous while a
	// write is in flight, double submit).
	CodeInvalidState Code = "invalid_state"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
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

// New constructs a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a coded error preserving the underlying cause for logs and
// errors.Is/As chains.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that read like
// errors.Is.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so transport never leaks raw infrastructure messages.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidState:
		return http.StatusConflict
	case CodeConfiguration:
		return http.StatusUnprocessableEntity
	case CodePersistence:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
