// Package apperr defines the error taxonomy every boundary operation
// converts into before an error reaches the transport layer.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// KindValidation covers missing or malformed input. HTTP 400.
	KindValidation Kind = iota + 1
	// KindAuthentication covers bad credentials and invalid or expired
	// tokens. The message is deliberately generic. HTTP 401.
	KindAuthentication
	// KindConflict covers duplicate unique keys. HTTP 400.
	KindConflict
	// KindState covers operations the current state forbids, such as
	// deleting the last admin. HTTP 400.
	KindState
	// KindNotFound covers missing resources. HTTP 404.
	KindNotFound
	// KindInternal covers unexpected store or codec failures. The client
	// sees a generic message only. HTTP 500.
	KindInternal
)

// HTTPStatus maps a kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict, KindState:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error with a user-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error. The message is what clients see;
// the cause stays server-side.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation is shorthand for New(KindValidation, message).
func Validation(message string) *Error { return New(KindValidation, message) }

// Conflict is shorthand for New(KindConflict, message).
func Conflict(message string) *Error { return New(KindConflict, message) }

// State is shorthand for New(KindState, message).
func State(message string) *Error { return New(KindState, message) }

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
