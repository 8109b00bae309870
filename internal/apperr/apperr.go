// Package apperr defines the closed taxonomy of errors the gateway surfaces
// to callers, and the HTTP status each maps to.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is one of the fixed error kinds the gateway's HTTP surface returns.
type Code string

const (
	Unauthorized  Code = "UNAUTHORIZED"
	InvalidToken  Code = "INVALID_TOKEN"
	Forbidden     Code = "FORBIDDEN"
	Validation    Code = "VALIDATION"
	NotFound      Code = "NOT_FOUND"
	AlreadyQueued Code = "ALREADY_QUEUED"
	AuthFailed    Code = "AUTH_FAILED"
	Internal      Code = "INTERNAL"
)

// statusByCode is the fixed Code → HTTP status mapping.
var statusByCode = map[Code]int{
	Unauthorized:  http.StatusUnauthorized,
	InvalidToken:  http.StatusUnauthorized,
	Forbidden:     http.StatusForbidden,
	Validation:    http.StatusUnprocessableEntity,
	NotFound:      http.StatusNotFound,
	AlreadyQueued: http.StatusConflict,
	AuthFailed:    http.StatusBadRequest,
	Internal:      http.StatusInternalServerError,
}

// Error is an apperr-tagged error carrying a client-facing message.
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

// Status returns the HTTP status code for e's Code.
func (e *Error) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error with the given code and message, keeping cause for
// Unwrap/logging without exposing it to the client.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// As extracts an *Error from err, if any wraps one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Status returns the HTTP status for err: the mapped status if err wraps an
// *Error, otherwise 500.
func Status(err error) int {
	if e, ok := As(err); ok {
		return e.Status()
	}
	return http.StatusInternalServerError
}
