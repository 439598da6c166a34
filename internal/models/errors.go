// internal/models/errors.go
package models

import (
	"errors"
	"net/http"
)

// ErrorKind classifies failures so transports can map them uniformly:
// HTTP handlers to status codes, the websocket gateway to unicast
// error events.
type ErrorKind string

const (
	ErrNotFound          ErrorKind = "not-found"
	ErrForbidden         ErrorKind = "forbidden"
	ErrInvalidState      ErrorKind = "invalid-state"
	ErrResourceExhausted ErrorKind = "resource-exhausted"
	ErrConflict          ErrorKind = "conflict"
)

// Error carries a kind alongside a client-safe message. Validation
// always precedes mutation, so returning one of these guarantees no
// state changed.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func NewNotFound(msg string) *Error          { return &Error{Kind: ErrNotFound, Message: msg} }
func NewForbidden(msg string) *Error         { return &Error{Kind: ErrForbidden, Message: msg} }
func NewInvalidState(msg string) *Error      { return &Error{Kind: ErrInvalidState, Message: msg} }
func NewResourceExhausted(msg string) *Error { return &Error{Kind: ErrResourceExhausted, Message: msg} }
func NewConflict(msg string) *Error          { return &Error{Kind: ErrConflict, Message: msg} }

// KindOf extracts the ErrorKind from err, defaulting to invalid-state
// for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrInvalidState
}

// HTTPStatus maps an error's kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrForbidden:
		return http.StatusForbidden
	case ErrResourceExhausted, ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
