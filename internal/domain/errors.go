// Package domain provides the canonical data model and error types for the
// command-orchestration core.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an orchestration error.
type ErrorCode string

const (
	// ErrorCodeValidation indicates a malformed step, intent, or entity
	// that was rejected before execution.
	ErrorCodeValidation ErrorCode = "VALIDATION"

	// ErrorCodeNotFound indicates a referenced entity or tool is missing.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodeForbidden indicates a policy denial.
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"

	// ErrorCodeUnauthorized indicates a missing or invalid step-up credential.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrorCodeConflict indicates a confirmation token was reused for a
	// different action or input.
	ErrorCodeConflict ErrorCode = "CONFLICT"

	// ErrorCodeInternal indicates a tool or infrastructure failure.
	ErrorCodeInternal ErrorCode = "INTERNAL"
)

// Error is the canonical error returned across the core's boundaries.
// Components wrap lower-level errors with fmt.Errorf and %w; the edge
// translates Error values to transport responses.
type Error struct {
	// Code is the error taxonomy bucket
	Code ErrorCode `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Field is the input field that caused the error (if applicable)
	Field string `json:"field,omitempty"`

	// Err is the wrapped cause, if any
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatusCode() int {
	switch e.Code {
	case ErrorCodeValidation:
		return http.StatusBadRequest
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new canonical error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithField adds the offending field name to the error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Convenience constructors for common errors

// ErrValidation creates a validation error.
func ErrValidation(message string) *Error {
	return NewError(ErrorCodeValidation, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *Error {
	return NewError(ErrorCodeNotFound, message)
}

// ErrForbidden creates a policy denial error.
func ErrForbidden(message string) *Error {
	return NewError(ErrorCodeForbidden, message)
}

// ErrUnauthorized creates a step-up/authentication error.
func ErrUnauthorized(message string) *Error {
	return NewError(ErrorCodeUnauthorized, message)
}

// ErrConflict creates a conflict error.
func ErrConflict(message string) *Error {
	return NewError(ErrorCodeConflict, message)
}

// ErrInternal creates an internal error.
func ErrInternal(message string) *Error {
	return NewError(ErrorCodeInternal, message)
}

// CodeOf extracts the taxonomy code from any error. Unclassified errors
// report INTERNAL.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrorCodeInternal
}
