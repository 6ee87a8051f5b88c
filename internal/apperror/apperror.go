// Package apperror defines the domain error taxonomy shared by every layer.
//
// Repositories and services return *AppError values that wrap one of the
// sentinel errors below. The HTTP layer maps the sentinel to a status code
// with errors.Is and uses Message/Field/Details to build the JSON body.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("Validation Error")
	ErrDuplicate         = errors.New("duplicate entry")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadyRegistered = errors.New("already registered")
)

type AppError struct {
	Err     error    // sentinel this error belongs to
	Message string   // Human-readable error message
	Field   string   // Optional: field causing the error
	Details []string // Optional: every violated rule for validation errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing document. The message mirrors what the API
// has always returned, e.g. "Event not found".
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", capitalize(resource)),
		Field:   id,
	}
}

// ValidationFailed reports a single violated field rule.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Details: []string{message},
	}
}

// Validation reports every violated rule at once. The top-level message is
// the generic "Validation Error"; the individual messages go in Details.
func Validation(messages []string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: ErrValidation.Error(),
		Details: messages,
	}
}

// Duplicate reports a uniqueness violation on field.
func Duplicate(field string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: "Duplicate entry found",
		Field:   field,
	}
}

// Unauthorized returns an AppError for any authentication failure.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// AlreadyRegistered is returned when a user registers for an event twice.
func AlreadyRegistered() *AppError {
	return &AppError{
		Err:     ErrAlreadyRegistered,
		Message: "Already registered for this event",
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
