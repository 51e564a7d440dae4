package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrUnprocessable = errors.New("unprocessable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUpstream      = errors.New("upstream failure")
)

type AppError struct {
	Err     error  // sentinel used for classification
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that a referenced resource does not exist.
func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

// NotFoundf is NotFound with a free-form message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// ValidationFailed reports malformed input, such as an unparsable parameter.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unprocessable reports well-formed input that is outside the accepted domain.
func Unprocessable(field, message string) *AppError {
	return &AppError{
		Err:     ErrUnprocessable,
		Message: message,
		Field:   field,
	}
}

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Upstream wraps a failure of an external collaborator such as object storage.
func Upstream(message string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, err),
		Message: message,
	}
}
