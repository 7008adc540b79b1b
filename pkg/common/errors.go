package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an application error with an HTTP status mapping
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{Code: "not_found", Message: message, Status: http.StatusNotFound, Err: err}
}

// NewBadRequestError creates a bad-request error
func NewBadRequestError(message string, err error) *AppError {
	return &AppError{Code: "bad_request", Message: message, Status: http.StatusBadRequest, Err: err}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: "forbidden", Message: message, Status: http.StatusForbidden}
}

// NewInternalError creates an internal error wrapping a cause
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: "internal", Message: message, Status: http.StatusInternalServerError, Err: err}
}

// IsNotFound reports whether err is a not-found AppError
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Status == http.StatusNotFound
}
