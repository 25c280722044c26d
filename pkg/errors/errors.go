package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the structured failure type surfaced by services and rendered by handlers.
// Operational errors are expected domain outcomes (bad input, missing rights, missing rows);
// non-operational errors indicate bugs or infrastructure faults.
type AppError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	StatusCode  int    `json:"-"`
	Operational bool   `json:"-"`
	Internal    error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches AppErrors by code so sentinel comparisons survive WithInternal/WithMessage copies.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code && e.StatusCode == other.StatusCode
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a different public message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_SERVER_ERROR"
)

// Common errors exposed to the rest of the application.
var (
	ErrValidation = &AppError{
		Code:        CodeValidation,
		Message:     "Invalid request",
		StatusCode:  http.StatusBadRequest,
		Operational: true,
	}

	ErrUnauthorized = &AppError{
		Code:        CodeUnauthorized,
		Message:     "Authentication required",
		StatusCode:  http.StatusUnauthorized,
		Operational: true,
	}

	ErrInvalidCredentials = &AppError{
		Code:        "INVALID_CREDENTIALS",
		Message:     "Invalid username or password",
		StatusCode:  http.StatusUnauthorized,
		Operational: true,
	}

	ErrForbidden = &AppError{
		Code:        CodeForbidden,
		Message:     "Permission denied",
		StatusCode:  http.StatusForbidden,
		Operational: true,
	}

	ErrNotFound = &AppError{
		Code:        CodeNotFound,
		Message:     "Resource not found",
		StatusCode:  http.StatusNotFound,
		Operational: true,
	}

	ErrConflict = &AppError{
		Code:        CodeConflict,
		Message:     "Resource already exists",
		StatusCode:  http.StatusConflict,
		Operational: true,
	}

	ErrInternalServer = &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Code:        "RATE_LIMIT_EXCEEDED",
		Message:     "Too many requests, please slow down",
		StatusCode:  http.StatusTooManyRequests,
		Operational: true,
	}
)

// New builds a new operational application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		StatusCode:  statusCode,
		Operational: statusCode < http.StatusInternalServerError,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// IsOperational reports whether err is an expected domain failure.
func IsOperational(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Operational
	}
	return false
}

// NewValidation reports malformed or semantically invalid input (400).
func NewValidation(message string) *AppError {
	return ErrValidation.WithMessage(message)
}

// NewUnauthorized reports a missing caller identity (401).
func NewUnauthorized(message string) *AppError {
	return ErrUnauthorized.WithMessage(message)
}

// NewForbidden reports an identified caller lacking rights (403).
func NewForbidden(message string) *AppError {
	return ErrForbidden.WithMessage(message)
}

// NewNotFound reports an absent resource (404).
func NewNotFound(message string) *AppError {
	return ErrNotFound.WithMessage(message)
}

// NewConflict reports a uniqueness or state conflict (409).
func NewConflict(message string) *AppError {
	return ErrConflict.WithMessage(message)
}

// NewInternal reports an unexpected failure (500).
func NewInternal(message string, err error) *AppError {
	return ErrInternalServer.WithMessage(message).WithInternal(err)
}
