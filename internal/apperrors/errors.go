package apperrors

import (
	"errors"
	"net/http"
)

// AppError is the typed failure every core operation returns to its caller.
type AppError struct {
	Code    string
	Message string
	Origin  error // underlying store or driver error, if any
}

func (e *AppError) Error() string {
	if e.Origin != nil {
		return e.Message + ": " + e.Origin.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Origin
}

// Error codes
const (
	ErrUnauthenticated     = "UNAUTHENTICATED"
	ErrForbidden           = "FORBIDDEN"
	ErrNotFound            = "NOT_FOUND"
	ErrRemoved             = "REMOVED"
	ErrInvalidInput        = "INVALID_INPUT"
	ErrTransactionConflict = "TRANSACTION_CONFLICT"
	ErrDatabase            = "DATABASE_ERROR"
)

func New(code, message string, origin error) *AppError {
	return &AppError{Code: code, Message: message, Origin: origin}
}

func Unauthenticated(reason string) *AppError {
	return &AppError{Code: ErrUnauthenticated, Message: "unauthenticated: " + reason}
}

func NotFound(what string) *AppError {
	return &AppError{Code: ErrNotFound, Message: what + " not found"}
}

func Removed(what string) *AppError {
	return &AppError{Code: ErrRemoved, Message: what + " has been removed"}
}

func InvalidInput(message string) *AppError {
	return &AppError{Code: ErrInvalidInput, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: ErrForbidden, Message: message}
}

func Conflict(message string, origin error) *AppError {
	return &AppError{Code: ErrTransactionConflict, Message: message, Origin: origin}
}

func Database(message string, origin error) *AppError {
	return &AppError{Code: ErrDatabase, Message: message, Origin: origin}
}

// Code returns the code of the first AppError in err's chain, or ErrDatabase
// for anything untyped.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrDatabase
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Retryable reports whether the caller may safely re-issue the same request.
// Vote operations are idempotent per user intent, so conflicts are transient.
func Retryable(err error) bool {
	return IsCode(err, ErrTransactionConflict)
}

// HTTPStatus maps an error code to the status the API responds with.
func HTTPStatus(code string) int {
	switch code {
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRemoved:
		return http.StatusGone
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrTransactionConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
