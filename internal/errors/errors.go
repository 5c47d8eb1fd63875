// Package errors provides error codes for the meeting sync core.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of failure surfaced by the core.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"
	ErrNotFound ErrorCode = "NOT_FOUND"

	// Persistence errors
	ErrDatabase ErrorCode = "DATABASE_ERROR"
	ErrStorage  ErrorCode = "STORAGE_ERROR"

	// Download errors
	ErrTransport       ErrorCode = "TRANSPORT_ERROR"
	ErrForbidden       ErrorCode = "FORBIDDEN"
	ErrNotReady        ErrorCode = "NOT_READY"
	ErrWrongStorage    ErrorCode = "WRONG_STORAGE"
	ErrCacheCorruption ErrorCode = "CACHE_CORRUPTION"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the outermost AppError in err's chain,
// or ErrInternal if there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is checks if any AppError in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

// IsForbidden reports whether err is a permission failure.
func IsForbidden(err error) bool { return Is(err, ErrForbidden) }

// IsNotReady reports whether the backend has not produced the artifact yet.
func IsNotReady(err error) bool { return Is(err, ErrNotReady) }

// IsWrongStorage reports whether the artifact lives in a different storage tier.
func IsWrongStorage(err error) bool { return Is(err, ErrWrongStorage) }

// IsTransport reports whether err is a network or transport failure.
func IsTransport(err error) bool { return Is(err, ErrTransport) }
