package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound      ErrCode = "NOT_FOUND"
	ErrCodeRateLimited   ErrCode = "RATE_LIMITED"
	ErrCodeTransient     ErrCode = "TRANSIENT"
	ErrCodePersistence   ErrCode = "PERSISTENCE"
	ErrCodeConfiguration ErrCode = "CONFIGURATION"
	ErrCodeInternal      ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
	// RetryAfter is how long the caller must wait before retrying.
	// Only set for RATE_LIMITED errors.
	RetryAfter time.Duration
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewRateLimitedError creates a new rate limited error carrying the
// mandatory wait before the next attempt
func NewRateLimitedError(message string, retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       ErrCodeRateLimited,
		Message:    message,
		RetryAfter: retryAfter,
	}
}

// NewTransientError creates a new transient error
func NewTransientError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransient,
		Message: message,
		Err:     err,
	}
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodePersistence,
		Message: message,
		Err:     err,
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

func hasCode(err error, code ErrCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return hasCode(err, ErrCodeRateLimited)
}

// IsTransient checks if the error is a transient error
func IsTransient(err error) bool {
	return hasCode(err, ErrCodeTransient)
}

// IsPersistence checks if the error is a persistence error
func IsPersistence(err error) bool {
	return hasCode(err, ErrCodePersistence)
}

// IsConfiguration checks if the error is a configuration error
func IsConfiguration(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// RetryAfter returns the wait carried by a rate limited error, zero
// otherwise
func RetryAfter(err error) time.Duration {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == ErrCodeRateLimited {
		return appErr.RetryAfter
	}
	return 0
}
