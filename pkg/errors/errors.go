package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Category groups error codes by how callers must react to them.
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryAuthentication Category = "authentication"
	CategoryAuthorization  Category = "authorization"
	CategoryDependency     Category = "dependency"
	CategoryRateLimit      Category = "rate_limit"
	CategoryInternal       Category = "internal"
)

const (
	// Generic errors
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Validation errors
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingRequired   ErrorCode = "MISSING_REQUIRED"
	ErrCodeResetTokenInvalid ErrorCode = "RESET_TOKEN_INVALID"
	ErrCodePasswordPolicy    ErrorCode = "PASSWORD_POLICY"

	// Authentication errors
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeAccountLocked    ErrorCode = "ACCOUNT_LOCKED"
	ErrCodeAccountSuspended ErrorCode = "ACCOUNT_SUSPENDED"
	ErrCodeTokenInvalid     ErrorCode = "TOKEN_INVALID"

	// Dependency errors
	ErrCodeDependencyFailed ErrorCode = "DEPENDENCY_FAILED"
)

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable, safe to show to clients
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error, never shown to clients
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// Category returns the category of this error's code
func (e *Error) Category() Category {
	return CategoryOf(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsCategory reports whether err is a structured error in the given category.
// Unstructured errors belong to CategoryInternal.
func IsCategory(err error, category Category) bool {
	if err == nil {
		return false
	}
	return CategoryOf(GetCode(err)) == category
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// PublicMessage returns the message that may be shown to a client.
// Unstructured and internal errors collapse to a generic text.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && CategoryOf(e.Code) != CategoryInternal && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

// CategoryOf maps an error code to its category
func CategoryOf(code ErrorCode) Category {
	switch code {
	case ErrCodeValidationFailed, ErrCodeMissingRequired, ErrCodeResetTokenInvalid, ErrCodePasswordPolicy:
		return CategoryValidation
	case ErrCodeUnauthorized, ErrCodeInvalidCredentials:
		return CategoryAuthentication
	case ErrCodeForbidden, ErrCodeAccountLocked, ErrCodeAccountSuspended, ErrCodeTokenInvalid:
		return CategoryAuthorization
	case ErrCodeDependencyFailed:
		return CategoryDependency
	case ErrCodeRateLimitExceeded:
		return CategoryRateLimit
	default:
		return CategoryInternal
	}
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch CategoryOf(code) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryAuthentication:
		return http.StatusUnauthorized
	case CategoryAuthorization:
		return http.StatusForbidden
	case CategoryDependency:
		return http.StatusBadGateway
	case CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus returns the HTTP status for any error, structured or not
func HTTPStatus(err error) int {
	return MapErrorCodeToHTTPStatus(GetCode(err))
}

// Common error constructors for frequently used errors

// Validation creates a validation error
func Validation(message string) *Error {
	return New(ErrCodeValidationFailed, message)
}

// MissingRequired creates a validation error naming the missing fields
func MissingRequired(message string, fields ...string) *Error {
	err := New(ErrCodeMissingRequired, message)
	if len(fields) > 0 {
		err.WithDetail("fields", fields)
	}
	return err
}

// Unauthorized creates an authentication error
func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

// Forbidden creates an authorization error
func Forbidden(message string) *Error {
	return New(ErrCodeForbidden, message)
}

// Dependency wraps a failure of an external collaborator (mail, cache)
func Dependency(err error, message string) *Error {
	return Wrap(err, ErrCodeDependencyFailed, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// RateLimitExceeded creates a "rate limit exceeded" error
func RateLimitExceeded(retryAfter string) *Error {
	err := New(ErrCodeRateLimitExceeded, "Too many requests. Please try again later.")
	if retryAfter != "" {
		err.WithDetail("retry_after", retryAfter)
	}
	return err
}
