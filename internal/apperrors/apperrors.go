// Package apperrors defines the gateway's closed error taxonomy. Every
// failure that can reach an HTTP response is represented as an *Error
// so the handler layer can convert it to an envelope in one place.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is one of the closed set of taxonomy codes.
type Code string

const (
	AuthError             Code = "AUTH_ERROR"
	APIKeyErrorCode       Code = "API_KEY_ERROR"
	AuthorizationError    Code = "AUTHORIZATION_ERROR"
	ValidationErrorCode   Code = "VALIDATION_ERROR"
	SchemaValidationError Code = "SCHEMA_VALIDATION_ERROR"
	NotFound              Code = "NOT_FOUND"
	RateLimitExceeded     Code = "RATE_LIMIT_EXCEEDED"
	ExternalAPIError      Code = "EXTERNAL_API_ERROR"
	TimeoutError          Code = "TIMEOUT_ERROR"
	ServiceUnavailable    Code = "SERVICE_UNAVAILABLE"
	InternalServerError   Code = "INTERNAL_SERVER_ERROR"
	CoordinateError       Code = "COORDINATE_ERROR"
	CacheError            Code = "CACHE_ERROR"
	ConfigurationError    Code = "CONFIGURATION_ERROR"
)

// defaultStatus maps each code to its default HTTP status, per spec.
var defaultStatus = map[Code]int{
	AuthError:             http.StatusUnauthorized,
	APIKeyErrorCode:       http.StatusUnauthorized,
	AuthorizationError:    http.StatusForbidden,
	ValidationErrorCode:   http.StatusBadRequest,
	SchemaValidationError: http.StatusBadRequest,
	NotFound:              http.StatusNotFound,
	RateLimitExceeded:     http.StatusTooManyRequests,
	ExternalAPIError:      http.StatusBadGateway,
	TimeoutError:          http.StatusGatewayTimeout,
	ServiceUnavailable:    http.StatusServiceUnavailable,
	InternalServerError:   http.StatusInternalServerError,
	CoordinateError:       http.StatusBadRequest,
	CacheError:            http.StatusInternalServerError,
	ConfigurationError:    http.StatusInternalServerError,
}

// retryable records which codes are retryable by default, per spec.
var retryable = map[Code]bool{
	RateLimitExceeded:  true,
	ExternalAPIError:   true,
	TimeoutError:       true,
	ServiceUnavailable: true,
}

// Error is a tagged error carrying everything the handler layer needs
// to build an ErrorInfo without re-classifying the failure.
type Error struct {
	Code       Code
	HTTPStatus int
	Retryable  bool
	Message    string
	Details    any
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an *Error for the given code with its default status
// and retryability.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		HTTPStatus: defaultStatus[code],
		Retryable:  retryable[code],
		Message:    message,
	}
}

// Wrap constructs an *Error that preserves cause in its Unwrap chain.
func Wrap(code Code, message string, cause error) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// WithDetails attaches structured detail to the error and returns it.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// As extracts an *Error from err's chain, if present.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Convenience constructors for every taxonomy code.

func NewAuthError(message string) *Error          { return New(AuthError, message) }
func NewAPIKeyError(message string) *Error        { return New(APIKeyErrorCode, message) }
func NewAuthorizationError(message string) *Error { return New(AuthorizationError, message) }
func NewValidationError(message string) *Error    { return New(ValidationErrorCode, message) }
func NewSchemaValidationError(message string) *Error {
	return New(SchemaValidationError, message)
}
func NewNotFound(message string) *Error           { return New(NotFound, message) }
func NewRateLimitExceeded(message string) *Error  { return New(RateLimitExceeded, message) }
func NewExternalAPIError(message string) *Error   { return New(ExternalAPIError, message) }
func NewTimeoutError(message string) *Error       { return New(TimeoutError, message) }
func NewServiceUnavailable(message string) *Error { return New(ServiceUnavailable, message) }
func NewInternalServerError(message string) *Error {
	return New(InternalServerError, message)
}
func NewCoordinateError(message string) *Error    { return New(CoordinateError, message) }
func NewCacheError(message string) *Error         { return New(CacheError, message) }
func NewConfigurationError(message string) *Error { return New(ConfigurationError, message) }
