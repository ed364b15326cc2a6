package errors

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"runtime"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Relationship errors
	ErrorTypeSelfReference     ErrorType = "SELF_REFERENCE"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND"
	ErrorTypeAlreadyExists     ErrorType = "ALREADY_EXISTS"
	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"
	ErrorTypeForbidden         ErrorType = "FORBIDDEN"
	ErrorTypeQuotaExceeded     ErrorType = "QUOTA_EXCEEDED"
	ErrorTypePremiumRequired   ErrorType = "PREMIUM_REQUIRED"

	// Request errors
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeRateLimit    ErrorType = "RATE_LIMIT"

	// Infrastructure errors
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeDatabase    ErrorType = "DATABASE"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeExternal    ErrorType = "EXTERNAL"
)

// DetailRetryAfterDays is the Details key carrying the weekly quota retry estimate.
const DetailRetryAfterDays = "retryAfterDays"

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails merges error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// RetryAfterDays returns the retry estimate attached to a quota error.
func (e *AppError) RetryAfterDays() (int, bool) {
	if e.Details == nil {
		return 0, false
	}
	days, ok := e.Details[DetailRetryAfterDays].(int)
	return days, ok
}

func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

func newError(t ErrorType, status int, message string) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: status,
		StackTrace: captureStackTrace(),
	}
}

// NewSelfReferenceError is returned when an actor targets itself
func NewSelfReferenceError(operation string) *AppError {
	return newError(ErrorTypeSelfReference, http.StatusBadRequest,
		fmt.Sprintf("cannot %s yourself", operation))
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, fmt.Sprintf("%s not found", resource))
}

// NewAlreadyExistsError creates an error for a relationship that is already recorded
func NewAlreadyExistsError(message string) *AppError {
	return newError(ErrorTypeAlreadyExists, http.StatusBadRequest, message)
}

// NewInvalidTransitionError reports a state change attempted from a terminal state
func NewInvalidTransitionError(resource, from, to string) *AppError {
	return newError(ErrorTypeInvalidTransition, http.StatusConflict,
		fmt.Sprintf("%s cannot move from %s to %s", resource, from, to)).
		WithDetails(map[string]interface{}{"from": from, "to": to})
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return newError(ErrorTypeForbidden, http.StatusForbidden, message)
}

// NewPremiumRequiredError is returned for premium-only reads attempted by a free actor
func NewPremiumRequiredError(feature string) *AppError {
	return newError(ErrorTypePremiumRequired, http.StatusForbidden,
		fmt.Sprintf("%s requires a premium subscription", feature))
}

// NewQuotaExceededError creates a weekly quota error carrying the days left in the window.
func NewQuotaExceededError(limit int, retryAfter time.Duration) *AppError {
	days := int(math.Ceil(retryAfter.Hours() / 24))
	if days < 1 {
		days = 1
	}
	return newError(ErrorTypeQuotaExceeded, http.StatusTooManyRequests,
		fmt.Sprintf("weekly limit of %d connection requests reached", limit)).
		WithDetails(map[string]interface{}{
			"limit":              limit,
			DetailRetryAfterDays: days,
		})
}

// NewLifetimeQuotaExceededError creates a quota error that never resets
func NewLifetimeQuotaExceededError(resource string, limit int) *AppError {
	return newError(ErrorTypeQuotaExceeded, http.StatusTooManyRequests,
		fmt.Sprintf("free tier is limited to %d %s", limit, resource)).
		WithDetails(map[string]interface{}{"limit": limit})
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(ErrorTypeUnauthorized, http.StatusUnauthorized, message)
}

// NewRateLimitError creates an API throttling error
func NewRateLimitError(message string) *AppError {
	return newError(ErrorTypeRateLimit, http.StatusTooManyRequests, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, err error) *AppError {
	return newError(ErrorTypeDatabase, http.StatusInternalServerError,
		fmt.Sprintf("database operation '%s' failed", operation)).WithCause(err)
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, http.StatusServiceUnavailable,
		fmt.Sprintf("service '%s' is unavailable", service))
}

// NewExternalError creates an external service error
func NewExternalError(service string, err error) *AppError {
	return newError(ErrorTypeExternal, http.StatusBadGateway,
		fmt.Sprintf("external service '%s' error", service)).WithCause(err)
}

// Helper functions

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsNotFound(err error) bool          { return IsType(err, ErrorTypeNotFound) }
func IsAlreadyExists(err error) bool     { return IsType(err, ErrorTypeAlreadyExists) }
func IsSelfReference(err error) bool     { return IsType(err, ErrorTypeSelfReference) }
func IsInvalidTransition(err error) bool { return IsType(err, ErrorTypeInvalidTransition) }
func IsForbidden(err error) bool         { return IsType(err, ErrorTypeForbidden) }
func IsQuotaExceeded(err error) bool     { return IsType(err, ErrorTypeQuotaExceeded) }
func IsPremiumRequired(err error) bool   { return IsType(err, ErrorTypePremiumRequired) }
func IsValidation(err error) bool        { return IsType(err, ErrorTypeValidation) }

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
