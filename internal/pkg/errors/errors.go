package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an AppError carrying the same code, so that
// sentinel errors below can be matched with errors.Is regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Common error codes
const (
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeDatabase          = "DATABASE_ERROR"
	ErrCodeNotImplemented    = "NOT_IMPLEMENTED"
	ErrCodeUpstream          = "UPSTREAM_ERROR"
	ErrCodeUntrustedEvent    = "UNTRUSTED_EVENT"
	ErrCodeUnknownCustomer   = "UNKNOWN_CUSTOMER"
	ErrCodeEntitlementDenied = "ENTITLEMENT_DENIED"
	ErrCodeRateLimited       = "RATE_LIMITED"

	// Credential failures
	ErrCodeInvalidCredential   = "INVALID_CREDENTIAL"
	ErrCodeExpiredCredential   = "EXPIRED_CREDENTIAL"
	ErrCodeRevokedCredential   = "REVOKED_CREDENTIAL"
	ErrCodeMalformedCredential = "MALFORMED_CREDENTIAL"
)

// Sentinels for errors.Is comparisons. Never return these directly; use the
// constructors so each failure carries its own message and cause.
var (
	ErrInvalidCredential   = &AppError{Code: ErrCodeInvalidCredential}
	ErrExpiredCredential   = &AppError{Code: ErrCodeExpiredCredential}
	ErrRevokedCredential   = &AppError{Code: ErrCodeRevokedCredential}
	ErrMalformedCredential = &AppError{Code: ErrCodeMalformedCredential}
	ErrNotFound            = &AppError{Code: ErrCodeNotFound}
	ErrConflict            = &AppError{Code: ErrCodeConflict}
	ErrUntrustedEvent      = &AppError{Code: ErrCodeUntrustedEvent}
	ErrUnknownCustomer     = &AppError{Code: ErrCodeUnknownCustomer}
	ErrUpstream            = &AppError{Code: ErrCodeUpstream}
	ErrValidation          = &AppError{Code: ErrCodeValidation}
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// As extracts an AppError from err, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is is a passthrough to the standard library so callers need a single import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Common error constructors

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message, http.StatusForbidden)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// NotImplemented marks an extension point that has no implementation yet
func NotImplemented(message string) *AppError {
	return New(ErrCodeNotImplemented, message, http.StatusNotImplemented)
}

// InvalidCredential reports a credential whose signature or shape is unusable
func InvalidCredential(err error) *AppError {
	return Wrap(err, ErrCodeInvalidCredential, "Invalid credential", http.StatusUnauthorized)
}

// ExpiredCredential reports a credential past its expiry
func ExpiredCredential(err error) *AppError {
	return Wrap(err, ErrCodeExpiredCredential, "Credential expired", http.StatusUnauthorized)
}

// RevokedCredential reports a renewal credential that was rotated or revoked
func RevokedCredential() *AppError {
	return New(ErrCodeRevokedCredential, "Credential not found or revoked", http.StatusUnauthorized)
}

// MalformedCredential reports an access credential that failed verification
func MalformedCredential(err error) *AppError {
	return Wrap(err, ErrCodeMalformedCredential, "Invalid or expired token", http.StatusForbidden)
}

// UntrustedEvent reports a billing notification that failed authentication
func UntrustedEvent(err error) *AppError {
	return Wrap(err, ErrCodeUntrustedEvent, "Webhook signature verification failed", http.StatusBadRequest)
}

// UnknownCustomer reports a billing notification for a customer with no local user
func UnknownCustomer(customerID string) *AppError {
	return New(ErrCodeUnknownCustomer, fmt.Sprintf("No user for customer %s", customerID), http.StatusOK)
}

// UpstreamError creates a billing provider error
func UpstreamError(provider string, err error) *AppError {
	return Wrap(err, ErrCodeUpstream,
		fmt.Sprintf("Failed to communicate with %s", provider),
		http.StatusBadGateway)
}

// EntitlementDenied creates an access denial for protected resources
func EntitlementDenied(message string, statusCode int) *AppError {
	return New(ErrCodeEntitlementDenied, message, statusCode)
}
