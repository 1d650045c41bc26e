package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeDataIntegrity = "DATA_INTEGRITY_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidSortField     = NewDomainError(ErrCodeValidation, "invalid sort field")
	ErrInvalidDateFilter    = NewDomainError(ErrCodeValidation, "invalid date filter format")
)

// Not found errors
var (
	ErrPokNotFound  = NewDomainError(ErrCodeNotFound, "pok not found")
	ErrUserNotFound = NewDomainError(ErrCodeNotFound, "user not found")
)

// Authorization errors
var (
	ErrPokAccessDenied = NewDomainError(ErrCodeForbidden, "pok belongs to another user")
	ErrInvalidAPIToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
	ErrAPITokenRevoked = NewDomainError(ErrCodeUnauthorized, "api token has been revoked")
)

// Data integrity errors. A stored embedding that fails to parse indicates
// persisted corruption; it is surfaced loudly, never defaulted.
var (
	ErrMalformedStoredVector = NewDomainError(ErrCodeDataIntegrity, "malformed stored vector")
)
