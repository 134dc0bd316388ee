package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrForbidden) matches any FORBIDDEN error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by every bounded context
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConflict            = "CONFLICT"
	CodeAlreadySubmitted    = "ALREADY_SUBMITTED"
	CodeSyncInProgress      = "SYNC_IN_PROGRESS"
	CodeExternalUnavailable = "EXTERNAL_UNAVAILABLE"
	CodeTimeout             = "TIMEOUT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Event is not defined for the current status")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrConflict            = NewDomainError(CodeConflict, "Resource was modified by another process")
	ErrAlreadySubmitted    = NewDomainError(CodeAlreadySubmitted, "Application has already been submitted to the bank")
	ErrSyncInProgress      = NewDomainError(CodeSyncInProgress, "Another bank synchronization is in progress for this application")
	ErrExternalUnavailable = NewDomainError(CodeExternalUnavailable, "External bank system is unavailable")
	ErrTimeout             = NewDomainError(CodeTimeout, "External bank system did not respond in time")
)

// retryableCodes are concurrency guards and external failures; the caller
// may repeat the request once the competing operation is over.
var retryableCodes = map[string]bool{
	CodeAlreadySubmitted:    true,
	CodeSyncInProgress:      true,
	CodeConflict:            true,
	CodeExternalUnavailable: true,
	CodeTimeout:             true,
}

// IsRetryable reports whether err carries a retryable domain error code
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return retryableCodes[domainErr.Code]
}

// ErrorCode extracts the domain error code, or "" for non-domain errors
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
