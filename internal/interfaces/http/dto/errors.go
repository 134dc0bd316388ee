package dto

import (
	"net/http"

	"github.com/finhub/backend/internal/domain/shared"
)

// Codes produced by the HTTP layer itself. Domain codes come from shared.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "INVALID_TOKEN"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Input
	shared.CodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,

	// Identity
	shared.CodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeTokenRevoked:     http.StatusUnauthorized,
	shared.CodeForbidden:    http.StatusForbidden,

	shared.CodeNotFound: http.StatusNotFound,

	// Concurrency guards; the client may retry
	shared.CodeConflict:         http.StatusConflict,
	shared.CodeAlreadySubmitted: http.StatusConflict,
	shared.CodeSyncInProgress:   http.StatusConflict,

	// Lifecycle rules
	shared.CodeInvalidTransition: http.StatusUnprocessableEntity,
	shared.CodeInvalidState:      http.StatusUnprocessableEntity,

	// Partner bank
	shared.CodeExternalUnavailable: http.StatusBadGateway,
	shared.CodeTimeout:             http.StatusGatewayTimeout,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the status for code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsRetryableCode reports whether a client may repeat a request that failed with code
func IsRetryableCode(code string) bool {
	return shared.IsRetryable(shared.NewDomainError(code, ""))
}
