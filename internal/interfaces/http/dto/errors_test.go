package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/finhub/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{shared.CodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{shared.CodeForbidden, http.StatusForbidden},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeConflict, http.StatusConflict},
		{shared.CodeAlreadySubmitted, http.StatusConflict},
		{shared.CodeSyncInProgress, http.StatusConflict},
		{shared.CodeInvalidTransition, http.StatusUnprocessableEntity},
		{shared.CodeInvalidState, http.StatusUnprocessableEntity},
		{shared.CodeExternalUnavailable, http.StatusBadGateway},
		{shared.CodeTimeout, http.StatusGatewayTimeout},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestIsRetryableCode(t *testing.T) {
	assert.True(t, IsRetryableCode(shared.CodeSyncInProgress))
	assert.True(t, IsRetryableCode(shared.CodeAlreadySubmitted))
	assert.True(t, IsRetryableCode(shared.CodeTimeout))
	assert.False(t, IsRetryableCode(shared.CodeForbidden))
	assert.False(t, IsRetryableCode(ErrCodeValidation))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(shared.CodeConflict, "modified", "req-1")

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, "CONFLICT", errInfo["code"])
	assert.Equal(t, true, errInfo["retryable"])
	assert.Equal(t, "req-1", errInfo["request_id"])
	assert.NotContains(t, decoded, "data")
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "amount", Message: "This field is required"}}
	resp := NewValidationErrorResponse("Request validation failed", "", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)
	assert.False(t, resp.Error.Retryable)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total, pages int
	}{
		{0, 0}, {1, 1}, {20, 1}, {21, 2}, {100, 5},
	}
	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta([]int{}, int64(tt.total), 1, 20)
		assert.Equal(t, tt.pages, resp.Meta.TotalPages, "total=%d", tt.total)
	}
}

func TestListRequest_Normalize(t *testing.T) {
	req := ListRequest{}
	req.Normalize()
	assert.Equal(t, ListRequest{Page: 1, PageSize: 20, OrderBy: "created_at", OrderDir: "desc"}, req)

	req = ListRequest{Page: 3, PageSize: 50, OrderBy: "amount", OrderDir: "asc"}
	req.Normalize()
	assert.Equal(t, 3, req.Page)
	assert.Equal(t, "amount", req.OrderBy)
}
