package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/finhub/backend/internal/interfaces/http/dto"
	"github.com/finhub/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func newTestEngine(svc ApplicationService, actor *origination.ActorContext, maxUpload int64) *gin.Engine {
	engine := gin.New()
	api := engine.Group("/api/v1")
	if actor != nil {
		api.Use(func(c *gin.Context) {
			c.Set(middleware.ActorKey, *actor)
			c.Next()
		})
	}
	NewApplicationHandler(svc, maxUpload).RegisterRoutes(api)
	return engine
}

func do(t *testing.T, engine *gin.Engine, method, path string, body io.Reader, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func clientActor() *origination.ActorContext {
	return &origination.ActorContext{UserID: uuid.New(), Role: origination.RoleClient}
}

func TestApplicationHandler_Create(t *testing.T) {
	actor := clientActor()
	bankID := uuid.New()

	t.Run("creates draft", func(t *testing.T) {
		svc := new(MockApplicationService)
		appID := uuid.New()
		svc.On("CreateDraft", mock.Anything, *actor, mock.MatchedBy(func(req apporig.CreateDraftRequest) bool {
			return req.ProductType == origination.ProductBankGuarantee &&
				req.Amount.Equal(decimal.RequireFromString("750000")) &&
				req.TermMonths == 12 &&
				req.TargetBankID == bankID
		})).Return(&apporig.ApplicationResponse{ID: appID, Status: "draft"}, nil)

		w, env := do(t, newTestEngine(svc, actor, 0), http.MethodPost, "/api/v1/applications", jsonBody(t, map[string]any{
			"product_type":   "bank_guarantee",
			"amount":         "750000.00",
			"term_months":    12,
			"target_bank_id": bankID.String(),
		}), "application/json")

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Success)
		var got apporig.ApplicationResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, appID, got.ID)
		svc.AssertExpectations(t)
	})

	t.Run("rejects unknown product", func(t *testing.T) {
		svc := new(MockApplicationService)
		w, env := do(t, newTestEngine(svc, actor, 0), http.MethodPost, "/api/v1/applications", jsonBody(t, map[string]any{
			"product_type":   "mortgage",
			"amount":         "100",
			"term_months":    12,
			"target_bank_id": bankID.String(),
		}), "application/json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		require.Len(t, env.Error.Details, 1)
		assert.Equal(t, "product_type", env.Error.Details[0].Field)
		svc.AssertNotCalled(t, "CreateDraft")
	})

	t.Run("requires actor", func(t *testing.T) {
		svc := new(MockApplicationService)
		w, env := do(t, newTestEngine(svc, nil, 0), http.MethodPost, "/api/v1/applications", strings.NewReader("{}"), "application/json")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, shared.CodeUnauthorized, env.Error.Code)
	})
}

func TestApplicationHandler_List(t *testing.T) {
	actor := clientActor()
	svc := new(MockApplicationService)
	svc.On("ListApplications", mock.Anything, *actor, mock.MatchedBy(func(f apporig.ApplicationListFilter) bool {
		return f.Page == 2 && f.PageSize == 5 && f.OrderBy == "created_at" && f.OrderDir == "desc" &&
			f.Status != nil && *f.Status == origination.StatusSubmitted &&
			f.ProductType == nil && f.TargetBankID == nil
	})).Return([]apporig.ApplicationResponse{{ID: uuid.New()}}, int64(11), nil)

	w, env := do(t, newTestEngine(svc, actor, 0), http.MethodGet, "/api/v1/applications?page=2&page_size=5&status=submitted", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(11), env.Meta.Total)
	assert.Equal(t, 3, env.Meta.TotalPages)
	svc.AssertExpectations(t)
}

func TestApplicationHandler_Get(t *testing.T) {
	actor := clientActor()

	t.Run("invalid id", func(t *testing.T) {
		w, env := do(t, newTestEngine(new(MockApplicationService), actor, 0), http.MethodGet, "/api/v1/applications/not-a-uuid", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockApplicationService)
		id := uuid.New()
		svc.On("GetApplication", mock.Anything, *actor, id).Return(nil, shared.ErrNotFound)

		w, env := do(t, newTestEngine(svc, actor, 0), http.MethodGet, "/api/v1/applications/"+id.String(), nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, shared.CodeNotFound, env.Error.Code)
		assert.False(t, env.Error.Retryable)
	})

	t.Run("forbidden", func(t *testing.T) {
		svc := new(MockApplicationService)
		id := uuid.New()
		svc.On("GetApplication", mock.Anything, *actor, id).Return(nil, shared.ErrForbidden)

		w, _ := do(t, newTestEngine(svc, actor, 0), http.MethodGet, "/api/v1/applications/"+id.String(), nil, "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestApplicationHandler_Transitions(t *testing.T) {
	actor := &origination.ActorContext{UserID: uuid.New(), Role: origination.RoleAgent}
	id := uuid.New()

	t.Run("submit maps invalid transition to 422", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("SubmitApplication", mock.Anything, *actor, id).Return(nil, shared.ErrInvalidTransition)

		w, env := do(t, newTestEngine(svc, actor, 0), http.MethodPost, "/api/v1/applications/"+id.String()+"/submit", nil, "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, shared.CodeInvalidTransition, env.Error.Code)
	})

	t.Run("request info passes comment", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("RequestInfo", mock.Anything, *actor, id, apporig.TransitionRequest{Comment: "need charter"}).
			Return(&apporig.ApplicationResponse{ID: id, Status: "info_requested"}, nil)

		w, _ := do(t, newTestEngine(svc, actor, 0), http.MethodPost, "/api/v1/applications/"+id.String()+"/request-info",
			jsonBody(t, map[string]string{"comment": "need charter"}), "application/json")
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("reject without body", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("Reject", mock.Anything, *actor, id, apporig.TransitionRequest{}).
			Return(&apporig.ApplicationResponse{ID: id, Status: "rejected"}, nil)

		w, _ := do(t, newTestEngine(svc, actor, 0), http.MethodPost, "/api/v1/applications/"+id.String()+"/reject", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("sync in progress is retryable conflict", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("ConfirmSigned", mock.Anything, *actor, id).Return(nil, shared.ErrSyncInProgress)

		w, env := do(t, newTestEngine(svc, actor, 0), http.MethodPost, "/api/v1/applications/"+id.String()+"/confirm-signed", nil, "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.True(t, env.Error.Retryable)
	})
}

func TestApplicationHandler_Bank(t *testing.T) {
	actor := &origination.ActorContext{UserID: uuid.New(), Role: origination.RoleAgent}
	id := uuid.New()

	t.Run("submit returns ticket", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("SubmitToBank", mock.Anything, *actor, id).Return(&apporig.BankSubmitResponse{
			Application: apporig.ApplicationResponse{ID: id, Status: "sent_to_bank"},
			TicketID:    "T-1",
		}, nil)

		w, env := do(t, newTestEngine(svc, actor, 0), http.MethodPost, "/api/v1/applications/"+id.String()+"/bank/submit", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
		var got apporig.BankSubmitResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "T-1", got.TicketID)
	})

	t.Run("bank outage", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("RefreshBankStatus", mock.Anything, *actor, id).
			Return(nil, shared.NewDomainError(shared.CodeExternalUnavailable, "Bank is unavailable"))

		w, env := do(t, newTestEngine(svc, actor, 0), http.MethodPost, "/api/v1/applications/"+id.String()+"/bank/refresh", nil, "")
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.True(t, env.Error.Retryable)
	})
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestApplicationHandler_UploadDocument(t *testing.T) {
	actor := clientActor()
	id := uuid.New()

	t.Run("multipart upload", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("UploadDocument", mock.Anything, *actor, id, apporig.UploadDocumentRequest{
			Type:        origination.DocumentCharter,
			FileName:    "charter.pdf",
			ContentType: "application/octet-stream",
			Size:        5,
			Data:        []byte("%PDF-"),
		}).Return(&apporig.DocumentResponse{ApplicationID: id, Version: 1, Status: "pending"}, nil)

		body, ct := multipartBody(t, map[string]string{"type": "charter"}, "charter.pdf", []byte("%PDF-"))
		w, _ := do(t, newTestEngine(svc, actor, 1024), http.MethodPost, "/api/v1/applications/"+id.String()+"/documents", body, ct)
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("file too large", func(t *testing.T) {
		svc := new(MockApplicationService)
		body, ct := multipartBody(t, map[string]string{"type": "charter"}, "charter.pdf", bytes.Repeat([]byte("x"), 64))
		w, env := do(t, newTestEngine(svc, actor, 16), http.MethodPost, "/api/v1/applications/"+id.String()+"/documents", body, ct)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, env.Error.Code)
		svc.AssertNotCalled(t, "UploadDocument")
	})

	t.Run("unknown type", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"type": "selfie"}, "a.jpg", []byte("x"))
		w, _ := do(t, newTestEngine(new(MockApplicationService), actor, 1024), http.MethodPost, "/api/v1/applications/"+id.String()+"/documents", body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("completes pre-signed upload", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("UploadDocument", mock.Anything, *actor, id, apporig.UploadDocumentRequest{
			Type:        origination.DocumentPassport,
			FileName:    "passport.jpg",
			ContentType: "image/jpeg",
			Size:        2048,
			StorageKey:  "applications/x/passport/1",
		}).Return(&apporig.DocumentResponse{ApplicationID: id, Version: 1}, nil)

		w, _ := do(t, newTestEngine(svc, actor, 1024), http.MethodPost, "/api/v1/applications/"+id.String()+"/documents", jsonBody(t, map[string]any{
			"type":         "passport",
			"file_name":    "passport.jpg",
			"content_type": "image/jpeg",
			"size":         2048,
			"storage_key":  "applications/x/passport/1",
		}), "application/json")
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestApplicationHandler_ReviewDocument(t *testing.T) {
	actor := &origination.ActorContext{UserID: uuid.New(), Role: origination.RoleAgent}
	id, docID := uuid.New(), uuid.New()

	svc := new(MockApplicationService)
	svc.On("ReviewDocument", mock.Anything, *actor, id, docID, apporig.ReviewDocumentRequest{
		Outcome: origination.DocumentStatusRejected,
		Comment: "blurry",
	}).Return(&apporig.ReviewDocumentResponse{Resolved: false}, nil)

	engine := newTestEngine(svc, actor, 0)
	path := "/api/v1/applications/" + id.String() + "/documents/" + docID.String() + "/review"

	w, _ := do(t, engine, http.MethodPost, path, jsonBody(t, map[string]string{"outcome": "rejected", "comment": "blurry"}), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, engine, http.MethodPost, path, jsonBody(t, map[string]string{"outcome": "pending"}), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	svc.AssertNumberOfCalls(t, "ReviewDocument", 1)
}

func TestApplicationHandler_Chat(t *testing.T) {
	actor := clientActor()
	id := uuid.New()

	t.Run("list with cursor", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("ListMessages", mock.Anything, *actor, id, int64(7), 50).
			Return(&apporig.ListMessagesResponse{NextSince: 9, HasMore: true}, nil)

		w, env := do(t, newTestEngine(svc, actor, 0), http.MethodGet, "/api/v1/applications/"+id.String()+"/messages?since=7&limit=50", nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
		var got apporig.ListMessagesResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, int64(9), got.NextSince)
		assert.True(t, got.HasMore)
	})

	t.Run("post text", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("PostMessage", mock.Anything, *actor, id, apporig.PostMessageRequest{Content: "hello"}).
			Return(&apporig.ChatMessageResponse{Sequence: 1, Content: "hello"}, nil)

		w, _ := do(t, newTestEngine(svc, actor, 0), http.MethodPost, "/api/v1/applications/"+id.String()+"/messages",
			jsonBody(t, map[string]string{"content": "hello"}), "application/json")
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("post attachment", func(t *testing.T) {
		svc := new(MockApplicationService)
		svc.On("PostMessage", mock.Anything, *actor, id, apporig.PostMessageRequest{
			Attachment: &apporig.AttachmentUpload{FileName: "scan.png", ContentType: "application/octet-stream", Data: []byte("png")},
		}).Return(&apporig.ChatMessageResponse{Sequence: 2}, nil)

		body, ct := multipartBody(t, nil, "scan.png", []byte("png"))
		w, _ := do(t, newTestEngine(svc, actor, 1024), http.MethodPost, "/api/v1/applications/"+id.String()+"/messages", body, ct)
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("empty multipart", func(t *testing.T) {
		body, ct := multipartBody(t, map[string]string{"content": ""}, "", nil)
		w, _ := do(t, newTestEngine(new(MockApplicationService), actor, 1024), http.MethodPost, "/api/v1/applications/"+id.String()+"/messages", body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBaseHandler_HandleErrorUnknown(t *testing.T) {
	actor := clientActor()
	svc := new(MockApplicationService)
	svc.On("FindStalled", mock.Anything, *actor).Return(nil, assert.AnError)

	w, env := do(t, newTestEngine(svc, actor, 0), http.MethodGet, "/api/v1/applications/stalled", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrCodeInternal, env.Error.Code)
	assert.NotContains(t, env.Error.Message, assert.AnError.Error())
}
