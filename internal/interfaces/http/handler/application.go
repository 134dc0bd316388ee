package handler

import (
	"context"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/interfaces/http/dto"
	"github.com/finhub/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplicationService is the application API consumed by the handlers
type ApplicationService interface {
	CreateDraft(ctx context.Context, actor origination.ActorContext, req apporig.CreateDraftRequest) (*apporig.ApplicationResponse, error)
	GetApplication(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error)
	ListApplications(ctx context.Context, actor origination.ActorContext, filter apporig.ApplicationListFilter) ([]apporig.ApplicationResponse, int64, error)
	FindStalled(ctx context.Context, actor origination.ActorContext) ([]apporig.ApplicationResponse, error)

	SubmitApplication(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error)
	StartReview(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error)
	RequestInfo(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.TransitionRequest) (*apporig.ApplicationResponse, error)
	Approve(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.TransitionRequest) (*apporig.ApplicationResponse, error)
	Reject(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.TransitionRequest) (*apporig.ApplicationResponse, error)
	ConfirmSigned(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error)
	Complete(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error)

	ListDocuments(ctx context.Context, actor origination.ActorContext, id uuid.UUID) ([]apporig.DocumentResponse, error)
	InitiateDocumentUpload(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.InitiateUploadRequest) (*apporig.InitiateUploadResponse, error)
	UploadDocument(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.UploadDocumentRequest) (*apporig.DocumentResponse, error)
	ReviewDocument(ctx context.Context, actor origination.ActorContext, id, documentID uuid.UUID, req apporig.ReviewDocumentRequest) (*apporig.ReviewDocumentResponse, error)

	SubmitToBank(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.BankSubmitResponse, error)
	RefreshBankStatus(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.BankRefreshResponse, error)

	PostMessage(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.PostMessageRequest) (*apporig.ChatMessageResponse, error)
	ListMessages(ctx context.Context, actor origination.ActorContext, id uuid.UUID, since int64, limit int) (*apporig.ListMessagesResponse, error)
}

var _ ApplicationService = (*apporig.ApplicationService)(nil)

// ApplicationHandler serves the /applications API
type ApplicationHandler struct {
	BaseHandler
	service        ApplicationService
	maxUploadBytes int64
}

// NewApplicationHandler creates the handler. maxUploadBytes bounds multipart
// file parts for documents and chat attachments.
func NewApplicationHandler(service ApplicationService, maxUploadBytes int64) *ApplicationHandler {
	return &ApplicationHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts the application routes on rg
func (h *ApplicationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	apps := rg.Group("/applications")
	apps.POST("", h.Create)
	apps.GET("", h.List)
	apps.GET("/stalled", h.ListStalled)
	apps.GET("/:id", h.Get)

	apps.POST("/:id/submit", h.Submit)
	apps.POST("/:id/start-review", h.StartReview)
	apps.POST("/:id/request-info", h.RequestInfo)
	apps.POST("/:id/approve", h.Approve)
	apps.POST("/:id/reject", h.Reject)
	apps.POST("/:id/confirm-signed", h.ConfirmSigned)
	apps.POST("/:id/complete", h.Complete)

	apps.GET("/:id/documents", h.ListDocuments)
	apps.POST("/:id/documents", h.UploadDocument)
	apps.POST("/:id/documents/upload-url", h.InitiateUpload)
	apps.POST("/:id/documents/:document_id/review", h.ReviewDocument)

	apps.POST("/:id/bank/submit", h.SubmitToBank)
	apps.POST("/:id/bank/refresh", h.RefreshBankStatus)

	apps.GET("/:id/messages", h.ListMessages)
	apps.POST("/:id/messages", h.PostMessage)
}

// CreateApplicationRequest is the body of POST /applications
// @Description Request body for creating a draft application
type CreateApplicationRequest struct {
	ProductType  string          `json:"product_type" binding:"required,product_type" example:"bank_guarantee"`
	Amount       decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"750000.00"`
	TermMonths   int             `json:"term_months" binding:"required,min=1,max=360" example:"12"`
	TargetBankID string          `json:"target_bank_id" binding:"required,uuid" example:"6f1c7c1e-8a4e-4d59-9a4b-2a1f1e7d3c11"`
	Notes        string          `json:"notes" binding:"max=4000" example:"Tender #2024-118"`
}

// ListApplicationsQuery holds the list filters
type ListApplicationsQuery struct {
	dto.ListRequest
	Status       string `form:"status" binding:"omitempty,oneof=draft submitted pending_review sent_to_bank info_requested approved rejected signed completed"`
	ProductType  string `form:"product_type" binding:"omitempty,product_type"`
	TargetBankID string `form:"target_bank_id" binding:"omitempty,uuid"`
}

// TransitionBody carries an optional comment for review transitions
// @Description Optional comment recorded with the transition
type TransitionBody struct {
	Comment string `json:"comment" binding:"max=2000" example:"Missing signature on page 3"`
}

// Create godoc
// @ID           createApplication
// @Summary      Create a draft application
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        request body CreateApplicationRequest true "Draft application"
// @Success      201 {object} APIResponse[apporig.ApplicationResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.CreateDraft(c.Request.Context(), actor, apporig.CreateDraftRequest{
		ProductType:  origination.ProductType(req.ProductType),
		Amount:       req.Amount,
		TermMonths:   req.TermMonths,
		TargetBankID: uuid.MustParse(req.TargetBankID),
		Notes:        req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List godoc
// @ID           listApplications
// @Summary      List applications visible to the caller
// @Tags         applications
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        order_by query string false "Sort field" Enums(created_at, updated_at, status_changed_at, amount)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Param        status query string false "Lifecycle status"
// @Param        product_type query string false "Product type"
// @Param        target_bank_id query string false "Target bank"
// @Success      200 {object} APIResponse[[]apporig.ApplicationResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q ListApplicationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	q.Normalize()

	filter := apporig.ApplicationListFilter{
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
	}
	if q.Status != "" {
		status := origination.ApplicationStatus(q.Status)
		filter.Status = &status
	}
	if q.ProductType != "" {
		product := origination.ProductType(q.ProductType)
		filter.ProductType = &product
	}
	if q.TargetBankID != "" {
		bankID := uuid.MustParse(q.TargetBankID)
		filter.TargetBankID = &bankID
	}

	apps, total, err := h.service.ListApplications(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, apps, total, q.Page, q.PageSize)
}

// ListStalled godoc
// @ID           listStalledApplications
// @Summary      List applications without progress past the stalled threshold
// @Tags         applications
// @Produce      json
// @Success      200 {object} APIResponse[[]apporig.ApplicationResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/stalled [get]
func (h *ApplicationHandler) ListStalled(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	apps, err := h.service.FindStalled(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apps)
}

// Get godoc
// @ID           getApplication
// @Summary      Get an application
// @Tags         applications
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Success      200 {object} APIResponse[apporig.ApplicationResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.GetApplication(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

type transitionFunc func(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error)

type commentedTransitionFunc func(ctx context.Context, actor origination.ActorContext, id uuid.UUID, req apporig.TransitionRequest) (*apporig.ApplicationResponse, error)

func (h *ApplicationHandler) runTransition(c *gin.Context, fn transitionFunc) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *ApplicationHandler) runCommentedTransition(c *gin.Context, fn commentedTransitionFunc) {
	var body TransitionBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}
	h.runTransition(c, func(ctx context.Context, actor origination.ActorContext, id uuid.UUID) (*apporig.ApplicationResponse, error) {
		return fn(ctx, actor, id, apporig.TransitionRequest{Comment: body.Comment})
	})
}

// Submit godoc
// @ID           submitApplication
// @Summary      Submit a draft for review
// @Tags         applications
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Success      200 {object} APIResponse[apporig.ApplicationResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/submit [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	h.runTransition(c, h.service.SubmitApplication)
}

// StartReview godoc
// @ID           startApplicationReview
// @Summary      Take a submitted application into review
// @Tags         applications
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Success      200 {object} APIResponse[apporig.ApplicationResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/start-review [post]
func (h *ApplicationHandler) StartReview(c *gin.Context) {
	h.runTransition(c, h.service.StartReview)
}

// RequestInfo godoc
// @ID           requestApplicationInfo
// @Summary      Ask the applicant for more information
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Param        request body TransitionBody false "Comment"
// @Success      200 {object} APIResponse[apporig.ApplicationResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/request-info [post]
func (h *ApplicationHandler) RequestInfo(c *gin.Context) {
	h.runCommentedTransition(c, h.service.RequestInfo)
}

// Approve godoc
// @ID           approveApplication
// @Summary      Record the bank's approval
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Param        request body TransitionBody false "Comment"
// @Success      200 {object} APIResponse[apporig.ApplicationResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/approve [post]
func (h *ApplicationHandler) Approve(c *gin.Context) {
	h.runCommentedTransition(c, h.service.Approve)
}

// Reject godoc
// @ID           rejectApplication
// @Summary      Reject an application
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Param        request body TransitionBody false "Comment"
// @Success      200 {object} APIResponse[apporig.ApplicationResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/reject [post]
func (h *ApplicationHandler) Reject(c *gin.Context) {
	h.runCommentedTransition(c, h.service.Reject)
}

// ConfirmSigned godoc
// @ID           confirmApplicationSigned
// @Summary      Confirm the contract was signed
// @Tags         applications
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Success      200 {object} APIResponse[apporig.ApplicationResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/confirm-signed [post]
func (h *ApplicationHandler) ConfirmSigned(c *gin.Context) {
	h.runTransition(c, h.service.ConfirmSigned)
}

// Complete godoc
// @ID           completeApplication
// @Summary      Close a signed application
// @Tags         applications
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Success      200 {object} APIResponse[apporig.ApplicationResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/complete [post]
func (h *ApplicationHandler) Complete(c *gin.Context) {
	h.runTransition(c, h.service.Complete)
}
