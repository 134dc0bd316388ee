package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/interfaces/http/dto"
	"github.com/finhub/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

var errFileTooLarge = errors.New("file exceeds the upload limit")

// InitiateUploadBody requests a pre-signed upload URL
// @Description Metadata of the document the client is about to upload directly to storage
type InitiateUploadBody struct {
	Type        string `json:"type" binding:"required,document_type" example:"charter"`
	FileName    string `json:"file_name" binding:"required,max=255" example:"charter.pdf"`
	ContentType string `json:"content_type" binding:"required,max=127" example:"application/pdf"`
	Size        int64  `json:"size" binding:"required,min=1" example:"204800"`
}

// CompleteUploadBody registers a document already uploaded via a pre-signed URL
// @Description Registers a document whose bytes were uploaded to storage directly
type CompleteUploadBody struct {
	Type        string `json:"type" binding:"required,document_type" example:"charter"`
	FileName    string `json:"file_name" binding:"required,max=255" example:"charter.pdf"`
	ContentType string `json:"content_type" binding:"required,max=127" example:"application/pdf"`
	Size        int64  `json:"size" binding:"required,min=1" example:"204800"`
	StorageKey  string `json:"storage_key" binding:"required,max=512"`
}

// ReviewDocumentBody is the reviewer's verdict on a document version
// @Description Review outcome for a pending document
type ReviewDocumentBody struct {
	Outcome string `json:"outcome" binding:"required,oneof=verified rejected" example:"rejected"`
	Comment string `json:"comment" binding:"max=2000" example:"Scan is unreadable"`
}

// ListDocuments godoc
// @ID           listApplicationDocuments
// @Summary      List all document versions of an application
// @Tags         documents
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Success      200 {object} APIResponse[[]apporig.DocumentResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/documents [get]
func (h *ApplicationHandler) ListDocuments(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	docs, err := h.service.ListDocuments(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, docs)
}

// InitiateUpload godoc
// @ID           initiateDocumentUpload
// @Summary      Get a pre-signed URL for a direct document upload
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Param        request body InitiateUploadBody true "Document metadata"
// @Success      200 {object} APIResponse[apporig.InitiateUploadResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/documents/upload-url [post]
func (h *ApplicationHandler) InitiateUpload(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var body InitiateUploadBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	resp, err := h.service.InitiateDocumentUpload(c.Request.Context(), actor, id, apporig.InitiateUploadRequest{
		Type:        origination.DocumentType(body.Type),
		FileName:    body.FileName,
		ContentType: body.ContentType,
		Size:        body.Size,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UploadDocument godoc
// @ID           uploadDocument
// @Summary      Upload a new document version
// @Description  Accepts either multipart/form-data with "type" and "file" fields,
// @Description  or a JSON CompleteUploadBody for bytes already stored via a pre-signed URL.
// @Tags         documents
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Param        type formData string false "Document type"
// @Param        file formData file false "Document file"
// @Success      201 {object} APIResponse[apporig.DocumentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      413 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/documents [post]
func (h *ApplicationHandler) UploadDocument(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req apporig.UploadDocumentRequest
	if isMultipart(c) {
		docType := origination.DocumentType(c.PostForm("type"))
		if !docType.IsValid() {
			h.BadRequest(c, "Unknown document type")
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			h.BadRequest(c, "Missing file")
			return
		}
		data, err := h.readUpload(fh)
		if err != nil {
			h.uploadError(c, err)
			return
		}
		req = apporig.UploadDocumentRequest{
			Type:        docType,
			FileName:    fh.Filename,
			ContentType: partContentType(fh),
			Size:        int64(len(data)),
			Data:        data,
		}
	} else {
		var body CompleteUploadBody
		if err := c.ShouldBindJSON(&body); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
		req = apporig.UploadDocumentRequest{
			Type:        origination.DocumentType(body.Type),
			FileName:    body.FileName,
			ContentType: body.ContentType,
			Size:        body.Size,
			StorageKey:  body.StorageKey,
		}
	}

	doc, err := h.service.UploadDocument(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// ReviewDocument godoc
// @ID           reviewDocument
// @Summary      Verify or reject a pending document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Param        document_id path string true "Document ID" format(uuid)
// @Param        request body ReviewDocumentBody true "Review outcome"
// @Success      200 {object} APIResponse[apporig.ReviewDocumentResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/documents/{document_id}/review [post]
func (h *ApplicationHandler) ReviewDocument(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	docID, ok := h.uuidParam(c, "document_id")
	if !ok {
		return
	}
	var body ReviewDocumentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	resp, err := h.service.ReviewDocument(c.Request.Context(), actor, id, docID, apporig.ReviewDocumentRequest{
		Outcome: origination.DocumentStatus(body.Outcome),
		Comment: body.Comment,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func partContentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// readUpload reads a multipart file part, refusing anything over maxUploadBytes
func (h *ApplicationHandler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return nil, errFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxUploadBytes > 0 {
		r = io.LimitReader(f, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
		return nil, errFileTooLarge
	}
	return data, nil
}

func (h *ApplicationHandler) uploadError(c *gin.Context, err error) {
	if errors.Is(err, errFileTooLarge) {
		h.Error(c, dto.ErrCodeRequestTooLarge, fmt.Sprintf("File exceeds %d bytes", h.maxUploadBytes))
		return
	}
	h.HandleError(c, err)
}

