package handler

import (
	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// PostMessageBody is a text-only chat message
// @Description Chat message content
type PostMessageBody struct {
	Content string `json:"content" binding:"required,max=8000" example:"Please re-upload the charter"`
}

// ListMessagesQuery pages through the chat by sequence number
type ListMessagesQuery struct {
	Since int64 `form:"since" binding:"omitempty,min=0"`
	Limit int   `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListMessages godoc
// @ID           listApplicationMessages
// @Summary      List chat messages after a sequence number
// @Tags         chat
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Param        since query int false "Return messages with sequence greater than this" default(0)
// @Param        limit query int false "Page size"
// @Success      200 {object} APIResponse[apporig.ListMessagesResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/messages [get]
func (h *ApplicationHandler) ListMessages(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var q ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	resp, err := h.service.ListMessages(c.Request.Context(), actor, id, q.Since, q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PostMessage godoc
// @ID           postApplicationMessage
// @Summary      Post a chat message, optionally with an attachment
// @Description  JSON bodies carry text only. multipart/form-data accepts "content" and an optional "file".
// @Tags         chat
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Param        request body PostMessageBody false "Text message"
// @Success      201 {object} APIResponse[apporig.ChatMessageResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      403 {object} dto.ErrorResponse
// @Failure      413 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/messages [post]
func (h *ApplicationHandler) PostMessage(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req apporig.PostMessageRequest
	if isMultipart(c) {
		req.Content = c.PostForm("content")
		if fh, err := c.FormFile("file"); err == nil {
			data, err := h.readUpload(fh)
			if err != nil {
				h.uploadError(c, err)
				return
			}
			req.Attachment = &apporig.AttachmentUpload{
				FileName:    fh.Filename,
				ContentType: partContentType(fh),
				Data:        data,
			}
		}
		if req.Content == "" && req.Attachment == nil {
			h.BadRequest(c, "Message needs content or a file")
			return
		}
	} else {
		var body PostMessageBody
		if err := c.ShouldBindJSON(&body); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
		req.Content = body.Content
	}

	msg, err := h.service.PostMessage(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, msg)
}
