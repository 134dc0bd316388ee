package handler

import "github.com/gin-gonic/gin"

// SubmitToBank godoc
// @ID           submitApplicationToBank
// @Summary      Create the bank ticket for a reviewed application
// @Tags         bank
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Success      200 {object} APIResponse[apporig.BankSubmitResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      422 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Failure      504 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/bank/submit [post]
func (h *ApplicationHandler) SubmitToBank(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.SubmitToBank(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RefreshBankStatus godoc
// @ID           refreshApplicationBankStatus
// @Summary      Pull the current bank status and apply it
// @Tags         bank
// @Produce      json
// @Param        id path string true "Application ID" format(uuid)
// @Success      200 {object} APIResponse[apporig.BankRefreshResponse]
// @Failure      403 {object} dto.ErrorResponse
// @Failure      409 {object} dto.ErrorResponse
// @Failure      502 {object} dto.ErrorResponse
// @Failure      504 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /applications/{id}/bank/refresh [post]
func (h *ApplicationHandler) RefreshBankStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.service.RefreshBankStatus(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
