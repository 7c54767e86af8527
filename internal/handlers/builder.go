package handlers

import (
	"net/http"

	"keywe-backend/internal/middleware"
	"keywe-backend/internal/services"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type BuilderHandler struct {
	builderService *services.BuilderService
}

func NewBuilderHandler(builderService *services.BuilderService) *BuilderHandler {
	return &BuilderHandler{builderService: builderService}
}

// UploadKYC adds KYC documents to the caller's builder account
// POST /v1/builder/kyc
func (h *BuilderHandler) UploadKYC(c *gin.Context) {
	files, closeFiles, err := formFiles(c, "kyc_documents")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	defer closeFiles()

	attachments, err := h.builderService.UploadKYC(c.Request.Context(), middleware.CurrentUser(c), files)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachments": attachments})
}

// ListBuilders is the builder review queue
// GET /v1/admin/builders?status=pending
func (h *BuilderHandler) ListBuilders(c *gin.Context) {
	page, err := h.builderService.ListBuilders(c.Request.Context(), c.Query("status"), pageParam(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetBuilder returns one builder with signed KYC links
// GET /v1/admin/builders/:id
func (h *BuilderHandler) GetBuilder(c *gin.Context) {
	builder, err := h.builderService.GetBuilder(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, builder)
}

// ApproveBuilder verifies a builder account
// POST /v1/admin/builders/:id/approve
func (h *BuilderHandler) ApproveBuilder(c *gin.Context) {
	builder, err := h.builderService.ApproveBuilder(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, builder)
}

// RejectBuilder rejects a builder account with an optional reason
// POST /v1/admin/builders/:id/reject
func (h *BuilderHandler) RejectBuilder(c *gin.Context) {
	var req services.RejectRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	builder, err := h.builderService.RejectBuilder(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, builder)
}
