package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"keywe-backend/internal/middleware"
	"keywe-backend/internal/services"
	"keywe-backend/internal/storage"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type AttachmentHandler struct {
	attachmentService *services.AttachmentService
}

func NewAttachmentHandler(attachmentService *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// DownloadAttachment streams an attachment the caller owns
// GET /v1/builder/attachments/:id
func (h *AttachmentHandler) DownloadAttachment(c *gin.Context) {
	attachment, err := h.attachmentService.OwnedAttachment(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	reader, err := h.attachmentService.Open(c.Request.Context(), attachment)
	if err != nil {
		utils.RespondError(c, utils.WrapInternal(err, "failed to read attachment"))
		return
	}
	defer reader.Close()

	contentType := attachment.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, attachment.Size, contentType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, attachment.OriginalName),
	})
}

// DeleteAttachment removes an attachment the caller owns
// DELETE /v1/builder/attachments/:id
func (h *AttachmentHandler) DeleteAttachment(c *gin.Context) {
	if err := h.attachmentService.DeleteOwned(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted successfully"})
}

// ServeLocalFile serves a signed local storage URL
// GET /files/*filepath?expires=...&signature=...
func ServeLocalFile(client *storage.LocalStorageClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		objectName := strings.TrimPrefix(c.Param("filepath"), "/")
		if objectName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file path required"})
			return
		}

		signature := c.Query("signature")
		expiresAt, err := strconv.ParseInt(c.Query("expires"), 10, 64)
		if signature == "" || err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "signed URL required"})
			return
		}

		fullPath, err := client.ResolveSigned(objectName, expiresAt, signature)
		switch {
		case errors.Is(err, storage.ErrInvalidPath):
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid file path"})
			return
		case errors.Is(err, storage.ErrInvalidSignature):
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired signature"})
			return
		case err != nil:
			utils.RespondError(c, err)
			return
		}

		c.File(fullPath)
	}
}
