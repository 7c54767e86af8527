package handlers

import (
	"net/http"

	"keywe-backend/internal/middleware"
	"keywe-backend/internal/models"
	"keywe-backend/internal/services"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// ListProjects lists the builder's projects
// GET /v1/builder/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page, err := h.projectService.ListBuilderProjects(c.Request.Context(), middleware.CurrentUser(c), pageParam(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetProject returns one owned project
// GET /v1/builder/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetBuilderProject(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// CreateProject stores a draft project
// POST /v1/builder/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req services.ProjectInput
	if !bindJSON(c, &req) {
		return
	}
	project, err := h.projectService.CreateProject(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// UpdateProject edits an owned project
// PUT /v1/builder/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	var req services.ProjectInput
	if !bindJSON(c, &req) {
		return
	}
	project, err := h.projectService.UpdateProject(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject removes an owned project and everything under it
// DELETE /v1/builder/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.projectService.DeleteProject(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// SubmitProject sends a project for admin review
// POST /v1/builder/projects/:id/submit
func (h *ProjectHandler) SubmitProject(c *gin.Context) {
	project, err := h.projectService.SubmitProject(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// UploadDocuments attaches brochures or approvals to an owned project
// POST /v1/builder/projects/:id/documents
func (h *ProjectHandler) UploadDocuments(c *gin.Context) {
	files, closeFiles, err := formFiles(c, "documents")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	defer closeFiles()

	attachments, err := h.projectService.AddDocuments(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), models.GroupDocument, files)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachments": attachments})
}

// AdminListProjects is the review queue
// GET /v1/admin/projects?status=pending
func (h *ProjectHandler) AdminListProjects(c *gin.Context) {
	page, err := h.projectService.AdminListProjects(c.Request.Context(), c.Query("status"), pageParam(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ApproveProject marks a project verified
// POST /v1/admin/projects/:id/approve
func (h *ProjectHandler) ApproveProject(c *gin.Context) {
	project, err := h.projectService.ApproveProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// RejectProject marks a project rejected with an optional reason
// POST /v1/admin/projects/:id/reject
func (h *ProjectHandler) RejectProject(c *gin.Context) {
	var req services.RejectRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	project, err := h.projectService.RejectProject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}
