package handlers

import (
	"net/http"

	"keywe-backend/internal/middleware"
	"keywe-backend/internal/services"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type LeadHandler struct {
	leadService *services.LeadService
}

func NewLeadHandler(leadService *services.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// CreateLead records a buyer enquiry for a verified project
// POST /v1/projects/:id/leads
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req services.LeadInput
	if !bindJSON(c, &req) {
		return
	}
	lead, err := h.leadService.CreateLead(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Enquiry sent", "data": lead})
}

// ListLeads is the builder's inbox
// GET /v1/builder/leads?project_id=&status=&page=
func (h *LeadHandler) ListLeads(c *gin.Context) {
	page, err := h.leadService.ListLeads(c.Request.Context(), middleware.CurrentUser(c), services.LeadQuery{
		ProjectID: c.Query("project_id"),
		Status:    c.Query("status"),
		Page:      pageParam(c),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// MarkContacted flags a lead as contacted
// POST /v1/builder/leads/:id/contacted
func (h *LeadHandler) MarkContacted(c *gin.Context) {
	lead, err := h.leadService.MarkContacted(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}
