package handlers

import (
	"net/http"

	"keywe-backend/internal/services"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type FilterHandler struct {
	filterService *services.FilterService
}

func NewFilterHandler(filterService *services.FilterService) *FilterHandler {
	return &FilterHandler{
		filterService: filterService,
	}
}

// GetAllFilters returns all filters with options and property counts
// GET /v1/filters
func (h *FilterHandler) GetAllFilters(c *gin.Context) {
	filters, err := h.filterService.GetFiltersWithCounts(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"filters": filters})
}

// ListFilters returns the taxonomy without counts
// GET /v1/admin/filters
func (h *FilterHandler) ListFilters(c *gin.Context) {
	filters, err := h.filterService.ListFilters(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"filters": filters})
}

// GetFilter returns a single filter
// GET /v1/admin/filters/:id
func (h *FilterHandler) GetFilter(c *gin.Context) {
	filter, err := h.filterService.GetFilter(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, filter)
}

// CreateFilter creates a new filter
// POST /v1/admin/filters
func (h *FilterHandler) CreateFilter(c *gin.Context) {
	var req services.CreateFilterRequest
	if !bindJSON(c, &req) {
		return
	}

	filter, err := h.filterService.CreateFilter(c.Request.Context(), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, filter)
}

// UpdateFilter updates a filter
// PUT /v1/admin/filters/:id
func (h *FilterHandler) UpdateFilter(c *gin.Context) {
	var req services.UpdateFilterRequest
	if !bindJSON(c, &req) {
		return
	}

	filter, err := h.filterService.UpdateFilter(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, filter)
}

// DeleteFilter deletes a filter with its options and tags
// DELETE /v1/admin/filters/:id
func (h *FilterHandler) DeleteFilter(c *gin.Context) {
	if err := h.filterService.DeleteFilter(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Filter deleted successfully"})
}

// CreateOption adds an option to a filter
// POST /v1/admin/filters/:id/options
func (h *FilterHandler) CreateOption(c *gin.Context) {
	var req services.CreateFilterOptionRequest
	if !bindJSON(c, &req) {
		return
	}

	option, err := h.filterService.CreateOption(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, option)
}

// UpdateOption updates an option's label or order
// PUT /v1/admin/filter-options/:id
func (h *FilterHandler) UpdateOption(c *gin.Context) {
	var req services.UpdateFilterOptionRequest
	if !bindJSON(c, &req) {
		return
	}

	option, err := h.filterService.UpdateOption(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, option)
}

// DeleteOption deletes an option and untags every property carrying it
// DELETE /v1/admin/filter-options/:id
func (h *FilterHandler) DeleteOption(c *gin.Context) {
	if err := h.filterService.DeleteOption(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Filter option deleted successfully"})
}
