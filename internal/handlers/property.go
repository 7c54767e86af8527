package handlers

import (
	"net/http"
	"strings"

	"keywe-backend/internal/middleware"
	"keywe-backend/internal/services"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type PropertyHandler struct {
	propertyService *services.PropertyService
	taggingService  *services.TaggingService
	brochureService *services.BrochureService
	locationService *services.LocationService
	statsService    *services.StatisticsService
}

func NewPropertyHandler(
	propertyService *services.PropertyService,
	taggingService *services.TaggingService,
	brochureService *services.BrochureService,
	locationService *services.LocationService,
	statsService *services.StatisticsService,
) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
		taggingService:  taggingService,
		brochureService: brochureService,
		locationService: locationService,
		statsService:    statsService,
	}
}

// facetFilters reads filters[<slug>]=a,b query parameters.
func facetFilters(c *gin.Context) map[string][]string {
	raw := c.QueryMap("filters")
	if len(raw) == 0 {
		return nil
	}
	filters := make(map[string][]string, len(raw))
	for slug, values := range raw {
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				filters[slug] = append(filters[slug], v)
			}
		}
	}
	return filters
}

// ListProperties searches listings. Without a search term the declared
// location, or else the city detected from the caller's IP, narrows the list.
// GET /v1/properties
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	query := services.PropertyQuery{
		Search:  strings.TrimSpace(c.Query("search")),
		Filters: facetFilters(c),
		Page:    pageParam(c),
	}

	var detected string
	if query.Search == "" {
		if location := strings.TrimSpace(c.Query("location")); location != "" {
			query.AutoCity = location
		} else if h.locationService != nil {
			ip := h.locationService.ResolveClientIP(c.GetHeader("X-Forwarded-For"), c.RemoteIP())
			detected = h.locationService.DetectCity(c.Request.Context(), ip)
			query.AutoCity = detected
		}
	}

	page, err := h.propertyService.ListProperties(c.Request.Context(), query)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if query.Search != "" && h.statsService != nil {
		if err := h.statsService.RecordSearch(c.Request.Context()); err != nil {
			log.Warn().Err(err).Msg("failed to record search")
		}
	}

	var detectedLocation interface{}
	if detected != "" {
		detectedLocation = detected
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Properties fetched successfully",
		"meta":    gin.H{"detected_location": detectedLocation},
		"data":    page,
	})
}

// GetProperty returns one listing with its project, photos and tags
// GET /v1/properties/:id
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	property, err := h.propertyService.GetPropertyDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	h.propertyService.RecordView(c.Request.Context(), property)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": property})
}

// DownloadBrochure streams the property brochure as PDF
// GET /v1/properties/:id/brochure
func (h *PropertyHandler) DownloadBrochure(c *gin.Context) {
	pdf, filename, err := h.brochureService.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	defer pdf.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", pdf, map[string]string{
		"Content-Disposition": `attachment; filename="` + filename + `"`,
	})
}

// ListBuilderProperties lists the builder's own listings
// GET /v1/builder/properties
func (h *PropertyHandler) ListBuilderProperties(c *gin.Context) {
	page, err := h.propertyService.ListBuilderProperties(c.Request.Context(), middleware.CurrentUser(c), c.Query("project_id"), pageParam(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateProperty adds a listing and tags it from its columns
// POST /v1/builder/properties
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	var req services.PropertyInput
	if !bindJSON(c, &req) {
		return
	}
	property, err := h.propertyService.CreateProperty(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, property)
}

// UpdateProperty edits an owned listing
// PUT /v1/builder/properties/:id
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	var req services.PropertyInput
	if !bindJSON(c, &req) {
		return
	}
	property, err := h.propertyService.UpdateProperty(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// DeleteProperty removes an owned listing with its tags and photos
// DELETE /v1/builder/properties/:id
func (h *PropertyHandler) DeleteProperty(c *gin.Context) {
	if err := h.propertyService.DeleteProperty(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted successfully"})
}

// UploadPhotos attaches photos to an owned listing
// POST /v1/builder/properties/:id/photos
func (h *PropertyHandler) UploadPhotos(c *gin.Context) {
	files, closeFiles, err := formFiles(c, "photos")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	defer closeFiles()

	attachments, err := h.propertyService.AddPhotos(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), files)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachments": attachments})
}

type syncFilterOptionsRequest struct {
	FilterOptionIDs []string `json:"filter_option_ids"`
}

// SyncFilterOptions replaces the listing's tags with exactly the given options
// PUT /v1/builder/properties/:id/filter-options
func (h *PropertyHandler) SyncFilterOptions(c *gin.Context) {
	var req syncFilterOptionsRequest
	if !bindJSON(c, &req) {
		return
	}
	options, err := h.taggingService.SyncPropertyFilterOptions(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req.FilterOptionIDs)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter_options": options})
}
