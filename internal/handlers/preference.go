package handlers

import (
	"net/http"

	"keywe-backend/internal/middleware"
	"keywe-backend/internal/services"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type PreferenceHandler struct {
	preferenceService *services.PreferenceService
}

func NewPreferenceHandler(preferenceService *services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService}
}

// GetOptions returns every selectable preference option
// GET /v1/preference-options
func (h *PreferenceHandler) GetOptions(c *gin.Context) {
	catalog, err := h.preferenceService.ListOptionCatalog(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": catalog})
}

// GetPreferences returns the caller's saved preferences
// GET /v1/user-preferences
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	pref, err := h.preferenceService.GetPreferences(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": pref})
}

// SavePreferences creates or replaces the caller's preferences
// POST /v1/user-preferences
func (h *PreferenceHandler) SavePreferences(c *gin.Context) {
	var req services.SavePreferencesRequest
	if !bindJSON(c, &req) {
		return
	}
	pref, err := h.preferenceService.SavePreferences(c.Request.Context(), middleware.CurrentUser(c), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Preferences saved successfully",
		"data":    pref,
	})
}

// GetMatches lists properties matching the caller's preferences
// GET /v1/user-preferences/matches
func (h *PreferenceHandler) GetMatches(c *gin.Context) {
	page, err := h.preferenceService.MatchingProperties(c.Request.Context(), middleware.CurrentUser(c), pageParam(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": page})
}
