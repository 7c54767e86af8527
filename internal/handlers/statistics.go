package handlers

import (
	"net/http"
	"strconv"

	"keywe-backend/internal/middleware"
	"keywe-backend/internal/models"
	"keywe-backend/internal/services"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService  *services.StatisticsService
	activityLogService *services.ActivityLogService
}

func NewStatisticsHandler(statisticsService *services.StatisticsService, activityLogService *services.ActivityLogService) *StatisticsHandler {
	return &StatisticsHandler{
		statisticsService:  statisticsService,
		activityLogService: activityLogService,
	}
}

var validEventTypes = map[string]models.EventType{
	string(models.EventPropertyView): models.EventPropertyView,
	string(models.EventProjectView):  models.EventProjectView,
	string(models.EventLeadCreated):  models.EventLeadCreated,
	string(models.EventSearch):       models.EventSearch,
}

// GetSummary returns all-time totals per event type
// GET /v1/admin/stats
func (h *StatisticsHandler) GetSummary(c *gin.Context) {
	summary, err := h.statisticsService.GetSummary(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
	})
}

// GetTimeSeries returns daily counts for one event type
// GET /v1/admin/stats/:eventType?days=30
func (h *StatisticsHandler) GetTimeSeries(c *gin.Context) {
	eventType, ok := validEventTypes[c.Param("eventType")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "invalid event_type",
			"valid_types": []string{"property_view", "project_view", "lead_created", "search"},
		})
		return
	}

	days := 30
	if d := c.Query("days"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 && parsed <= 365 {
			days = parsed
		}
	}

	data, err := h.statisticsService.GetTimeSeries(c.Request.Context(), eventType, days)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"days": days,
		"data": data,
	})
}

// GetDashboard returns the builder's totals
// GET /v1/builder/dashboard
func (h *StatisticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.statisticsService.BuilderDashboard(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetLogs returns the request audit trail
// GET /v1/admin/logs?method=POST&path=/v1&user_id=...&limit=50&offset=0
func (h *StatisticsHandler) GetLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, total, err := h.activityLogService.GetLogs(c.Request.Context(), services.ActivityLogFilter{
		Method: c.Query("method"),
		Path:   c.Query("path"),
		UserID: c.Query("user_id"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
	})
}
