package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"keywe-backend/internal"
	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxLoggedBody = 10000

// redactedFields never reach the audit table.
var redactedFields = []string{"password", "password_confirmation", "otp", "token"}

// sanitizeUTF8 ensures the string is valid UTF-8, replacing invalid bytes
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

type ActivityLogService struct {
	// Async writes logs from a goroutine so requests never wait on the audit insert.
	Async bool
}

func NewActivityLogService() *ActivityLogService {
	return &ActivityLogService{Async: true}
}

// ActivityLogFilter narrows GetLogs. Zero values mean no constraint.
type ActivityLogFilter struct {
	Method string
	Path   string
	UserID string
	Limit  int
	Offset int
}

// LogRequest stores one request row, in a goroutine when Async is set
func (s *ActivityLogService) LogRequest(c *gin.Context, statusCode int, responseTime time.Duration) {
	clientIP := c.ClientIP()
	if clientIP == "" {
		clientIP = c.Request.RemoteAddr
	}

	// Flatten query params to their first value
	queryParams := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			queryParams[key] = values[0]
		}
	}
	queryParamsJSON, _ := json.Marshal(queryParams)

	var requestBody string
	if body, exists := c.Get("request_body"); exists {
		if bodyStr, ok := body.(string); ok {
			requestBody = bodyStr
		}
	}

	entry := &models.ActivityLog{
		ID:           newID(),
		Method:       c.Request.Method,
		Path:         c.Request.URL.Path,
		UserAgent:    c.Request.UserAgent(),
		IPAddress:    clientIP,
		RequestBody:  sanitizeUTF8(requestBody),
		QueryParams:  string(queryParamsJSON),
		StatusCode:   statusCode,
		ResponseTime: responseTime.Milliseconds(),
		UserID:       c.GetString("user_id"),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	db := internal.DB
	save := func() {
		if err := db.Create(entry).Error; err != nil {
			log.Error().Err(err).Str("path", entry.Path).Msg("failed to save activity log")
		}
	}
	if s.Async {
		go save()
		return
	}
	save()
}

// GetLogs pages through the audit trail, most recent first.
func (s *ActivityLogService) GetLogs(ctx context.Context, f ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := internal.DB.WithContext(ctx).Model(&models.ActivityLog{})
	if f.Method != "" {
		query = query.Where("method = ?", strings.ToUpper(f.Method))
	}
	if f.Path != "" {
		query = query.Where("path LIKE ? ESCAPE '!'", containsPattern(f.Path))
	}
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, utils.WrapInternal(err, "failed to count logs")
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []models.ActivityLog
	err := query.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&logs).Error
	if err != nil {
		return nil, 0, utils.WrapInternal(err, "failed to fetch logs")
	}
	return logs, total, nil
}

// LoggingMiddleware records every request after it has been handled.
// JSON bodies are captured with credentials masked.
func (s *ActivityLogService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		if c.Request.Method != "GET" && c.Request.Body != nil &&
			strings.HasPrefix(c.ContentType(), "application/json") {
			bodyBytes, err := io.ReadAll(c.Request.Body)
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
				if len(bodyBytes) > 0 {
					c.Set("request_body", captureBody(bodyBytes))
				}
			}
		}

		c.Next()

		s.LogRequest(c, c.Writer.Status(), time.Since(start))
	}
}

func captureBody(body []byte) string {
	if len(body) > maxLoggedBody {
		return fmt.Sprintf("[Large body: %d bytes]", len(body))
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return string(body)
	}
	for _, field := range redactedFields {
		if _, ok := payload[field]; ok {
			payload[field] = "[REDACTED]"
		}
	}
	masked, err := json.Marshal(payload)
	if err != nil {
		return string(body)
	}
	return string(masked)
}
