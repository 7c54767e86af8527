package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCaptureBodyRedactsCredentials(t *testing.T) {
	got := captureBody([]byte(`{"phone":"+919876543210","password":"secret1","otp":"123456"}`))
	if strings.Contains(got, "secret1") || strings.Contains(got, "123456") {
		t.Errorf("credentials leaked: %s", got)
	}
	if !strings.Contains(got, "+919876543210") {
		t.Errorf("phone dropped: %s", got)
	}

	if got := captureBody([]byte("not json")); got != "not json" {
		t.Errorf("raw body = %q", got)
	}
	if got := captureBody(make([]byte, maxLoggedBody+1)); !strings.HasPrefix(got, "[Large body") {
		t.Errorf("large body = %q", got)
	}
}

func TestLoggingMiddlewareRecordsRequests(t *testing.T) {
	setupTestDB(t)
	gin.SetMode(gin.TestMode)
	svc := &ActivityLogService{}

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", "u-1"); c.Next() })
	r.Use(svc.LoggingMiddleware())
	r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })
	r.GET("/v1/properties", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/properties?search=pune", nil))

	logs, total, err := svc.GetLogs(context.Background(), ActivityLogFilter{Method: "post"})
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	if total != 1 || len(logs) != 1 {
		t.Fatalf("post logs = %d", total)
	}
	entry := logs[0]
	if entry.StatusCode != http.StatusUnauthorized || entry.UserID != "u-1" {
		t.Errorf("entry = %+v", entry)
	}
	if strings.Contains(entry.RequestBody, `"x"`) {
		t.Errorf("password stored: %s", entry.RequestBody)
	}

	_, total, err = svc.GetLogs(context.Background(), ActivityLogFilter{Path: "properties"})
	if err != nil {
		t.Fatalf("get logs by path: %v", err)
	}
	if total != 1 {
		t.Errorf("path logs = %d, want 1", total)
	}
}
