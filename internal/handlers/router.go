package handlers

import (
	"net/http"
	"time"

	"keywe-backend/internal/middleware"
	"keywe-backend/internal/models"
	"keywe-backend/internal/services"
	"keywe-backend/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services bundles everything the HTTP layer needs.
type Services struct {
	Auth        *services.AuthService
	Authz       *services.AuthzService
	Builders    *services.BuilderService
	Projects    *services.ProjectService
	Properties  *services.PropertyService
	Tagging     *services.TaggingService
	Preferences *services.PreferenceService
	Filters     *services.FilterService
	Leads       *services.LeadService
	Stats       *services.StatisticsService
	ActivityLog *services.ActivityLogService
	Attachments *services.AttachmentService
	Brochures   *services.BrochureService
	Location    *services.LocationService

	// LocalFiles is set when uploads live on local disk.
	LocalFiles     *storage.LocalStorageClient
	AllowedOrigins []string
	StorageType    string
}

// NewRouter wires middleware and every route onto a new engine.
func NewRouter(s *Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	if len(s.AllowedOrigins) == 0 || (len(s.AllowedOrigins) == 1 && s.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	if s.ActivityLog != nil {
		r.Use(s.ActivityLog.LoggingMiddleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"storage":   s.StorageType,
		})
	})
	if s.LocalFiles != nil {
		r.GET("/files/*filepath", ServeLocalFile(s.LocalFiles))
	}

	authHandler := NewAuthHandler(s.Auth, s.Builders)
	propertyHandler := NewPropertyHandler(s.Properties, s.Tagging, s.Brochures, s.Location, s.Stats)
	preferenceHandler := NewPreferenceHandler(s.Preferences)
	filterHandler := NewFilterHandler(s.Filters)
	projectHandler := NewProjectHandler(s.Projects)
	leadHandler := NewLeadHandler(s.Leads)
	builderHandler := NewBuilderHandler(s.Builders)
	statsHandler := NewStatisticsHandler(s.Stats, s.ActivityLog)
	attachmentHandler := NewAttachmentHandler(s.Attachments)

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/verify-otp", authHandler.VerifyOTP)
		auth.POST("/login", authHandler.Login)
		auth.POST("/builder/register", authHandler.RegisterBuilder)
	}

	v1 := r.Group("/v1")
	{
		// Public catalogue
		v1.GET("/properties", propertyHandler.ListProperties)
		v1.GET("/properties/:id", propertyHandler.GetProperty)
		v1.GET("/properties/:id/brochure", propertyHandler.DownloadBrochure)
		v1.GET("/preference-options", preferenceHandler.GetOptions)
		v1.GET("/filters", filterHandler.GetAllFilters)
		v1.POST("/projects/:id/leads", leadHandler.CreateLead)
	}

	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(s.Auth))
	{
		authed.GET("/user", authHandler.Me)
		authed.POST("/logout", authHandler.Logout)
		authed.GET("/user-preferences", preferenceHandler.GetPreferences)
		authed.POST("/user-preferences", preferenceHandler.SavePreferences)
		authed.GET("/user-preferences/matches", preferenceHandler.GetMatches)
	}

	// KYC re-upload stays reachable while the account is still under review.
	builderAccount := authed.Group("/builder")
	builderAccount.Use(middleware.RequirePermission(s.Authz, models.PermissionBuilderPortal))
	builderAccount.POST("/kyc", builderHandler.UploadKYC)

	builder := authed.Group("/builder")
	builder.Use(
		middleware.EnsureBuilderVerified(s.Auth),
		middleware.RequirePermission(s.Authz, models.PermissionBuilderPortal),
	)
	{
		builder.GET("/dashboard", statsHandler.GetDashboard)

		builder.GET("/projects", projectHandler.ListProjects)
		builder.POST("/projects", projectHandler.CreateProject)
		builder.GET("/projects/:id", projectHandler.GetProject)
		builder.PUT("/projects/:id", projectHandler.UpdateProject)
		builder.DELETE("/projects/:id", projectHandler.DeleteProject)
		builder.POST("/projects/:id/submit", projectHandler.SubmitProject)
		builder.POST("/projects/:id/documents", projectHandler.UploadDocuments)

		builder.GET("/properties", propertyHandler.ListBuilderProperties)
		builder.POST("/properties", propertyHandler.CreateProperty)
		builder.PUT("/properties/:id", propertyHandler.UpdateProperty)
		builder.DELETE("/properties/:id", propertyHandler.DeleteProperty)
		builder.POST("/properties/:id/photos", propertyHandler.UploadPhotos)
		builder.PUT("/properties/:id/filter-options", propertyHandler.SyncFilterOptions)

		builder.GET("/leads", leadHandler.ListLeads)
		builder.POST("/leads/:id/contacted", leadHandler.MarkContacted)

		builder.GET("/attachments/:id", attachmentHandler.DownloadAttachment)
		builder.DELETE("/attachments/:id", attachmentHandler.DeleteAttachment)
	}

	admin := authed.Group("/admin")
	{
		builders := admin.Group("/builders", middleware.RequirePermission(s.Authz, models.PermissionManageBuilders))
		builders.GET("", builderHandler.ListBuilders)
		builders.GET("/:id", builderHandler.GetBuilder)
		builders.POST("/:id/approve", builderHandler.ApproveBuilder)
		builders.POST("/:id/reject", builderHandler.RejectBuilder)

		projects := admin.Group("/projects", middleware.RequirePermission(s.Authz, models.PermissionManageProjects))
		projects.GET("", projectHandler.AdminListProjects)
		projects.POST("/:id/approve", projectHandler.ApproveProject)
		projects.POST("/:id/reject", projectHandler.RejectProject)

		filters := admin.Group("", middleware.RequirePermission(s.Authz, models.PermissionManageFilters))
		filters.GET("/filters", filterHandler.ListFilters)
		filters.POST("/filters", filterHandler.CreateFilter)
		filters.GET("/filters/:id", filterHandler.GetFilter)
		filters.PUT("/filters/:id", filterHandler.UpdateFilter)
		filters.DELETE("/filters/:id", filterHandler.DeleteFilter)
		filters.POST("/filters/:id/options", filterHandler.CreateOption)
		filters.PUT("/filter-options/:id", filterHandler.UpdateOption)
		filters.DELETE("/filter-options/:id", filterHandler.DeleteOption)

		insights := admin.Group("", middleware.RequirePermission(s.Authz, models.PermissionViewActivityLog))
		insights.GET("/logs", statsHandler.GetLogs)
		insights.GET("/stats", statsHandler.GetSummary)
		insights.GET("/stats/:eventType", statsHandler.GetTimeSeries)
	}

	return r
}
