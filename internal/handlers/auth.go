package handlers

import (
	"net/http"

	"keywe-backend/internal/middleware"
	"keywe-backend/internal/services"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService    *services.AuthService
	builderService *services.BuilderService
}

func NewAuthHandler(authService *services.AuthService, builderService *services.BuilderService) *AuthHandler {
	return &AuthHandler{authService: authService, builderService: builderService}
}

// Register creates a buyer account and sends an OTP
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// VerifyOTP confirms the phone and returns a bearer token
// POST /auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req services.VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.authService.VerifyOTP(c.Request.Context(), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Login exchanges credentials for a bearer token
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterBuilder creates a builder account from a multipart form with KYC documents
// POST /auth/builder/register
func (h *AuthHandler) RegisterBuilder(c *gin.Context) {
	var req services.BuilderRegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, utils.BindingError(err))
		return
	}
	files, closeFiles, err := formFiles(c, "kyc_documents")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	defer closeFiles()

	user, err := h.builderService.RegisterBuilder(c.Request.Context(), &req, files)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration received. Your account will be reviewed shortly.",
		"user":    user,
	})
}

// Me returns the authenticated user
// GET /v1/user
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, h.authService.Me(middleware.CurrentUser(c)))
}

// Logout revokes the current token
// POST /v1/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.CurrentToken(c)); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
