package middleware

import (
	"context"
	"strings"

	"keywe-backend/internal/models"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	userKey  = "user"
	tokenKey = "access_token"
	// UserIDKey is read by the activity log middleware.
	UserIDKey = "user_id"
)

// Authenticator resolves and revokes bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.User, *models.AccessToken, error)
	RevokeToken(ctx context.Context, tokenID string) error
}

// Authorizer answers permission checks.
type Authorizer interface {
	Can(ctx context.Context, user *models.User, permission string) (bool, error)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects requests without a live bearer token and stores the
// user and token on the gin context.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, token, err := auth.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		c.Set(userKey, user)
		c.Set(tokenKey, token)
		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

// RequirePermission must run after RequireAuth.
func RequirePermission(authz Authorizer, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := authz.Can(c.Request.Context(), CurrentUser(c), permission)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		if !ok {
			utils.RespondError(c, utils.NewAuthorizationError(""))
			return
		}
		c.Next()
	}
}

// EnsureBuilderVerified turns away builder accounts that are not verified yet.
// Their current token is revoked so the client has to log in again once approved.
func EnsureBuilderVerified(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if !user.IsUnverifiedBuilder() {
			c.Next()
			return
		}

		if token := CurrentToken(c); token != nil {
			if err := auth.RevokeToken(c.Request.Context(), token.ID); err != nil {
				log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to revoke unverified builder token")
			}
		}
		utils.RespondError(c, utils.NewAuthorizationError("Your builder account is "+statusLabel(user.VerificationStatus)+". Please wait for admin approval."))
	}
}

func statusLabel(s models.VerificationStatus) string {
	if s == "" {
		return "not verified"
	}
	return string(s)
}

// CurrentUser returns the user set by RequireAuth, or nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// CurrentToken returns the access token set by RequireAuth, or nil
func CurrentToken(c *gin.Context) *models.AccessToken {
	if v, ok := c.Get(tokenKey); ok {
		if token, ok := v.(*models.AccessToken); ok {
			return token
		}
	}
	return nil
}
