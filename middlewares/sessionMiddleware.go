package middlewares

import (
	"context"
	"net/http"

	"github.com/aurafoods/aura_backend/appctx"
	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/models"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the session token to a profile. Anonymous
// requests pass through; route groups behind RequireAuth get the gate.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		email, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		profile, err := models.GetProfileByEmail(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if profile.IsActive != nil && !*profile.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "account is disabled"})
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), appctx.ContextKeyToken, token)
		ctx = context.WithValue(ctx, appctx.ContextKeyEmail, email)
		ctx = context.WithValue(ctx, appctx.ContextKeyUserId, profile.ID)
		ctx = context.WithValue(ctx, appctx.ContextKeyRole, string(profile.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth rejects requests without a valid session on the context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := appctx.GetInt(c.Request.Context(), appctx.ContextKeyUserId); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
