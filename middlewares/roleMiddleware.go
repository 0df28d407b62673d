package middlewares

import (
	"net/http"

	"github.com/aurafoods/aura_backend/appctx"
	"github.com/gin-gonic/gin"
)

// RequireRole gates a route group on the session profile's role. Runs
// after SessionMiddleware; the role is already on the request context.
// Admin passes every role gate.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, ok := appctx.GetString(c.Request.Context(), appctx.ContextKeyRole)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		if current != role && current != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}
