package middlewares

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/aurafoods/aura_backend/appctx"
	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/gin-gonic/gin"
)

// InventoryAuthMiddleware authenticates the inventory API. Three callers
// are accepted:
//   - an admin session (token header, handled by SessionMiddleware)
//   - the static INVENTORY_API_KEY as a bearer token, while
//     AllowLegacyInventoryKey is on (automation tool migration window)
//   - a signed service JWT with the inventory scope
func InventoryAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if role, ok := appctx.GetString(ctx, appctx.ContextKeyRole); ok && role == "admin" {
			c.Next()
			return
		}

		auth := c.Request.Header.Get("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			bearer := strings.TrimPrefix(auth, "Bearer ")

			staticKey := os.Getenv("INVENTORY_API_KEY")
			if config.AllowLegacyInventoryKey() && staticKey != "" &&
				subtle.ConstantTimeCompare([]byte(bearer), []byte(staticKey)) == 1 {
				c.Request = c.Request.WithContext(utils.SetServiceCallerInContext(ctx, true))
				c.Next()
				return
			}

			claim, err := utils.ServiceTokenValidate(bearer)
			if err == nil && claim.Scope == "inventory" {
				c.Request = c.Request.WithContext(utils.SetServiceCallerInContext(ctx, true))
				c.Next()
				return
			}
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		c.Abort()
	}
}
