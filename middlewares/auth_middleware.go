package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/utils"
)

// AdminAuth accepts a bearer token, or a token query parameter for websocket
// upgrades, and requires it to belong to the tenant resolved from the path.
func AdminAuth(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.AbortError(c, http.StatusUnauthorized, errors.New("authorization token missing"))
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			utils.AbortError(c, http.StatusUnauthorized, utils.ErrInvalidToken)
			return
		}

		tenant := CurrentTenant(c)
		if tenant == nil || claims.TenantID != tenant.ID {
			utils.AbortError(c, http.StatusForbidden, errors.New("token does not grant access to this store"))
			return
		}

		c.Set(adminTenantKey, claims.TenantID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, "Bearer ") {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c.IsWebsocket() {
		return c.Query("token")
	}
	return ""
}
