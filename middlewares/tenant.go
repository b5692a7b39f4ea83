package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/storefront-orders/models"
	"github.com/yeremiapane/storefront-orders/utils"
)

const (
	tenantKey      = "tenant"
	adminTenantKey = "admin_tenant_id"
	sessionKey     = "session"
)

var errUnknownStore = errors.New("store not found")

type TenantLookup interface {
	BySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// TenantResolver loads the tenant named by the :tenant path parameter.
func TenantResolver(tenants TenantLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := tenants.BySlug(c.Request.Context(), c.Param("tenant"))
		if err != nil {
			utils.AbortError(c, http.StatusNotFound, errUnknownStore)
			return
		}
		c.Set(tenantKey, tenant)
		c.Next()
	}
}

func CurrentTenant(c *gin.Context) *models.Tenant {
	v, ok := c.Get(tenantKey)
	if !ok {
		return nil
	}
	tenant, _ := v.(*models.Tenant)
	return tenant
}
