package middleware

import (
	"context"

	"salespipe/pkg/logger"

	"github.com/gin-gonic/gin"
)

const tenantContextKey = "tenant_id"

// TenantMiddleware lifts the tenant identity off the request into the gin
// and request contexts. Authentication lives upstream; this boundary trusts
// the X-Tenant-Id header the same way the rest of the core trusts its
// collaborators.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-Id")
		if tenantID != "" {
			c.Set(tenantContextKey, tenantID)
			ctx := context.WithValue(c.Request.Context(), logger.TenantIdKey, tenantID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// TenantID returns the tenant bound to the request, or "" when there is none.
func TenantID(c *gin.Context) string {
	return c.GetString(tenantContextKey)
}
