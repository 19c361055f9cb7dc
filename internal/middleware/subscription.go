package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/classforge/school-api/internal/models"
	"github.com/classforge/school-api/internal/service"
	appErrors "github.com/classforge/school-api/pkg/errors"
	"github.com/classforge/school-api/pkg/response"
)

// RequireActiveSubscription blocks tenant routes unless the school's
// subscription passes the entitlement gate. Superadmins bypass the gate
// inside the service.
func RequireActiveSubscription(entitlements *service.EntitlementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if err := entitlements.Check(c.Request.Context(), claims.TenantID, claims.Role); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePackage additionally demands a minimum licensing tier. Runs after
// RequireActiveSubscription on premium-only routes.
func RequirePackage(entitlements *service.EntitlementService, minTier models.PackageTier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if err := entitlements.CheckTier(c.Request.Context(), claims.TenantID, minTier, claims.Role); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
