package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classforge/school-api/internal/middleware"
	"github.com/classforge/school-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// tenantScope resolves the tenant a request operates on. Tenant staff are
// bound to their token's tenant; superadmins may target any tenant via the
// X-Tenant-ID header.
func tenantScope(c *gin.Context) (tenantID, actorID string) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", ""
	}
	tenantID = claims.TenantID
	if tenantID == "" && claims.IsSuperAdmin() {
		tenantID = c.GetHeader("X-Tenant-ID")
	}
	return tenantID, claims.UserID
}
