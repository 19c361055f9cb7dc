package router

import (
	"github.com/gin-gonic/gin"

	"github.com/classforge/school-api/internal/handler"
	"github.com/classforge/school-api/internal/middleware"
	"github.com/classforge/school-api/internal/models"
	"github.com/classforge/school-api/internal/repository"
	"github.com/classforge/school-api/internal/service"
)

// Dependencies carries everything route registration needs.
type Dependencies struct {
	Auth         *handler.AuthHandler
	FeeStructure *handler.FeeStructureHandler
	FeeRecords   *handler.FeeRecordHandler
	Promotion    *handler.PromotionHandler
	Academic     *handler.AcademicHandler
	Tenants      *handler.TenantHandler
	Metrics      *handler.MetricsHandler

	AuthService  *service.AuthService
	Entitlements *service.EntitlementService
	Users        *repository.UserRepository
}

// Register mounts all API routes. Tenant routes sit behind the JWT,
// subscription gate, and RBAC chain; tenant lifecycle is superadmin-only.
func Register(r *gin.Engine, prefix string, deps Dependencies) {
	r.GET("/health", deps.Metrics.Health)
	r.GET("/ready", deps.Metrics.Ready)
	r.GET("/metrics", deps.Metrics.Prometheus)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.Auth.Login)
		auth.GET("/me", middleware.JWT(deps.AuthService), deps.Auth.Me)
	}

	// Statement downloads authenticate with the signed token alone so links
	// can be opened outside an API client.
	api.GET("/fee-records/export/download", deps.FeeRecords.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.AuthService))

	gated := authed.Group("")
	gated.Use(middleware.RequireActiveSubscription(deps.Entitlements))

	finance := gated.Group("")
	finance.Use(middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleAccountant))
	{
		finance.POST("/fee-structure/setup", deps.FeeStructure.Setup)
		finance.GET("/fee-structure", deps.FeeStructure.List)

		finance.GET("/fee-records", deps.FeeRecords.List)
		finance.POST("/fee-records/generate-missing", deps.FeeRecords.GenerateMissing)
		finance.POST("/fee-records/repair-scholarships", deps.FeeRecords.RepairScholarships)
		finance.POST("/fee-records/:id/payments", deps.FeeRecords.RecordPayment)
		finance.PATCH("/fee-records/:id/clearance", deps.FeeRecords.SetClearance)
		finance.POST("/fee-records/export",
			middleware.RequirePackage(deps.Entitlements, models.TierStandard),
			deps.FeeRecords.Export)
	}

	promotion := gated.Group("/promotion")
	promotion.Use(middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal))
	{
		promotion.POST("/promote",
			middleware.Audit(deps.Users, models.AuditActionPromote, "students"),
			deps.Promotion.Promote)
		promotion.POST("/graduate",
			middleware.Audit(deps.Users, models.AuditActionGraduate, "students"),
			deps.Promotion.Graduate)
		promotion.GET("/history", deps.Promotion.History)
	}

	academic := gated.Group("")
	{
		academic.GET("/sessions", deps.Academic.ListSessions)
		academic.GET("/terms", deps.Academic.ListTerms)
		academic.GET("/terms/current", deps.Academic.GetCurrentTerm)

		academicAdmin := academic.Group("")
		academicAdmin.Use(middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal))
		{
			academicAdmin.POST("/sessions", deps.Academic.CreateSession)
			academicAdmin.POST("/terms", deps.Academic.CreateTerm)
			academicAdmin.PUT("/terms/current", deps.Academic.SetCurrentTerm)
		}
	}

	// Tenant lifecycle bypasses the subscription gate on purpose: the gate
	// would lock superadmins out of the very tenants they need to fix.
	tenants := authed.Group("/tenants")
	tenants.Use(middleware.RequireRoles(models.RoleSuperAdmin))
	{
		tenants.POST("", deps.Tenants.Create)
		tenants.GET("", deps.Tenants.List)
		tenants.GET("/:id", deps.Tenants.Get)
		tenants.PUT("/:id/subscription", deps.Tenants.ExtendSubscription)
		tenants.PUT("/:id/tier", deps.Tenants.ChangeTier)
		tenants.DELETE("/:id", deps.Tenants.Deactivate)
	}
}
