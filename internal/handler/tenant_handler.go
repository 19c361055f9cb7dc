package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	"github.com/classforge/school-api/internal/service"
	appErrors "github.com/classforge/school-api/pkg/errors"
	"github.com/classforge/school-api/pkg/response"
)

// TenantHandler exposes superadmin tenant lifecycle endpoints.
type TenantHandler struct {
	tenants *service.TenantService
}

// NewTenantHandler constructs handler.
func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Create godoc
// @Summary Onboard a new school
// @Tags Tenants
// @Accept json
// @Produce json
// @Param payload body dto.CreateTenantRequest true "Tenant payload"
// @Success 201 {object} response.Envelope
// @Router /tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	_, actorID := tenantScope(c)
	tenant, err := h.tenants.Create(c.Request.Context(), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tenant)
}

// List godoc
// @Summary List schools
// @Tags Tenants
// @Produce json
// @Param search query string false "Name or slug search"
// @Param tier query string false "Filter by package tier"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	filter := models.TenantFilter{
		Search:   c.Query("search"),
		Tier:     models.PackageTier(c.Query("tier")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 50),
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}
	tenants, pagination, err := h.tenants.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenants, pagination)
}

// Get godoc
// @Summary Fetch one school
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant id"
// @Success 200 {object} response.Envelope
// @Router /tenants/{id} [get]
func (h *TenantHandler) Get(c *gin.Context) {
	tenant, err := h.tenants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenant, nil)
}

// ExtendSubscription godoc
// @Summary Extend a school's subscription and re-activate it
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant id"
// @Param payload body dto.ExtendSubscriptionRequest true "Extension payload"
// @Success 200 {object} response.Envelope
// @Router /tenants/{id}/subscription [put]
func (h *TenantHandler) ExtendSubscription(c *gin.Context) {
	var req dto.ExtendSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	_, actorID := tenantScope(c)
	tenant, err := h.tenants.ExtendSubscription(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenant, nil)
}

// ChangeTier godoc
// @Summary Switch a school's licensing package
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant id"
// @Param payload body dto.ChangeTierRequest true "Tier payload"
// @Success 200 {object} response.Envelope
// @Router /tenants/{id}/tier [put]
func (h *TenantHandler) ChangeTier(c *gin.Context) {
	var req dto.ChangeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	_, actorID := tenantScope(c)
	tenant, err := h.tenants.ChangeTier(c.Request.Context(), c.Param("id"), req, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenant, nil)
}

// Deactivate godoc
// @Summary Deactivate a school, retaining its data
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant id"
// @Success 204 "No Content"
// @Router /tenants/{id} [delete]
func (h *TenantHandler) Deactivate(c *gin.Context) {
	_, actorID := tenantScope(c)
	if err := h.tenants.Deactivate(c.Request.Context(), c.Param("id"), actorID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
