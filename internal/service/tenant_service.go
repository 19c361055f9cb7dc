package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	appErrors "github.com/classforge/school-api/pkg/errors"
)

type tenantStore interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error)
	ExtendSubscription(ctx context.Context, id string, expiresAt time.Time) error
	UpdateTier(ctx context.Context, id string, tier models.PackageTier) error
	Deactivate(ctx context.Context, id string) error
}

type entitlementInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID string)
}

// TenantService handles superadmin tenant lifecycle and licensing. Every
// licensing change invalidates the entitlement cache so the gate sees it
// immediately.
type TenantService struct {
	tenants      tenantStore
	entitlements entitlementInvalidator
	audit        auditLogger
	logger       *zap.Logger
}

// NewTenantService constructs the service.
func NewTenantService(tenants tenantStore, entitlements entitlementInvalidator, audit auditLogger, logger *zap.Logger) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{tenants: tenants, entitlements: entitlements, audit: audit, logger: logger}
}

// Create onboards a new school. New tenants start unactivated so they hit the
// gate until a license is issued.
func (s *TenantService) Create(ctx context.Context, req dto.CreateTenantRequest, actorID string) (*models.Tenant, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if _, err := s.tenants.FindBySlug(ctx, slug); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a school with this slug already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slug")
	}

	tier := models.PackageTier(req.PackageTier)
	if tier.Rank() == 0 {
		tier = models.TierBasic
	}
	tenant := &models.Tenant{
		Name:        req.Name,
		Slug:        slug,
		PackageTier: tier,
	}
	if domain := strings.TrimSpace(req.CustomDomain); domain != "" {
		tenant.CustomDomain = &domain
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}

	s.emitAudit(ctx, tenant.ID, actorID, models.AuditActionTenantCreate, "tenant", &tenant.ID, map[string]interface{}{
		"slug": slug,
		"tier": string(tier),
	})
	return tenant, nil
}

// Get returns one tenant by id.
func (s *TenantService) Get(ctx context.Context, id string) (*models.Tenant, error) {
	tenant, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "school not found")
	}
	return tenant, nil
}

// List returns tenants matching the filter plus pagination.
func (s *TenantService) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, *models.Pagination, error) {
	tenants, total, err := s.tenants.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return tenants, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ExtendSubscription pushes the expiry forward and re-activates the tenant.
func (s *TenantService) ExtendSubscription(ctx context.Context, id string, req dto.ExtendSubscriptionRequest, actorID string) (*models.Tenant, error) {
	if !req.ExpiresAt.After(time.Now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expiresAt must be in the future")
	}
	if err := s.tenants.ExtendSubscription(ctx, id, req.ExpiresAt); err != nil {
		return nil, notFoundOr(err, "school not found")
	}
	s.invalidate(ctx, id)
	s.emitAudit(ctx, id, actorID, models.AuditActionTenantLicense, "tenant", &id, map[string]interface{}{
		"operation": "extend",
		"expiresAt": req.ExpiresAt.UTC().Format(time.RFC3339),
	})
	return s.Get(ctx, id)
}

// ChangeTier switches the tenant's licensing package.
func (s *TenantService) ChangeTier(ctx context.Context, id string, req dto.ChangeTierRequest, actorID string) (*models.Tenant, error) {
	tier := models.PackageTier(req.PackageTier)
	if tier.Rank() == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown package tier")
	}
	if err := s.tenants.UpdateTier(ctx, id, tier); err != nil {
		return nil, notFoundOr(err, "school not found")
	}
	s.invalidate(ctx, id)
	s.emitAudit(ctx, id, actorID, models.AuditActionTenantLicense, "tenant", &id, map[string]interface{}{
		"operation": "tier",
		"tier":      string(tier),
	})
	return s.Get(ctx, id)
}

// Deactivate flips the activation and subscription flags off. Tenant data is
// retained.
func (s *TenantService) Deactivate(ctx context.Context, id, actorID string) error {
	if err := s.tenants.Deactivate(ctx, id); err != nil {
		return notFoundOr(err, "school not found")
	}
	s.invalidate(ctx, id)
	s.emitAudit(ctx, id, actorID, models.AuditActionTenantLicense, "tenant", &id, map[string]interface{}{
		"operation": "deactivate",
	})
	return nil
}

func (s *TenantService) invalidate(ctx context.Context, tenantID string) {
	if s.entitlements != nil {
		s.entitlements.InvalidateTenant(ctx, tenantID)
	}
}

func (s *TenantService) emitAudit(ctx context.Context, tenantID, actorID, action, resource string, resourceID *string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	log := &models.AuditLog{
		TenantID:   &tenantID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    payload,
		IPAddress:  "system",
		UserAgent:  "tenant-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
