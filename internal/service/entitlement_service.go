package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/classforge/school-api/internal/models"
	appErrors "github.com/classforge/school-api/pkg/errors"
)

type entitlementTenantStore interface {
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	SetSubscriptionActive(ctx context.Context, id string, active bool) error
}

// EntitlementService decides whether a tenant may execute gated operations.
// Platform superadmins bypass every check. Lookups go through a short-lived
// Redis cache; licensing writes must call InvalidateTenant.
//
// An entitlement store failure degrades to allow. That fail-open posture is
// deliberate: a broken billing lookup must not lock schools out of day-to-day
// operations. Every fail-open allowance is logged and counted.
type EntitlementService struct {
	tenants  entitlementTenantStore
	cache    *redis.Client
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewEntitlementService constructs the service. The cache client may be nil.
func NewEntitlementService(tenants entitlementTenantStore, cache *redis.Client, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *EntitlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &EntitlementService{
		tenants:  tenants,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
	}
}

func entitlementCacheKey(tenantID string) string {
	return fmt.Sprintf("entitlement:tenant:%s", tenantID)
}

// Check verifies the tenant may proceed with a gated request.
func (s *EntitlementService) Check(ctx context.Context, tenantID string, role models.UserRole) error {
	if role == models.RoleSuperAdmin {
		return nil
	}
	if tenantID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "request is not bound to a school")
	}

	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.deny(appErrors.ErrNotFound.Code)
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		s.metrics.RecordEntitlementFailOpen()
		s.logger.Warn("entitlement store unavailable, allowing request",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return nil
	}

	if !tenant.IsActivated {
		s.deny(appErrors.ErrSubscriptionRequired.Code)
		return appErrors.ErrSubscriptionRequired
	}

	if tenant.ExpiresAt != nil && tenant.ExpiresAt.Before(time.Now().UTC()) && tenant.SubscriptionActive {
		if err := s.tenants.SetSubscriptionActive(ctx, tenant.ID, false); err != nil {
			s.logger.Warn("failed to flip expired subscription flag",
				zap.String("tenant_id", tenant.ID), zap.Error(err))
		}
		s.InvalidateTenant(ctx, tenant.ID)
		s.deny(appErrors.ErrSubscriptionExpired.Code)
		return appErrors.ErrSubscriptionExpired
	}

	if !tenant.SubscriptionActive {
		s.deny(appErrors.ErrSubscriptionInactive.Code)
		return appErrors.ErrSubscriptionInactive
	}

	return nil
}

// CheckTier verifies the tenant's package covers a feature's minimum tier.
func (s *EntitlementService) CheckTier(ctx context.Context, tenantID string, minTier models.PackageTier, role models.UserRole) error {
	if role == models.RoleSuperAdmin {
		return nil
	}
	if tenantID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "request is not bound to a school")
	}

	tenant, err := s.loadTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.deny(appErrors.ErrNotFound.Code)
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		s.metrics.RecordEntitlementFailOpen()
		s.logger.Warn("entitlement store unavailable, allowing request",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return nil
	}

	if tenant.PackageTier.Rank() < minTier.Rank() {
		s.deny(appErrors.ErrUpgradeRequired.Code)
		return appErrors.Clone(appErrors.ErrUpgradeRequired,
			fmt.Sprintf("feature requires the %s package or higher", minTier))
	}
	return nil
}

// InvalidateTenant drops the cached entitlement snapshot after a licensing write.
func (s *EntitlementService) InvalidateTenant(ctx context.Context, tenantID string) {
	if s.cache == nil || tenantID == "" {
		return
	}
	if err := s.cache.Del(ctx, entitlementCacheKey(tenantID)).Err(); err != nil {
		s.logger.Warn("failed to invalidate entitlement cache",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func (s *EntitlementService) loadTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, entitlementCacheKey(tenantID)).Bytes()
		if err == nil {
			var tenant models.Tenant
			if jsonErr := json.Unmarshal(raw, &tenant); jsonErr == nil {
				s.metrics.RecordEntitlementCache(true)
				return &tenant, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("entitlement cache read failed", zap.Error(err))
		}
		s.metrics.RecordEntitlementCache(false)
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, jsonErr := json.Marshal(tenant); jsonErr == nil {
			if err := s.cache.Set(ctx, entitlementCacheKey(tenantID), raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("entitlement cache write failed", zap.Error(err))
			}
		}
	}
	return tenant, nil
}

func (s *EntitlementService) deny(code string) {
	s.metrics.RecordEntitlementDenied(code)
}
