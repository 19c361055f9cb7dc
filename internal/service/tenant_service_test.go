package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	appErrors "github.com/classforge/school-api/pkg/errors"
)

type tenantLifecycleStub struct {
	tenants map[string]*models.Tenant
	bySlug  map[string]string
}

func newTenantLifecycleStub(tenants ...*models.Tenant) *tenantLifecycleStub {
	stub := &tenantLifecycleStub{tenants: map[string]*models.Tenant{}, bySlug: map[string]string{}}
	for _, tenant := range tenants {
		stub.tenants[tenant.ID] = tenant
		stub.bySlug[tenant.Slug] = tenant.ID
	}
	return stub
}

func (s *tenantLifecycleStub) Create(ctx context.Context, tenant *models.Tenant) error {
	tenant.ID = fmt.Sprintf("tenant-%d", len(s.tenants)+1)
	copy := *tenant
	s.tenants[tenant.ID] = &copy
	s.bySlug[tenant.Slug] = tenant.ID
	return nil
}

func (s *tenantLifecycleStub) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	if tenant, ok := s.tenants[id]; ok {
		copy := *tenant
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *tenantLifecycleStub) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	if id, ok := s.bySlug[slug]; ok {
		return s.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (s *tenantLifecycleStub) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error) {
	result := make([]models.Tenant, 0, len(s.tenants))
	for _, tenant := range s.tenants {
		result = append(result, *tenant)
	}
	return result, len(result), nil
}

func (s *tenantLifecycleStub) ExtendSubscription(ctx context.Context, id string, expiresAt time.Time) error {
	tenant, ok := s.tenants[id]
	if !ok {
		return sql.ErrNoRows
	}
	tenant.ExpiresAt = &expiresAt
	tenant.SubscriptionActive = true
	tenant.IsActivated = true
	return nil
}

func (s *tenantLifecycleStub) UpdateTier(ctx context.Context, id string, tier models.PackageTier) error {
	tenant, ok := s.tenants[id]
	if !ok {
		return sql.ErrNoRows
	}
	tenant.PackageTier = tier
	return nil
}

func (s *tenantLifecycleStub) Deactivate(ctx context.Context, id string) error {
	tenant, ok := s.tenants[id]
	if !ok {
		return sql.ErrNoRows
	}
	tenant.IsActivated = false
	tenant.SubscriptionActive = false
	return nil
}

type invalidatorStub struct {
	invalidated []string
}

func (s *invalidatorStub) InvalidateTenant(ctx context.Context, tenantID string) {
	s.invalidated = append(s.invalidated, tenantID)
}

func TestTenantCreateStartsUnactivated(t *testing.T) {
	store := newTenantLifecycleStub()
	svc := NewTenantService(store, &invalidatorStub{}, &auditStub{}, nil)

	tenant, err := svc.Create(context.Background(), dto.CreateTenantRequest{
		Name: "Bright Future Academy",
		Slug: "Bright-Future",
	}, "root-1")
	require.NoError(t, err)
	require.Equal(t, "bright-future", tenant.Slug)
	require.Equal(t, models.TierBasic, tenant.PackageTier)
	require.False(t, tenant.IsActivated)
	require.False(t, tenant.SubscriptionActive)
}

func TestTenantCreateRejectsDuplicateSlug(t *testing.T) {
	store := newTenantLifecycleStub(&models.Tenant{ID: "tenant-1", Slug: "bright-future"})
	svc := NewTenantService(store, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateTenantRequest{
		Name: "Other",
		Slug: "bright-future",
	}, "root-1")
	requireCode(t, err, appErrors.ErrConflict.Code)
}

func TestTenantExtendSubscriptionActivatesAndInvalidates(t *testing.T) {
	store := newTenantLifecycleStub(&models.Tenant{ID: "tenant-1", Slug: "bright-future"})
	invalidator := &invalidatorStub{}
	svc := NewTenantService(store, invalidator, &auditStub{}, nil)

	tenant, err := svc.ExtendSubscription(context.Background(), "tenant-1", dto.ExtendSubscriptionRequest{
		ExpiresAt: time.Now().Add(365 * 24 * time.Hour),
	}, "root-1")
	require.NoError(t, err)
	require.True(t, tenant.IsActivated)
	require.True(t, tenant.SubscriptionActive)
	require.Equal(t, []string{"tenant-1"}, invalidator.invalidated)
}

func TestTenantExtendSubscriptionRejectsPastDate(t *testing.T) {
	store := newTenantLifecycleStub(&models.Tenant{ID: "tenant-1"})
	svc := NewTenantService(store, nil, nil, nil)

	_, err := svc.ExtendSubscription(context.Background(), "tenant-1", dto.ExtendSubscriptionRequest{
		ExpiresAt: time.Now().Add(-time.Hour),
	}, "root-1")
	requireCode(t, err, appErrors.ErrValidation.Code)
}

func TestTenantChangeTierInvalidatesCache(t *testing.T) {
	store := newTenantLifecycleStub(&models.Tenant{ID: "tenant-1", PackageTier: models.TierBasic})
	invalidator := &invalidatorStub{}
	svc := NewTenantService(store, invalidator, &auditStub{}, nil)

	tenant, err := svc.ChangeTier(context.Background(), "tenant-1", dto.ChangeTierRequest{PackageTier: "premium"}, "root-1")
	require.NoError(t, err)
	require.Equal(t, models.TierPremium, tenant.PackageTier)
	require.Equal(t, []string{"tenant-1"}, invalidator.invalidated)
}

func TestTenantDeactivateRetainsData(t *testing.T) {
	store := newTenantLifecycleStub(&models.Tenant{ID: "tenant-1", IsActivated: true, SubscriptionActive: true})
	svc := NewTenantService(store, &invalidatorStub{}, &auditStub{}, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "tenant-1", "root-1"))

	tenant, err := svc.Get(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.False(t, tenant.IsActivated)
	require.False(t, tenant.SubscriptionActive)

	requireCode(t, svc.Deactivate(context.Background(), "ghost", "root-1"), appErrors.ErrNotFound.Code)
}
