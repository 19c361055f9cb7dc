package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classforge/school-api/internal/models"
)

// TenantRepository persists school installations and their licensing state.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository constructs the repository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const tenantColumns = `id, name, slug, custom_domain, package_tier, is_activated, subscription_active,
       expires_at, current_session_id, current_term_id, created_at, updated_at`

// Create inserts a new tenant row.
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	if tenant.PackageTier == "" {
		tenant.PackageTier = models.TierBasic
	}
	now := time.Now().UTC()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now

	const query = `INSERT INTO tenants
	(id, name, slug, custom_domain, package_tier, is_activated, subscription_active, expires_at, current_session_id, current_term_id, created_at, updated_at)
	VALUES (:id, :name, :slug, :custom_domain, :package_tier, :is_activated, :subscription_active, :expires_at, :current_session_id, :current_term_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tenant); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// FindByID loads a tenant by identifier.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE id = $1`, tenantColumns)
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindBySlug loads a tenant by its URL slug.
func (r *TenantRepository) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE slug = $1`, tenantColumns)
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, slug); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// List returns tenants matching the filter with a total count.
func (r *TenantRepository) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error) {
	base := "FROM tenants WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR slug ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Tier != "" {
		conditions = append(conditions, fmt.Sprintf("package_tier = $%d", len(args)+1))
		args = append(args, filter.Tier)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_activated = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", tenantColumns, base, size, offset)

	var tenants []models.Tenant
	if err := r.db.SelectContext(ctx, &tenants, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}
	return tenants, total, nil
}

// SetSubscriptionActive flips the subscription flag. Used by the gate's
// expiry side effect and by licensing writes.
func (r *TenantRepository) SetSubscriptionActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE tenants SET subscription_active = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set subscription active: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check subscription update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExtendSubscription pushes the expiry forward and re-activates the tenant.
func (r *TenantRepository) ExtendSubscription(ctx context.Context, id string, expiresAt time.Time) error {
	const query = `UPDATE tenants
	SET expires_at = $2, subscription_active = TRUE, is_activated = TRUE, updated_at = $3
	WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("extend subscription: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check extend rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateTier switches the licensing package.
func (r *TenantRepository) UpdateTier(ctx context.Context, id string, tier models.PackageTier) error {
	const query = `UPDATE tenants SET package_tier = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, tier, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update tenant tier: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check tier update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate flags the tenant inactive. Tenants are never deleted.
func (r *TenantRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE tenants SET is_activated = FALSE, subscription_active = FALSE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate tenant: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deactivate rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
