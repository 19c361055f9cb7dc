package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classforge/school-api/internal/models"
)

// ClassRepository handles persistence for teaching groups.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, tenant_id, name, arm, active, created_at, updated_at`

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, tenant_id, name, arm, active, created_at, updated_at)
	VALUES (:id, :tenant_id, :name, :arm, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// FindByID loads one class scoped to the tenant.
func (r *ClassRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1 AND tenant_id = $2`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id, tenantID); err != nil {
		return nil, err
	}
	return &class, nil
}

// List returns all classes for the tenant.
func (r *ClassRepository) List(ctx context.Context, tenantID string) ([]models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE tenant_id = $1 ORDER BY name, arm`, classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, tenantID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}
