package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classforge/school-api/internal/models"
)

// StudentRepository reads student rows for the ledger and promotion flows.
// Student CRUD itself lives with the roster module; the ledger only needs
// tenant-scoped lookups.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, tenant_id, user_id, admission_number, full_name, class_id, status, is_scholarship, created_at, updated_at`

// FindByID loads one student scoped to the tenant.
func (r *StudentRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1 AND tenant_id = $2`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, tenantID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListActiveByClass returns every active student currently assigned to the
// class. The fee structure cascade iterates this set.
func (r *StudentRepository) ListActiveByClass(ctx context.Context, tenantID, classID string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students
	WHERE tenant_id = $1 AND class_id = $2 AND status = $3
	ORDER BY admission_number`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, tenantID, classID, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}
