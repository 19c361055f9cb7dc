package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classforge/school-api/internal/models"
)

// PromotionRepository executes the per-student promotion and graduation
// transactions and reads the audit trail. Each student's class change and
// history row commit together or not at all; students never share a
// transaction, so one failure cannot roll back the rest of a batch.
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository constructs the repository.
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// PromoteParams carries one student's promotion.
type PromoteParams struct {
	TenantID      string
	StudentID     string
	TargetClassID string
	SessionID     *string
	PerformedBy   string
}

// Promote moves one student into the target class inside a single
// transaction. Returns sql.ErrNoRows when the student does not exist in the
// tenant or is not active.
func (r *PromotionRepository) Promote(ctx context.Context, params PromoteParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin promote tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var fromClassID *string
	err = tx.GetContext(ctx, &fromClassID,
		`SELECT class_id FROM students WHERE id = $1 AND tenant_id = $2 AND status = $3 FOR UPDATE`,
		params.StudentID, params.TenantID, models.StudentStatusActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("load student for promotion: %w", err)
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx,
		`UPDATE students SET class_id = $3, updated_at = $4 WHERE id = $1 AND tenant_id = $2`,
		params.StudentID, params.TenantID, params.TargetClassID, now); err != nil {
		return fmt.Errorf("update student class: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO promotion_history
		(id, tenant_id, student_id, from_class_id, to_class_id, type, session_id, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), params.TenantID, params.StudentID, fromClassID, params.TargetClassID,
		models.PromotionTypePromotion, params.SessionID, params.PerformedBy, now); err != nil {
		return fmt.Errorf("insert promotion history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit promote tx: %w", err)
	}
	return nil
}

// GraduateParams carries one student's graduation.
type GraduateParams struct {
	TenantID       string
	StudentID      string
	GraduationYear int
	SessionID      *string
	PerformedBy    string
}

// Graduate retires one student to alumni status inside a single transaction:
// status flips to alumni with class membership cleared, the alumni profile is
// upserted, and a graduation history row is appended. The upsert
// force-overwrites graduation year and alumni id on re-graduation.
func (r *PromotionRepository) Graduate(ctx context.Context, params GraduateParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin graduate tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var student struct {
		ClassID         *string `db:"class_id"`
		AdmissionNumber string  `db:"admission_number"`
	}
	err = tx.GetContext(ctx, &student,
		`SELECT class_id, admission_number FROM students WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		params.StudentID, params.TenantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("load student for graduation: %w", err)
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx,
		`UPDATE students SET status = $3, class_id = NULL, updated_at = $4 WHERE id = $1 AND tenant_id = $2`,
		params.StudentID, params.TenantID, models.StudentStatusAlumni, now); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}

	alumniID := models.FormatAlumniID(params.GraduationYear, student.AdmissionNumber)
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO alumni (id, tenant_id, student_id, graduation_year, alumni_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (tenant_id, student_id)
		DO UPDATE SET graduation_year = EXCLUDED.graduation_year, alumni_id = EXCLUDED.alumni_id, updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), params.TenantID, params.StudentID, params.GraduationYear, alumniID, now); err != nil {
		return fmt.Errorf("upsert alumni: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO promotion_history
		(id, tenant_id, student_id, from_class_id, to_class_id, type, session_id, performed_by, created_at)
		VALUES ($1, $2, $3, $4, NULL, $5, $6, $7, $8)`,
		uuid.NewString(), params.TenantID, params.StudentID, student.ClassID,
		models.PromotionTypeGraduation, params.SessionID, params.PerformedBy, now); err != nil {
		return fmt.Errorf("insert graduation history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit graduate tx: %w", err)
	}
	return nil
}

// ListHistory returns transition rows joined with student, class, and session
// names, newest first.
func (r *PromotionRepository) ListHistory(ctx context.Context, tenantID string, filter models.PromotionHistoryFilter) ([]models.PromotionHistoryDetail, int, error) {
	base := `FROM promotion_history ph
	JOIN students s ON s.id = ph.student_id AND s.tenant_id = ph.tenant_id
	LEFT JOIN classes fc ON fc.id = ph.from_class_id
	LEFT JOIN classes tc ON tc.id = ph.to_class_id
	LEFT JOIN academic_sessions sess ON sess.id = ph.session_id
	WHERE ph.tenant_id = $1`
	args := []interface{}{tenantID}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		base += fmt.Sprintf(" AND ph.student_id = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		base += fmt.Sprintf(" AND ph.type = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT ph.id, ph.tenant_id, ph.student_id, ph.from_class_id, ph.to_class_id,
	       ph.type, ph.session_id, ph.performed_by, ph.created_at,
	       s.full_name AS student_name,
	       fc.name AS from_class_name,
	       tc.name AS to_class_name,
	       sess.name AS session_name
	%s ORDER BY ph.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var history []models.PromotionHistoryDetail
	if err := r.db.SelectContext(ctx, &history, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list promotion history: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count promotion history: %w", err)
	}
	return history, total, nil
}
