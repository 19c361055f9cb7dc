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

// AcademicRepository handles academic sessions, terms, and the per-tenant
// current-period pointer.
type AcademicRepository struct {
	db *sqlx.DB
}

// NewAcademicRepository constructs the repository.
func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

const sessionColumns = `id, tenant_id, name, start_date, end_date, is_current, created_at, updated_at`
const termColumns = `id, tenant_id, session_id, name, start_date, end_date, is_current, created_at, updated_at`

// CreateSession inserts a new academic session.
func (r *AcademicRepository) CreateSession(ctx context.Context, session *models.AcademicSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO academic_sessions (id, tenant_id, name, start_date, end_date, is_current, created_at, updated_at)
	VALUES (:id, :tenant_id, :name, :start_date, :end_date, :is_current, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// CreateTerm inserts a new term inside a session.
func (r *AcademicRepository) CreateTerm(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if term.CreatedAt.IsZero() {
		term.CreatedAt = now
	}
	term.UpdatedAt = now

	const query = `INSERT INTO terms (id, tenant_id, session_id, name, start_date, end_date, is_current, created_at, updated_at)
	VALUES (:id, :tenant_id, :session_id, :name, :start_date, :end_date, :is_current, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// FindSession loads one session scoped to the tenant.
func (r *AcademicRepository) FindSession(ctx context.Context, tenantID, id string) (*models.AcademicSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_sessions WHERE id = $1 AND tenant_id = $2`, sessionColumns)
	var session models.AcademicSession
	if err := r.db.GetContext(ctx, &session, query, id, tenantID); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindTerm loads one term scoped to the tenant.
func (r *AcademicRepository) FindTerm(ctx context.Context, tenantID, id string) (*models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms WHERE id = $1 AND tenant_id = $2`, termColumns)
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id, tenantID); err != nil {
		return nil, err
	}
	return &term, nil
}

// ListSessions returns all sessions for the tenant, newest first.
func (r *AcademicRepository) ListSessions(ctx context.Context, tenantID string) ([]models.AcademicSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_sessions WHERE tenant_id = $1 ORDER BY start_date DESC`, sessionColumns)
	var sessions []models.AcademicSession
	if err := r.db.SelectContext(ctx, &sessions, query, tenantID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ListTerms returns the terms of one session.
func (r *AcademicRepository) ListTerms(ctx context.Context, tenantID, sessionID string) ([]models.Term, error) {
	query := fmt.Sprintf(`SELECT %s FROM terms WHERE tenant_id = $1 AND session_id = $2 ORDER BY start_date`, termColumns)
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, tenantID, sessionID); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// SetCurrent marks the (session, term) pair current for the tenant. The
// clear-all-then-set-one steps and the tenant pointer update run inside one
// transaction so at most one session and one term stay current.
func (r *AcademicRepository) SetCurrent(ctx context.Context, tenantID, sessionID, termID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.GetContext(ctx, &exists,
		`SELECT 1 FROM terms WHERE id = $1 AND session_id = $2 AND tenant_id = $3`,
		termID, sessionID, tenantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("verify term: %w", err)
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx,
		`UPDATE academic_sessions SET is_current = FALSE, updated_at = $2 WHERE tenant_id = $1 AND is_current = TRUE`,
		tenantID, now); err != nil {
		return fmt.Errorf("clear current sessions: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE terms SET is_current = FALSE, updated_at = $2 WHERE tenant_id = $1 AND is_current = TRUE`,
		tenantID, now); err != nil {
		return fmt.Errorf("clear current terms: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE academic_sessions SET is_current = TRUE, updated_at = $3 WHERE id = $1 AND tenant_id = $2`,
		sessionID, tenantID, now); err != nil {
		return fmt.Errorf("set current session: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE terms SET is_current = TRUE, updated_at = $3 WHERE id = $1 AND tenant_id = $2`,
		termID, tenantID, now); err != nil {
		return fmt.Errorf("set current term: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE tenants SET current_session_id = $2, current_term_id = $3, updated_at = $4 WHERE id = $1`,
		tenantID, sessionID, termID, now); err != nil {
		return fmt.Errorf("update tenant period pointer: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set current tx: %w", err)
	}
	return nil
}

// GetCurrent reads the tenant's active period pointer.
func (r *AcademicRepository) GetCurrent(ctx context.Context, tenantID string) (*models.CurrentPeriod, error) {
	const query = `SELECT current_session_id, current_term_id FROM tenants
	WHERE id = $1 AND current_session_id IS NOT NULL AND current_term_id IS NOT NULL`
	var period models.CurrentPeriod
	if err := r.db.GetContext(ctx, &period, query, tenantID); err != nil {
		return nil, err
	}
	return &period, nil
}
