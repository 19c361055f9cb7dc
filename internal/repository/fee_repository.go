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

// FeeRepository persists fee structures, per-student fee records, and the
// append-only payment ledger. Every write keeps balance = expected - paid by
// computing both columns in the same statement.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

const feeStructureColumns = `id, tenant_id, class_id, term_id, session_id, amount, description, created_at, updated_at`
const feeRecordColumns = `id, tenant_id, student_id, term_id, session_id, expected_amount, paid_amount, balance, is_cleared_for_exam, created_at, updated_at`

// UpsertStructure creates or updates the unique structure row for the
// (tenant, class, term, session) tuple and returns the stored row.
func (r *FeeRepository) UpsertStructure(ctx context.Context, structure *models.ClassFeeStructure) error {
	if structure.ID == "" {
		structure.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := fmt.Sprintf(`INSERT INTO class_fee_structures
	(id, tenant_id, class_id, term_id, session_id, amount, description, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	ON CONFLICT (tenant_id, class_id, term_id, session_id)
	DO UPDATE SET amount = EXCLUDED.amount, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at
	RETURNING %s`, feeStructureColumns)

	if err := r.db.GetContext(ctx, structure, query,
		structure.ID, structure.TenantID, structure.ClassID, structure.TermID,
		structure.SessionID, structure.Amount, structure.Description, now); err != nil {
		return fmt.Errorf("upsert fee structure: %w", err)
	}
	return nil
}

// ListStructures returns structures for the tenant, filterable by period and class.
func (r *FeeRepository) ListStructures(ctx context.Context, tenantID string, filter models.FeeStructureFilter) ([]models.ClassFeeStructure, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM class_fee_structures WHERE tenant_id = $1`, feeStructureColumns))
	args := []interface{}{tenantID}

	if filter.TermID != "" {
		args = append(args, filter.TermID)
		builder.WriteString(fmt.Sprintf(" AND term_id = $%d", len(args)))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		builder.WriteString(fmt.Sprintf(" AND session_id = $%d", len(args)))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		builder.WriteString(fmt.Sprintf(" AND class_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	var structures []models.ClassFeeStructure
	if err := r.db.SelectContext(ctx, &structures, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list fee structures: %w", err)
	}
	return structures, nil
}

// GetRecord loads the fee record for one (student, term, session).
func (r *FeeRepository) GetRecord(ctx context.Context, tenantID, studentID, termID, sessionID string) (*models.FeeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_records
	WHERE tenant_id = $1 AND student_id = $2 AND term_id = $3 AND session_id = $4`, feeRecordColumns)
	var record models.FeeRecord
	if err := r.db.GetContext(ctx, &record, query, tenantID, studentID, termID, sessionID); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetRecordByID loads a fee record scoped to the tenant.
func (r *FeeRepository) GetRecordByID(ctx context.Context, tenantID, id string) (*models.FeeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_records WHERE id = $1 AND tenant_id = $2`, feeRecordColumns)
	var record models.FeeRecord
	if err := r.db.GetContext(ctx, &record, query, id, tenantID); err != nil {
		return nil, err
	}
	return &record, nil
}

// CreateRecord inserts a new fee record.
func (r *FeeRepository) CreateRecord(ctx context.Context, record *models.FeeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO fee_records
	(id, tenant_id, student_id, term_id, session_id, expected_amount, paid_amount, balance, is_cleared_for_exam, created_at, updated_at)
	VALUES (:id, :tenant_id, :student_id, :term_id, :session_id, :expected_amount, :paid_amount, :balance, :is_cleared_for_exam, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create fee record: %w", err)
	}
	return nil
}

// UpdateExpectedAmount sets a new expected amount and recomputes the balance
// in the same statement. Paid amount is never touched here.
func (r *FeeRepository) UpdateExpectedAmount(ctx context.Context, tenantID, recordID string, expected float64) error {
	const query = `UPDATE fee_records
	SET expected_amount = $3, balance = $3 - paid_amount, updated_at = $4
	WHERE id = $1 AND tenant_id = $2`
	result, err := r.db.ExecContext(ctx, query, recordID, tenantID, expected, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update expected amount: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check expected update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertMissingForPeriod creates fee records for every (structure, student)
// pair in the given period that has none yet. Existing records are left
// untouched, so repeat runs are no-ops. Returns the number of rows created.
func (r *FeeRepository) InsertMissingForPeriod(ctx context.Context, tenantID, sessionID, termID string) (int64, error) {
	const query = `INSERT INTO fee_records
	(id, tenant_id, student_id, term_id, session_id, expected_amount, paid_amount, balance, is_cleared_for_exam, created_at, updated_at)
	SELECT gen_random_uuid(), cfs.tenant_id, s.id, cfs.term_id, cfs.session_id,
	       cfs.amount, 0, cfs.amount, FALSE, $4, $4
	FROM class_fee_structures cfs
	JOIN students s ON s.class_id = cfs.class_id AND s.tenant_id = cfs.tenant_id
	WHERE cfs.tenant_id = $1 AND cfs.session_id = $2 AND cfs.term_id = $3
	  AND s.status = 'active'
	  AND NOT EXISTS (
	      SELECT 1 FROM fee_records fr
	      WHERE fr.tenant_id = cfs.tenant_id AND fr.student_id = s.id
	        AND fr.term_id = cfs.term_id AND fr.session_id = cfs.session_id
	  )`
	result, err := r.db.ExecContext(ctx, query, tenantID, sessionID, termID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert missing fee records: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count inserted fee records: %w", err)
	}
	return rows, nil
}

// RepairScholarshipRecords zeroes the expected amount on every scholarship
// student's record that still carries a charge. A student who already paid
// ends with a negative balance (a credit); money is never auto-refunded.
func (r *FeeRepository) RepairScholarshipRecords(ctx context.Context, tenantID string) (int64, error) {
	const query = `UPDATE fee_records fr
	SET expected_amount = 0, balance = 0 - fr.paid_amount, updated_at = $2
	FROM students s
	WHERE fr.student_id = s.id AND fr.tenant_id = s.tenant_id
	  AND fr.tenant_id = $1 AND s.is_scholarship = TRUE AND fr.expected_amount > 0`
	result, err := r.db.ExecContext(ctx, query, tenantID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("repair scholarship records: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count repaired records: %w", err)
	}
	return rows, nil
}

// RecordPayment appends a payment row and rolls the cumulative paid amount
// and balance forward on the owning record, all in one transaction.
func (r *FeeRepository) RecordPayment(ctx context.Context, payment *models.FeePayment) (*models.FeeRecord, error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO fee_payments
	(id, tenant_id, fee_record_id, amount, method, reference, recorded_by, created_at)
	VALUES (:id, :tenant_id, :fee_record_id, :amount, :method, :reference, :recorded_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, payment); err != nil {
		return nil, fmt.Errorf("insert fee payment: %w", err)
	}

	updateQuery := fmt.Sprintf(`UPDATE fee_records
	SET paid_amount = paid_amount + $3,
	    balance = expected_amount - (paid_amount + $3),
	    updated_at = $4
	WHERE id = $1 AND tenant_id = $2
	RETURNING %s`, feeRecordColumns)

	var record models.FeeRecord
	if err = tx.GetContext(ctx, &record, updateQuery,
		payment.FeeRecordID, payment.TenantID, payment.Amount, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("apply payment to fee record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment tx: %w", err)
	}
	return &record, nil
}

// SetExamClearance toggles the clearance flag on a fee record.
func (r *FeeRepository) SetExamClearance(ctx context.Context, tenantID, recordID string, cleared bool) error {
	const query = `UPDATE fee_records SET is_cleared_for_exam = $3, updated_at = $4
	WHERE id = $1 AND tenant_id = $2`
	result, err := r.db.ExecContext(ctx, query, recordID, tenantID, cleared, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set exam clearance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check clearance update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListRecords returns fee records joined with student identity, filterable by
// student, class, and period.
func (r *FeeRepository) ListRecords(ctx context.Context, tenantID string, filter models.FeeRecordFilter) ([]models.FeeRecordDetail, int, error) {
	base := `FROM fee_records fr JOIN students s ON s.id = fr.student_id AND s.tenant_id = fr.tenant_id
	WHERE fr.tenant_id = $1`
	args := []interface{}{tenantID}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		base += fmt.Sprintf(" AND fr.student_id = $%d", len(args))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		base += fmt.Sprintf(" AND s.class_id = $%d", len(args))
	}
	if filter.TermID != "" {
		args = append(args, filter.TermID)
		base += fmt.Sprintf(" AND fr.term_id = $%d", len(args))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		base += fmt.Sprintf(" AND fr.session_id = $%d", len(args))
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

	query := fmt.Sprintf(`SELECT fr.id, fr.tenant_id, fr.student_id, fr.term_id, fr.session_id,
	       fr.expected_amount, fr.paid_amount, fr.balance, fr.is_cleared_for_exam,
	       fr.created_at, fr.updated_at,
	       s.admission_number, s.full_name AS student_name
	%s ORDER BY s.admission_number LIMIT %d OFFSET %d`, base, size, offset)

	var records []models.FeeRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee records: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee records: %w", err)
	}
	return records, total, nil
}
