package models

import "time"

// ClassFeeStructure defines the expected fee amount for a class in a given
// term and session. Unique per (tenant, class, term, session); it is the
// source of truth fee records reconcile against.
type ClassFeeStructure struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	TermID      string    `db:"term_id" json:"term_id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	Amount      float64   `db:"amount" json:"amount"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// FeeRecord is the per-student ledger row for one term/session. Balance is
// always ExpectedAmount - PaidAmount; both are written together.
type FeeRecord struct {
	ID               string    `db:"id" json:"id"`
	TenantID         string    `db:"tenant_id" json:"tenant_id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	TermID           string    `db:"term_id" json:"term_id"`
	SessionID        string    `db:"session_id" json:"session_id"`
	ExpectedAmount   float64   `db:"expected_amount" json:"expected_amount"`
	PaidAmount       float64   `db:"paid_amount" json:"paid_amount"`
	Balance          float64   `db:"balance" json:"balance"`
	IsClearedForExam bool      `db:"is_cleared_for_exam" json:"is_cleared_for_exam"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// FeePayment is one append-only payment entry against a fee record.
type FeePayment struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenant_id"`
	FeeRecordID string    `db:"fee_record_id" json:"fee_record_id"`
	Amount      float64   `db:"amount" json:"amount"`
	Method      string    `db:"method" json:"method"`
	Reference   *string   `db:"reference" json:"reference,omitempty"`
	RecordedBy  string    `db:"recorded_by" json:"recorded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FeeStructureFilter narrows structure listings.
type FeeStructureFilter struct {
	TermID    string
	SessionID string
	ClassID   string
}

// FeeRecordFilter narrows fee record listings.
type FeeRecordFilter struct {
	StudentID string
	ClassID   string
	TermID    string
	SessionID string
	Page      int
	PageSize  int
}

// FeeRecordDetail joins a fee record with the owning student for listings
// and statement exports.
type FeeRecordDetail struct {
	FeeRecord
	AdmissionNumber string `db:"admission_number" json:"admission_number"`
	StudentName     string `db:"student_name" json:"student_name"`
}
