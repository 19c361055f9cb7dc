package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionFeeStructureSetup = "FEE_STRUCTURE_SETUP"
	AuditActionFeeGenerate       = "FEE_RECORDS_GENERATE"
	AuditActionFeeRepair         = "FEE_SCHOLARSHIP_REPAIR"
	AuditActionFeePayment        = "FEE_PAYMENT_RECORD"
	AuditActionFeeClearance      = "FEE_CLEARANCE_SET"
	AuditActionPromote           = "STUDENTS_PROMOTE"
	AuditActionGraduate          = "STUDENTS_GRADUATE"
	AuditActionSetCurrentTerm    = "SET_CURRENT_TERM"
	AuditActionTenantCreate      = "TENANT_CREATE"
	AuditActionTenantLicense     = "TENANT_LICENSE_UPDATE"
)

// AuditLog represents an audit trail record. Writes are best-effort; a failed
// audit insert never rolls back the primary operation.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	TenantID   *string   `db:"tenant_id" json:"tenant_id,omitempty"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
