package dto

import "github.com/classforge/school-api/internal/models"

// SetupFeeStructureRequest creates or updates the fee policy for a class in
// one term/session and reconciles every affected student's fee record.
type SetupFeeStructureRequest struct {
	ClassID           string  `json:"classId" binding:"required"`
	TermID            string  `json:"termId" binding:"required"`
	AcademicSessionID string  `json:"academicSessionId" binding:"required"`
	Amount            float64 `json:"amount" binding:"min=0"`
	Description       string  `json:"description"`
}

// ReconciliationStats counts the cascade outcome of a fee structure setup.
type ReconciliationStats struct {
	StudentsProcessed int `json:"studentsProcessed"`
	RecordsCreated    int `json:"recordsCreated"`
	RecordsUpdated    int `json:"recordsUpdated"`
}

// SetupFeeStructureResult is returned by the setup endpoint.
type SetupFeeStructureResult struct {
	FeeStructure *models.ClassFeeStructure `json:"feeStructure"`
	Stats        ReconciliationStats       `json:"stats"`
}

// GenerateMissingResult reports how many fee records a maintenance run added.
type GenerateMissingResult struct {
	RecordsCreated int64  `json:"recordsCreated"`
	SessionID      string `json:"sessionId"`
	TermID         string `json:"termId"`
}

// ScholarshipRepairResult reports how many records were zeroed.
type ScholarshipRepairResult struct {
	RecordsRepaired int64 `json:"recordsRepaired"`
}

// RecordPaymentRequest appends a payment to a fee record.
type RecordPaymentRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Method    string  `json:"method" binding:"required"`
	Reference string  `json:"reference"`
}

// SetClearanceRequest toggles the exam-clearance flag on a fee record.
type SetClearanceRequest struct {
	IsClearedForExam *bool `json:"isClearedForExam" binding:"required"`
}

// StatementExportResult points at a rendered fee statement.
type StatementExportResult struct {
	FileName    string `json:"fileName"`
	Format      string `json:"format"`
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   string `json:"expiresAt"`
}
