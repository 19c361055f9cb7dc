package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	appErrors "github.com/classforge/school-api/pkg/errors"
	"github.com/classforge/school-api/pkg/export"
)

type feeStore interface {
	UpsertStructure(ctx context.Context, structure *models.ClassFeeStructure) error
	ListStructures(ctx context.Context, tenantID string, filter models.FeeStructureFilter) ([]models.ClassFeeStructure, error)
	GetRecord(ctx context.Context, tenantID, studentID, termID, sessionID string) (*models.FeeRecord, error)
	GetRecordByID(ctx context.Context, tenantID, id string) (*models.FeeRecord, error)
	CreateRecord(ctx context.Context, record *models.FeeRecord) error
	UpdateExpectedAmount(ctx context.Context, tenantID, recordID string, expected float64) error
	InsertMissingForPeriod(ctx context.Context, tenantID, sessionID, termID string) (int64, error)
	RepairScholarshipRecords(ctx context.Context, tenantID string) (int64, error)
	RecordPayment(ctx context.Context, payment *models.FeePayment) (*models.FeeRecord, error)
	SetExamClearance(ctx context.Context, tenantID, recordID string, cleared bool) error
	ListRecords(ctx context.Context, tenantID string, filter models.FeeRecordFilter) ([]models.FeeRecordDetail, int, error)
}

type feeClassStore interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.Class, error)
}

type feeStudentStore interface {
	ListActiveByClass(ctx context.Context, tenantID, classID string) ([]models.Student, error)
}

type feeAcademicStore interface {
	FindTerm(ctx context.Context, tenantID, id string) (*models.Term, error)
	FindSession(ctx context.Context, tenantID, id string) (*models.AcademicSession, error)
	GetCurrent(ctx context.Context, tenantID string) (*models.CurrentPeriod, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type statementStorage interface {
	Save(filename string, data []byte) (string, error)
}

type statementSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
}

// FeeService keeps fee records consistent with the governing class fee
// structures and the payment ledger. The invariant every operation preserves:
// balance equals expected amount minus cumulative paid amount.
type FeeService struct {
	fees     feeStore
	classes  feeClassStore
	students feeStudentStore
	academic feeAcademicStore
	audit    auditLogger
	metrics  *MetricsService
	logger   *zap.Logger

	storage statementStorage
	signer  statementSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewFeeService constructs the service.
func NewFeeService(fees feeStore, classes feeClassStore, students feeStudentStore, academic feeAcademicStore, audit auditLogger, metrics *MetricsService, logger *zap.Logger, storage statementStorage, signer statementSigner) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{
		fees:     fees,
		classes:  classes,
		students: students,
		academic: academic,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
		storage:  storage,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
	}
}

// SetupStructure creates or updates the fee policy for a class in one
// term/session, then reconciles every active student in the class: existing
// records get the new expected amount with paid amount preserved, missing
// records are created fully unpaid. Scholarship students are not exempted by
// this cascade; RepairScholarships is the corrective path.
func (s *FeeService) SetupStructure(ctx context.Context, tenantID string, req dto.SetupFeeStructureRequest, actorID string) (*dto.SetupFeeStructureResult, error) {
	if req.Amount < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must not be negative")
	}
	if _, err := s.classes.FindByID(ctx, tenantID, req.ClassID); err != nil {
		return nil, notFoundOr(err, "class not found")
	}
	if _, err := s.academic.FindTerm(ctx, tenantID, req.TermID); err != nil {
		return nil, notFoundOr(err, "term not found")
	}
	if _, err := s.academic.FindSession(ctx, tenantID, req.AcademicSessionID); err != nil {
		return nil, notFoundOr(err, "academic session not found")
	}

	structure := &models.ClassFeeStructure{
		TenantID:  tenantID,
		ClassID:   req.ClassID,
		TermID:    req.TermID,
		SessionID: req.AcademicSessionID,
		Amount:    req.Amount,
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		structure.Description = &desc
	}
	if err := s.fees.UpsertStructure(ctx, structure); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save fee structure")
	}

	students, err := s.students.ListActiveByClass(ctx, tenantID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class students")
	}

	// Sequential, unchunked reconciliation. Two concurrent setups for the
	// same tuple race with last-write-wins; an accepted risk on this
	// admin-operated surface.
	stats := dto.ReconciliationStats{StudentsProcessed: len(students)}
	for _, student := range students {
		record, err := s.fees.GetRecord(ctx, tenantID, student.ID, req.TermID, req.AcademicSessionID)
		switch {
		case err == nil:
			if err := s.fees.UpdateExpectedAmount(ctx, tenantID, record.ID, req.Amount); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
					fmt.Sprintf("failed to reconcile fee record for student %s", student.ID))
			}
			stats.RecordsUpdated++
		case errors.Is(err, sql.ErrNoRows):
			newRecord := &models.FeeRecord{
				TenantID:       tenantID,
				StudentID:      student.ID,
				TermID:         req.TermID,
				SessionID:      req.AcademicSessionID,
				ExpectedAmount: req.Amount,
				PaidAmount:     0,
				Balance:        req.Amount,
				// Records born from a structure setup start exam-cleared; a
				// policy choice, not derived from the balance.
				IsClearedForExam: true,
			}
			if err := s.fees.CreateRecord(ctx, newRecord); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
					fmt.Sprintf("failed to create fee record for student %s", student.ID))
			}
			stats.RecordsCreated++
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee record")
		}
	}

	s.metrics.AddFeeRecordsCreated(stats.RecordsCreated)
	s.metrics.AddFeeRecordsUpdated(stats.RecordsUpdated)
	s.emitAudit(ctx, tenantID, actorID, models.AuditActionFeeStructureSetup, "fee-structure", &structure.ID, map[string]interface{}{
		"classId":        req.ClassID,
		"termId":         req.TermID,
		"sessionId":      req.AcademicSessionID,
		"amount":         req.Amount,
		"recordsCreated": stats.RecordsCreated,
		"recordsUpdated": stats.RecordsUpdated,
	})

	return &dto.SetupFeeStructureResult{FeeStructure: structure, Stats: stats}, nil
}

// ListStructures returns fee structures for the tenant.
func (s *FeeService) ListStructures(ctx context.Context, tenantID string, filter models.FeeStructureFilter) ([]models.ClassFeeStructure, error) {
	structures, err := s.fees.ListStructures(ctx, tenantID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee structures")
	}
	return structures, nil
}

// GenerateMissing creates fee records for every structure/student pair in the
// tenant's current period that has none yet. Existing records are never
// touched, so the operation is idempotent.
func (s *FeeService) GenerateMissing(ctx context.Context, tenantID, actorID string) (*dto.GenerateMissingResult, error) {
	period, err := s.academic.GetCurrent(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no current term and session configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current period")
	}

	created, err := s.fees.InsertMissingForPeriod(ctx, tenantID, period.SessionID, period.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate fee records")
	}

	s.metrics.AddFeeRecordsCreated(int(created))
	s.emitAudit(ctx, tenantID, actorID, models.AuditActionFeeGenerate, "fee-records", nil, map[string]interface{}{
		"sessionId":      period.SessionID,
		"termId":         period.TermID,
		"recordsCreated": created,
	})

	return &dto.GenerateMissingResult{
		RecordsCreated: created,
		SessionID:      period.SessionID,
		TermID:         period.TermID,
	}, nil
}

// RepairScholarships zeroes the expected amount on every scholarship
// student's charged record. Paid amounts are preserved, so prior payments
// surface as negative balances (credits).
func (s *FeeService) RepairScholarships(ctx context.Context, tenantID, actorID string) (*dto.ScholarshipRepairResult, error) {
	repaired, err := s.fees.RepairScholarshipRecords(ctx, tenantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to repair scholarship records")
	}
	s.emitAudit(ctx, tenantID, actorID, models.AuditActionFeeRepair, "fee-records", nil, map[string]interface{}{
		"recordsRepaired": repaired,
	})
	return &dto.ScholarshipRepairResult{RecordsRepaired: repaired}, nil
}

// RecordPayment appends a payment and rolls the owning record forward.
func (s *FeeService) RecordPayment(ctx context.Context, tenantID, recordID string, req dto.RecordPaymentRequest, actorID string) (*models.FeeRecord, error) {
	if req.Amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment amount must be positive")
	}
	payment := &models.FeePayment{
		TenantID:    tenantID,
		FeeRecordID: recordID,
		Amount:      req.Amount,
		Method:      req.Method,
		RecordedBy:  actorID,
	}
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		payment.Reference = &ref
	}

	record, err := s.fees.RecordPayment(ctx, payment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.emitAudit(ctx, tenantID, actorID, models.AuditActionFeePayment, "fee-record", &recordID, map[string]interface{}{
		"amount":  req.Amount,
		"method":  req.Method,
		"balance": record.Balance,
	})
	return record, nil
}

// SetClearance toggles the exam-clearance flag on a fee record.
func (s *FeeService) SetClearance(ctx context.Context, tenantID, recordID string, cleared bool, actorID string) error {
	if err := s.fees.SetExamClearance(ctx, tenantID, recordID, cleared); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update clearance")
	}
	s.emitAudit(ctx, tenantID, actorID, models.AuditActionFeeClearance, "fee-record", &recordID, map[string]interface{}{
		"isClearedForExam": cleared,
	})
	return nil
}

// ListRecords returns fee records with student identity and pagination.
func (s *FeeService) ListRecords(ctx context.Context, tenantID string, filter models.FeeRecordFilter) ([]models.FeeRecordDetail, *models.Pagination, error) {
	records, total, err := s.fees.ListRecords(ctx, tenantID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee records")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ExportStatement renders the fee statement for one class and period and
// stores it for signed download.
func (s *FeeService) ExportStatement(ctx context.Context, tenantID string, filter models.FeeRecordFilter, format, actorID string) (*dto.StatementExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if filter.ClassID == "" || filter.TermID == "" || filter.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId, termId, and academicSessionId are required")
	}
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "statement exports not configured")
	}

	filter.Page = 1
	filter.PageSize = 200
	records, _, err := s.fees.ListRecords(ctx, tenantID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load statement records")
	}

	dataset := buildStatementDataset(records)
	var payload []byte
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
	default:
		payload, err = s.pdf.Render(dataset, "class fee statement")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("statements/%s/%s.%s", tenantID, exportID, format)
	if _, err := s.storage.Save(fileName, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store statement")
	}

	token, expiresAt, err := s.signer.Generate(exportID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &dto.StatementExportResult{
		FileName:    fileName,
		Format:      format,
		DownloadURL: "/fee-records/export/download?token=" + token,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func buildStatementDataset(records []models.FeeRecordDetail) export.Dataset {
	headers := []string{"Admission No", "Student", "Expected", "Paid", "Balance", "Exam Cleared"}
	rows := make([]map[string]string, 0, len(records))
	var totalExpected, totalPaid, totalBalance float64
	for _, r := range records {
		cleared := "no"
		if r.IsClearedForExam {
			cleared = "yes"
		}
		rows = append(rows, map[string]string{
			"Admission No": r.AdmissionNumber,
			"Student":      r.StudentName,
			"Expected":     fmt.Sprintf("%.2f", r.ExpectedAmount),
			"Paid":         fmt.Sprintf("%.2f", r.PaidAmount),
			"Balance":      fmt.Sprintf("%.2f", r.Balance),
			"Exam Cleared": cleared,
		})
		totalExpected += r.ExpectedAmount
		totalPaid += r.PaidAmount
		totalBalance += r.Balance
	}
	return export.Dataset{
		Headers: headers,
		Rows:    rows,
		Footer: map[string]string{
			"Student":  "TOTAL",
			"Expected": fmt.Sprintf("%.2f", totalExpected),
			"Paid":     fmt.Sprintf("%.2f", totalPaid),
			"Balance":  fmt.Sprintf("%.2f", totalBalance),
		},
	}
}

func (s *FeeService) emitAudit(ctx context.Context, tenantID, actorID, action, resource string, resourceID *string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(details)
	log := &models.AuditLog{
		TenantID:   &tenantID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    payload,
		IPAddress:  "system",
		UserAgent:  "fee-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
}
