package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classforge/school-api/internal/dto"
	"github.com/classforge/school-api/internal/models"
	appErrors "github.com/classforge/school-api/pkg/errors"
)

type feeStoreStub struct {
	structures map[string]*models.ClassFeeStructure
	records    map[string]*models.FeeRecord
	payments   []*models.FeePayment

	scholarships   map[string]bool
	missingCreated int64
}

func newFeeStoreStub() *feeStoreStub {
	return &feeStoreStub{
		structures:   map[string]*models.ClassFeeStructure{},
		records:      map[string]*models.FeeRecord{},
		scholarships: map[string]bool{},
	}
}

func structureKey(tenantID, classID, termID, sessionID string) string {
	return tenantID + "/" + classID + "/" + termID + "/" + sessionID
}

func recordKey(tenantID, studentID, termID, sessionID string) string {
	return tenantID + "/" + studentID + "/" + termID + "/" + sessionID
}

func (s *feeStoreStub) UpsertStructure(ctx context.Context, structure *models.ClassFeeStructure) error {
	key := structureKey(structure.TenantID, structure.ClassID, structure.TermID, structure.SessionID)
	if existing, ok := s.structures[key]; ok {
		existing.Amount = structure.Amount
		existing.Description = structure.Description
		*structure = *existing
		return nil
	}
	structure.ID = fmt.Sprintf("fs-%d", len(s.structures)+1)
	copy := *structure
	s.structures[key] = &copy
	return nil
}

func (s *feeStoreStub) ListStructures(ctx context.Context, tenantID string, filter models.FeeStructureFilter) ([]models.ClassFeeStructure, error) {
	result := make([]models.ClassFeeStructure, 0, len(s.structures))
	for _, structure := range s.structures {
		if structure.TenantID == tenantID {
			result = append(result, *structure)
		}
	}
	return result, nil
}

func (s *feeStoreStub) GetRecord(ctx context.Context, tenantID, studentID, termID, sessionID string) (*models.FeeRecord, error) {
	record, ok := s.records[recordKey(tenantID, studentID, termID, sessionID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *record
	return &copy, nil
}

func (s *feeStoreStub) GetRecordByID(ctx context.Context, tenantID, id string) (*models.FeeRecord, error) {
	for _, record := range s.records {
		if record.ID == id && record.TenantID == tenantID {
			copy := *record
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *feeStoreStub) CreateRecord(ctx context.Context, record *models.FeeRecord) error {
	record.ID = fmt.Sprintf("fr-%d", len(s.records)+1)
	copy := *record
	s.records[recordKey(record.TenantID, record.StudentID, record.TermID, record.SessionID)] = &copy
	return nil
}

func (s *feeStoreStub) UpdateExpectedAmount(ctx context.Context, tenantID, recordID string, expected float64) error {
	for _, record := range s.records {
		if record.ID == recordID && record.TenantID == tenantID {
			record.ExpectedAmount = expected
			record.Balance = expected - record.PaidAmount
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *feeStoreStub) InsertMissingForPeriod(ctx context.Context, tenantID, sessionID, termID string) (int64, error) {
	return s.missingCreated, nil
}

func (s *feeStoreStub) RepairScholarshipRecords(ctx context.Context, tenantID string) (int64, error) {
	var repaired int64
	for _, record := range s.records {
		if record.TenantID == tenantID && s.scholarships[record.StudentID] && record.ExpectedAmount > 0 {
			record.ExpectedAmount = 0
			record.Balance = 0 - record.PaidAmount
			repaired++
		}
	}
	return repaired, nil
}

func (s *feeStoreStub) RecordPayment(ctx context.Context, payment *models.FeePayment) (*models.FeeRecord, error) {
	for _, record := range s.records {
		if record.ID == payment.FeeRecordID && record.TenantID == payment.TenantID {
			s.payments = append(s.payments, payment)
			record.PaidAmount += payment.Amount
			record.Balance = record.ExpectedAmount - record.PaidAmount
			copy := *record
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *feeStoreStub) SetExamClearance(ctx context.Context, tenantID, recordID string, cleared bool) error {
	for _, record := range s.records {
		if record.ID == recordID && record.TenantID == tenantID {
			record.IsClearedForExam = cleared
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *feeStoreStub) ListRecords(ctx context.Context, tenantID string, filter models.FeeRecordFilter) ([]models.FeeRecordDetail, int, error) {
	result := make([]models.FeeRecordDetail, 0, len(s.records))
	for _, record := range s.records {
		if record.TenantID != tenantID {
			continue
		}
		result = append(result, models.FeeRecordDetail{
			FeeRecord:       *record,
			AdmissionNumber: "ADM/" + record.StudentID,
			StudentName:     "Student " + record.StudentID,
		})
	}
	return result, len(result), nil
}

type classStoreStub struct {
	classes map[string]*models.Class
}

func (s *classStoreStub) FindByID(ctx context.Context, tenantID, id string) (*models.Class, error) {
	if class, ok := s.classes[id]; ok && class.TenantID == tenantID {
		return class, nil
	}
	return nil, sql.ErrNoRows
}

type studentStoreStub struct {
	byClass map[string][]models.Student
}

func (s *studentStoreStub) ListActiveByClass(ctx context.Context, tenantID, classID string) ([]models.Student, error) {
	return s.byClass[classID], nil
}

type academicStoreStub struct {
	terms    map[string]*models.Term
	sessions map[string]*models.AcademicSession
	current  *models.CurrentPeriod
}

func (s *academicStoreStub) FindTerm(ctx context.Context, tenantID, id string) (*models.Term, error) {
	if term, ok := s.terms[id]; ok {
		return term, nil
	}
	return nil, sql.ErrNoRows
}

func (s *academicStoreStub) FindSession(ctx context.Context, tenantID, id string) (*models.AcademicSession, error) {
	if session, ok := s.sessions[id]; ok {
		return session, nil
	}
	return nil, sql.ErrNoRows
}

func (s *academicStoreStub) GetCurrent(ctx context.Context, tenantID string) (*models.CurrentPeriod, error) {
	if s.current == nil {
		return nil, sql.ErrNoRows
	}
	return s.current, nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newFeeFixture() (*FeeService, *feeStoreStub, *auditStub) {
	fees := newFeeStoreStub()
	classes := &classStoreStub{classes: map[string]*models.Class{
		"jss1-a": {ID: "jss1-a", TenantID: "tenant-1", Name: "JSS1 A"},
	}}
	students := &studentStoreStub{byClass: map[string][]models.Student{
		"jss1-a": {
			{ID: "s1", TenantID: "tenant-1", AdmissionNumber: "ADM/001"},
			{ID: "s2", TenantID: "tenant-1", AdmissionNumber: "ADM/002"},
			{ID: "s3", TenantID: "tenant-1", AdmissionNumber: "ADM/003"},
		},
	}}
	academic := &academicStoreStub{
		terms:    map[string]*models.Term{"term-1": {ID: "term-1", TenantID: "tenant-1", SessionID: "sess-1"}},
		sessions: map[string]*models.AcademicSession{"sess-1": {ID: "sess-1", TenantID: "tenant-1"}},
		current:  &models.CurrentPeriod{SessionID: "sess-1", TermID: "term-1"},
	}
	audit := &auditStub{}
	svc := NewFeeService(fees, classes, students, academic, audit, nil, nil, nil, nil)
	return svc, fees, audit
}

func setupRequest(amount float64) dto.SetupFeeStructureRequest {
	return dto.SetupFeeStructureRequest{
		ClassID:           "jss1-a",
		TermID:            "term-1",
		AcademicSessionID: "sess-1",
		Amount:            amount,
	}
}

func TestFeeSetupCreatesRecordsForWholeClass(t *testing.T) {
	svc, fees, audit := newFeeFixture()

	result, err := svc.SetupStructure(context.Background(), "tenant-1", setupRequest(50000), "admin-1")
	require.NoError(t, err)
	require.Equal(t, 3, result.Stats.StudentsProcessed)
	require.Equal(t, 3, result.Stats.RecordsCreated)
	require.Zero(t, result.Stats.RecordsUpdated)

	for _, studentID := range []string{"s1", "s2", "s3"} {
		record, err := fees.GetRecord(context.Background(), "tenant-1", studentID, "term-1", "sess-1")
		require.NoError(t, err)
		require.Equal(t, 50000.0, record.ExpectedAmount)
		require.Zero(t, record.PaidAmount)
		require.Equal(t, 50000.0, record.Balance)
		require.True(t, record.IsClearedForExam)
	}
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionFeeStructureSetup, audit.logs[0].Action)
}

func TestFeeSetupRepeatPreservesPayments(t *testing.T) {
	svc, fees, _ := newFeeFixture()

	_, err := svc.SetupStructure(context.Background(), "tenant-1", setupRequest(50000), "admin-1")
	require.NoError(t, err)

	record, err := fees.GetRecord(context.Background(), "tenant-1", "s1", "term-1", "sess-1")
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), "tenant-1", record.ID, dto.RecordPaymentRequest{
		Amount: 20000,
		Method: "cash",
	}, "acct-1")
	require.NoError(t, err)

	result, err := svc.SetupStructure(context.Background(), "tenant-1", setupRequest(60000), "admin-1")
	require.NoError(t, err)
	require.Equal(t, 3, result.Stats.RecordsUpdated)
	require.Zero(t, result.Stats.RecordsCreated)

	record, err = fees.GetRecord(context.Background(), "tenant-1", "s1", "term-1", "sess-1")
	require.NoError(t, err)
	require.Equal(t, 60000.0, record.ExpectedAmount)
	require.Equal(t, 20000.0, record.PaidAmount)
	require.Equal(t, 40000.0, record.Balance)
}

func TestFeeSetupRejectsUnknownClass(t *testing.T) {
	svc, _, _ := newFeeFixture()

	req := setupRequest(1000)
	req.ClassID = "nope"
	_, err := svc.SetupStructure(context.Background(), "tenant-1", req, "admin-1")
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestFeeGenerateMissingUsesCurrentPeriod(t *testing.T) {
	svc, fees, _ := newFeeFixture()
	fees.missingCreated = 12

	result, err := svc.GenerateMissing(context.Background(), "tenant-1", "admin-1")
	require.NoError(t, err)
	require.Equal(t, int64(12), result.RecordsCreated)
	require.Equal(t, "sess-1", result.SessionID)
	require.Equal(t, "term-1", result.TermID)
}

func TestFeeGenerateMissingWithoutCurrentPeriod(t *testing.T) {
	fees := newFeeStoreStub()
	academic := &academicStoreStub{}
	svc := NewFeeService(fees, &classStoreStub{}, &studentStoreStub{}, academic, nil, nil, nil, nil, nil)

	_, err := svc.GenerateMissing(context.Background(), "tenant-1", "admin-1")
	requireCode(t, err, appErrors.ErrValidation.Code)
}

func TestFeeScholarshipRepairLeavesCredit(t *testing.T) {
	svc, fees, _ := newFeeFixture()
	fees.scholarships["s2"] = true

	_, err := svc.SetupStructure(context.Background(), "tenant-1", setupRequest(50000), "admin-1")
	require.NoError(t, err)

	record, err := fees.GetRecord(context.Background(), "tenant-1", "s2", "term-1", "sess-1")
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), "tenant-1", record.ID, dto.RecordPaymentRequest{
		Amount: 10000,
		Method: "transfer",
	}, "acct-1")
	require.NoError(t, err)

	result, err := svc.RepairScholarships(context.Background(), "tenant-1", "admin-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), result.RecordsRepaired)

	record, err = fees.GetRecord(context.Background(), "tenant-1", "s2", "term-1", "sess-1")
	require.NoError(t, err)
	require.Zero(t, record.ExpectedAmount)
	require.Equal(t, 10000.0, record.PaidAmount)
	require.Equal(t, -10000.0, record.Balance)

	// Running it again finds nothing to repair.
	result, err = svc.RepairScholarships(context.Background(), "tenant-1", "admin-1")
	require.NoError(t, err)
	require.Zero(t, result.RecordsRepaired)
}

func TestFeeRecordPaymentValidation(t *testing.T) {
	svc, _, _ := newFeeFixture()

	_, err := svc.RecordPayment(context.Background(), "tenant-1", "fr-1", dto.RecordPaymentRequest{Amount: 0, Method: "cash"}, "acct-1")
	requireCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.RecordPayment(context.Background(), "tenant-1", "missing", dto.RecordPaymentRequest{Amount: 100, Method: "cash"}, "acct-1")
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestFeeSetClearance(t *testing.T) {
	svc, fees, _ := newFeeFixture()
	_, err := svc.SetupStructure(context.Background(), "tenant-1", setupRequest(50000), "admin-1")
	require.NoError(t, err)

	record, err := fees.GetRecord(context.Background(), "tenant-1", "s1", "term-1", "sess-1")
	require.NoError(t, err)

	require.NoError(t, svc.SetClearance(context.Background(), "tenant-1", record.ID, false, "admin-1"))
	record, err = fees.GetRecord(context.Background(), "tenant-1", "s1", "term-1", "sess-1")
	require.NoError(t, err)
	require.False(t, record.IsClearedForExam)

	requireCode(t, svc.SetClearance(context.Background(), "tenant-1", "missing", true, "admin-1"), appErrors.ErrNotFound.Code)
}

func TestFeeExportStatementRequiresScope(t *testing.T) {
	svc, _, _ := newFeeFixture()

	_, err := svc.ExportStatement(context.Background(), "tenant-1", models.FeeRecordFilter{}, "csv", "admin-1")
	requireCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.ExportStatement(context.Background(), "tenant-1", models.FeeRecordFilter{
		ClassID: "jss1-a", TermID: "term-1", SessionID: "sess-1",
	}, "xlsx", "admin-1")
	requireCode(t, err, appErrors.ErrValidation.Code)
}
