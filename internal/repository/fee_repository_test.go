package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/classforge/school-api/internal/models"
)

func newFeeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func feeRecordRows(id string, expected, paid float64, cleared bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "student_id", "term_id", "session_id",
		"expected_amount", "paid_amount", "balance", "is_cleared_for_exam",
		"created_at", "updated_at",
	}).AddRow(id, "tenant-1", "s1", "term-1", "sess-1", expected, paid, expected-paid, cleared, now, now)
}

func TestFeeRepositoryUpsertStructure(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "class_id", "term_id", "session_id", "amount", "description", "created_at", "updated_at",
	}).AddRow("fs-1", "tenant-1", "jss1-a", "term-1", "sess-1", 50000.0, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO class_fee_structures")).
		WillReturnRows(rows)

	structure := &models.ClassFeeStructure{
		TenantID:  "tenant-1",
		ClassID:   "jss1-a",
		TermID:    "term-1",
		SessionID: "sess-1",
		Amount:    50000,
	}
	require.NoError(t, repo.UpsertStructure(context.Background(), structure))
	require.Equal(t, "fs-1", structure.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryGetRecordNotFound(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tenant_id, student_id")).
		WithArgs("tenant-1", "s1", "term-1", "sess-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetRecord(context.Background(), "tenant-1", "s1", "term-1", "sess-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryUpdateExpectedAmount(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateExpectedAmount(context.Background(), "tenant-1", "fr-1", 60000))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateExpectedAmount(context.Background(), "tenant-1", "missing", 60000)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryInsertMissingForPeriod(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fee_records")).
		WillReturnResult(sqlmock.NewResult(0, 7))

	created, err := repo.InsertMissingForPeriod(context.Background(), "tenant-1", "sess-1", "term-1")
	require.NoError(t, err)
	require.Equal(t, int64(7), created)

	// A repeat run matches nothing and creates nothing.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fee_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = repo.InsertMissingForPeriod(context.Background(), "tenant-1", "sess-1", "term-1")
	require.NoError(t, err)
	require.Zero(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryRepairScholarshipRecords(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_records fr")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repaired, err := repo.RepairScholarshipRecords(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), repaired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryRecordPayment(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fee_payments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE fee_records")).
		WillReturnRows(feeRecordRows("fr-1", 50000, 20000, true))
	mock.ExpectCommit()

	record, err := repo.RecordPayment(context.Background(), &models.FeePayment{
		TenantID:    "tenant-1",
		FeeRecordID: "fr-1",
		Amount:      20000,
		Method:      "cash",
		RecordedBy:  "acct-1",
	})
	require.NoError(t, err)
	require.Equal(t, 20000.0, record.PaidAmount)
	require.Equal(t, 30000.0, record.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryRecordPaymentUnknownRecord(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fee_payments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE fee_records")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.RecordPayment(context.Background(), &models.FeePayment{
		TenantID:    "tenant-1",
		FeeRecordID: "missing",
		Amount:      100,
		Method:      "cash",
		RecordedBy:  "acct-1",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryListRecordsFilters(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()

	repo := NewFeeRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "student_id", "term_id", "session_id",
		"expected_amount", "paid_amount", "balance", "is_cleared_for_exam",
		"created_at", "updated_at", "admission_number", "student_name",
	}).AddRow("fr-1", "tenant-1", "s1", "term-1", "sess-1", 50000.0, 0.0, 50000.0, false, now, now, "ADM/001", "Ada Obi")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT fr.id, fr.tenant_id")).
		WithArgs("tenant-1", "jss1-a", "term-1", "sess-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("tenant-1", "jss1-a", "term-1", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.ListRecords(context.Background(), "tenant-1", models.FeeRecordFilter{
		ClassID:   "jss1-a",
		TermID:    "term-1",
		SessionID: "sess-1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, records, 1)
	require.Equal(t, "ADM/001", records[0].AdmissionNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}
