package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newPromotionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPromotionRepositoryPromote(t *testing.T) {
	db, mock, cleanup := newPromotionRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	sessionID := "sess-1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id FROM students")).
		WithArgs("s1", "tenant-1", "active").
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}).AddRow("jss1-a"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET class_id")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO promotion_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Promote(context.Background(), PromoteParams{
		TenantID:      "tenant-1",
		StudentID:     "s1",
		TargetClassID: "jss2-a",
		SessionID:     &sessionID,
		PerformedBy:   "admin-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepositoryPromoteInactiveStudent(t *testing.T) {
	db, mock, cleanup := newPromotionRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id FROM students")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Promote(context.Background(), PromoteParams{
		TenantID:      "tenant-1",
		StudentID:     "alumnus",
		TargetClassID: "jss2-a",
		PerformedBy:   "admin-1",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepositoryGraduate(t *testing.T) {
	db, mock, cleanup := newPromotionRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id, admission_number FROM students")).
		WithArgs("s1", "tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "admission_number"}).AddRow("sss3-a", "ADM/001"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO alumni")).
		WithArgs(sqlmock.AnyArg(), "tenant-1", "s1", 2025, "AL/2025/ADM/001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO promotion_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Graduate(context.Background(), GraduateParams{
		TenantID:       "tenant-1",
		StudentID:      "s1",
		GraduationYear: 2025,
		PerformedBy:    "admin-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepositoryGraduateUnknownStudent(t *testing.T) {
	db, mock, cleanup := newPromotionRepoMock(t)
	defer cleanup()

	repo := NewPromotionRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id, admission_number FROM students")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Graduate(context.Background(), GraduateParams{
		TenantID:       "tenant-1",
		StudentID:      "ghost",
		GraduationYear: 2025,
		PerformedBy:    "admin-1",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
