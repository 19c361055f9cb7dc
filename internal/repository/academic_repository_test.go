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

func newAcademicRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAcademicRepositorySetCurrent(t *testing.T) {
	db, mock, cleanup := newAcademicRepoMock(t)
	defer cleanup()

	repo := NewAcademicRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM terms")).
		WithArgs("term-1", "sess-1", "tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_sessions SET is_current = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE terms SET is_current = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_sessions SET is_current = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE terms SET is_current = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tenants SET current_session_id")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetCurrent(context.Background(), "tenant-1", "sess-1", "term-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicRepositorySetCurrentTermOutsideSession(t *testing.T) {
	db, mock, cleanup := newAcademicRepoMock(t)
	defer cleanup()

	repo := NewAcademicRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM terms")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.SetCurrent(context.Background(), "tenant-1", "sess-1", "term-from-other-session")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicRepositoryGetCurrent(t *testing.T) {
	db, mock, cleanup := newAcademicRepoMock(t)
	defer cleanup()

	repo := NewAcademicRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_session_id, current_term_id FROM tenants")).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_session_id", "current_term_id"}).AddRow("sess-1", "term-1"))

	period, err := repo.GetCurrent(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Equal(t, "sess-1", period.SessionID)
	require.Equal(t, "term-1", period.TermID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_session_id, current_term_id FROM tenants")).
		WithArgs("tenant-2").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetCurrent(context.Background(), "tenant-2")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
