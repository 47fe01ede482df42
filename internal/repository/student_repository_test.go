package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryListByGrade(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "grade_level"}).
		AddRow("s1", "Ana Brook", 7).
		AddRow("s2", "Ben Cole", 7)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, full_name, grade_level FROM users
        WHERE role = $1 AND grade_level = $2 AND active
        ORDER BY full_name`)).
		WithArgs(models.RoleStudent, 7).
		WillReturnRows(rows)

	students, err := repo.ListByGrade(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ana Brook", students[0].FullName)
	assert.Equal(t, 7, students[1].GradeLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCountByGrade(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE role = $1 AND grade_level = $2 AND active`)).
		WithArgs(models.RoleStudent, 8).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountByGrade(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
