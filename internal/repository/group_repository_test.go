package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

func newGroupMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGroupRepositoryFindLanguageGroup(t *testing.T) {
	db, mock, cleanup := newGroupMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, grade_level, created_at, updated_at
        FROM language_groups WHERE id = $1`)).
		WithArgs("lg1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "grade_level", "created_at", "updated_at"}).
			AddRow("lg1", "Grade 7 Languages", 7, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN language_group_periods lgp ON lgp.period_id = p.id`)).
		WithArgs("lg1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "start_time", "end_time", "created_at", "updated_at"}).
			AddRow("p1", "Period 1", "08:00", "08:50", time.Now(), time.Now()).
			AddRow("p2", "Period 2", "09:00", "09:50", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN language_group_courses lgc ON lgc.course_id = c.id`)).
		WithArgs("lg1").
		WillReturnRows(courseRow(courseRow(sqlmock.NewRows(courseColumnNames()),
			"fr", "French", 7, models.CourseTypeLanguage),
			"es", "Spanish", 7, models.CourseTypeLanguage))

	group, err := repo.FindLanguageGroup(context.Background(), "lg1")
	require.NoError(t, err)
	assert.Equal(t, "Grade 7 Languages", group.Name)
	require.Len(t, group.Periods, 2)
	require.Len(t, group.Courses, 2)
	assert.Equal(t, "French", group.Courses[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryFindLanguageGroupNotFound(t *testing.T) {
	db, mock, cleanup := newGroupMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM language_groups WHERE id = $1`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLanguageGroup(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryLanguageCourseIDs(t *testing.T) {
	db, mock, cleanup := newGroupMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT course_id FROM language_group_courses`)).
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow("fr").AddRow("es"))

	ids, err := repo.LanguageCourseIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fr", "es"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryListExclusivityViolations(t *testing.T) {
	db, mock, cleanup := newGroupMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name", "group_id", "group_name", "course_count"}).
		AddRow("s1", "Ana Brook", "cg1", "Grade 7 Arts", 2)
	mock.ExpectQuery(regexp.QuoteMeta(`HAVING COUNT(DISTINCT s.course_id) > 1`)).
		WillReturnRows(rows)

	violations, err := repo.ListExclusivityViolations(context.Background())
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "Grade 7 Arts", violations[0].GroupName)
	assert.Equal(t, 2, violations[0].CourseCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
