package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

// StudentRepository reads the student population used for grade-level
// bookkeeping and language-group cohorts.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByGrade returns all active students at a grade level ordered by name.
func (r *StudentRepository) ListByGrade(ctx context.Context, gradeLevel int) ([]models.Student, error) {
	const query = `SELECT id, full_name, grade_level FROM users
        WHERE role = $1 AND grade_level = $2 AND active
        ORDER BY full_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, models.RoleStudent, gradeLevel); err != nil {
		return nil, fmt.Errorf("list students by grade: %w", err)
	}
	return students, nil
}

// CountByGrade returns the total active student population of a grade level.
func (r *StudentRepository) CountByGrade(ctx context.Context, gradeLevel int) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role = $1 AND grade_level = $2 AND active`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.RoleStudent, gradeLevel); err != nil {
		return 0, fmt.Errorf("count students by grade: %w", err)
	}
	return count, nil
}
