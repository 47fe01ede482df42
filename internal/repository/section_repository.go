package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

// SectionRepository handles persistence of sections and the enrollment
// relation written by the distributor. Mutating methods take an ExtContext so
// callers can run them inside a transaction.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionColumns = `id, course_id, section_number, name, trimester, max_students,
        teacher_id, period_id, room_id, created_at, updated_at`

// ListByCourse returns all sections of a course ordered by section number.
func (r *SectionRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE course_id = $1 ORDER BY section_number`, sectionColumns)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, courseID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// ListDetailsByCourse returns sections with period names and enrolled counts.
func (r *SectionRepository) ListDetailsByCourse(ctx context.Context, courseID string) ([]models.SectionDetail, error) {
	const query = `SELECT s.id, s.course_id, s.section_number, s.name, s.trimester, s.max_students,
        s.teacher_id, s.period_id, s.room_id, s.created_at, s.updated_at,
        p.name AS period_name,
        COUNT(se.student_id) AS enrolled_count
        FROM sections s
        LEFT JOIN periods p ON p.id = s.period_id
        LEFT JOIN section_enrollments se ON se.section_id = s.id
        WHERE s.course_id = $1
        GROUP BY s.id, p.name
        ORDER BY s.section_number`
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, courseID); err != nil {
		return nil, fmt.Errorf("list section details: %w", err)
	}
	return sections, nil
}

// FindByCourseAndPeriod returns the section of a course meeting in a period,
// or sql.ErrNoRows when none exists.
func (r *SectionRepository) FindByCourseAndPeriod(ctx context.Context, exec sqlx.ExtContext, courseID, periodID string) (*models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE course_id = $1 AND period_id = $2 ORDER BY section_number LIMIT 1`, sectionColumns)
	var section models.Section
	if err := sqlx.GetContext(ctx, exec, &section, query, courseID, periodID); err != nil {
		return nil, err
	}
	return &section, nil
}

// NextSectionNumber returns the next free section number for a course.
func (r *SectionRepository) NextSectionNumber(ctx context.Context, exec sqlx.ExtContext, courseID string) (int, error) {
	const query = `SELECT COALESCE(MAX(section_number), 0) + 1 FROM sections WHERE course_id = $1`
	var next int
	if err := sqlx.GetContext(ctx, exec, &next, query, courseID); err != nil {
		return 0, fmt.Errorf("next section number: %w", err)
	}
	return next, nil
}

// Create persists a new section.
func (r *SectionRepository) Create(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO sections (id, course_id, section_number, name, trimester, max_students,
        teacher_id, period_id, room_id, created_at, updated_at)
        VALUES (:id, :course_id, :section_number, :name, :trimester, :max_students,
        :teacher_id, :period_id, :room_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// SetTrimester updates the trimester a section meets in.
func (r *SectionRepository) SetTrimester(ctx context.Context, exec sqlx.ExtContext, sectionID string, trimester int) error {
	const query = `UPDATE sections SET trimester = $2, updated_at = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, sectionID, trimester, time.Now().UTC()); err != nil {
		return fmt.Errorf("set trimester: %w", err)
	}
	return nil
}

// Enroll places a student in a section.
func (r *SectionRepository) Enroll(ctx context.Context, exec sqlx.ExtContext, sectionID, studentID string) error {
	const query = `INSERT INTO section_enrollments (section_id, student_id, created_at) VALUES ($1, $2, $3)`
	if _, err := exec.ExecContext(ctx, query, sectionID, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("enroll student %s: %w", studentID, err)
	}
	return nil
}

// RemoveEnrollment revokes a student's placement in a section.
func (r *SectionRepository) RemoveEnrollment(ctx context.Context, exec sqlx.ExtContext, sectionID, studentID string) error {
	const query = `DELETE FROM section_enrollments WHERE section_id = $1 AND student_id = $2`
	if _, err := exec.ExecContext(ctx, query, sectionID, studentID); err != nil {
		return fmt.Errorf("remove enrollment: %w", err)
	}
	return nil
}

// ClearEnrollments empties one section's roster.
func (r *SectionRepository) ClearEnrollments(ctx context.Context, exec sqlx.ExtContext, sectionID string) error {
	const query = `DELETE FROM section_enrollments WHERE section_id = $1`
	if _, err := exec.ExecContext(ctx, query, sectionID); err != nil {
		return fmt.Errorf("clear section enrollments: %w", err)
	}
	return nil
}

// ClearEnrollmentsByCourse empties every section roster of a course and
// returns the number of sections touched.
func (r *SectionRepository) ClearEnrollmentsByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) (int, error) {
	const query = `DELETE FROM section_enrollments WHERE section_id IN (SELECT id FROM sections WHERE course_id = $1)`
	if _, err := exec.ExecContext(ctx, query, courseID); err != nil {
		return 0, fmt.Errorf("clear course enrollments: %w", err)
	}
	const count = `SELECT COUNT(*) FROM sections WHERE course_id = $1`
	var sections int
	if err := sqlx.GetContext(ctx, exec, &sections, count, courseID); err != nil {
		return 0, fmt.Errorf("count cleared sections: %w", err)
	}
	return sections, nil
}

// ClearAllEnrollments empties every section roster system-wide.
func (r *SectionRepository) ClearAllEnrollments(ctx context.Context, exec sqlx.ExtContext) (int, error) {
	if _, err := exec.ExecContext(ctx, `DELETE FROM section_enrollments`); err != nil {
		return 0, fmt.Errorf("clear all enrollments: %w", err)
	}
	var sections int
	if err := sqlx.GetContext(ctx, exec, &sections, `SELECT COUNT(*) FROM sections`); err != nil {
		return 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, nil
}

// PeriodOccupancy returns every current (student, period, course) occupancy
// row. Seeds the in-memory conflict tracker at the start of a run.
func (r *SectionRepository) PeriodOccupancy(ctx context.Context, exec sqlx.ExtContext) ([]models.PeriodOccupancy, error) {
	const query = `SELECT se.student_id, s.period_id, s.course_id
        FROM section_enrollments se
        JOIN sections s ON s.id = se.section_id
        WHERE s.period_id IS NOT NULL`
	var rows []models.PeriodOccupancy
	if err := sqlx.SelectContext(ctx, exec, &rows, query); err != nil {
		return nil, fmt.Errorf("load period occupancy: %w", err)
	}
	return rows, nil
}

// HasPeriodConflict reports whether the student is enrolled in a section of a
// different course meeting in the given period. This is the final check run
// against live data immediately before committing a placement.
func (r *SectionRepository) HasPeriodConflict(ctx context.Context, exec sqlx.ExtContext, studentID, periodID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM section_enrollments se
        JOIN sections s ON s.id = se.section_id
        WHERE se.student_id = $1 AND s.period_id = $2 AND s.course_id <> $3
        LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, exec, &exists, query, studentID, periodID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check period conflict: %w", err)
	}
	return true, nil
}

// EnrolledStudentsByCourse returns every enrollment of a course with the
// student projection attached, grouped by section via the caller.
func (r *SectionRepository) EnrolledStudentsByCourse(ctx context.Context, courseID string) ([]models.EnrollmentRow, error) {
	const query = `SELECT se.section_id, u.id AS student_id, u.full_name, u.grade_level
        FROM section_enrollments se
        JOIN sections s ON s.id = se.section_id
        JOIN users u ON u.id = se.student_id
        WHERE s.course_id = $1
        ORDER BY s.section_number, u.full_name`
	var rows []models.EnrollmentRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return rows, nil
}

// ListConflictingEnrollments finds enrollments in a course's sections whose
// student also holds a different-course enrollment in the same period. Used
// by the batch sweep after each course is distributed.
func (r *SectionRepository) ListConflictingEnrollments(ctx context.Context, courseID string) ([]models.SectionConflict, error) {
	const query = `SELECT se.section_id, s.name AS section_name, se.student_id, s.period_id
        FROM section_enrollments se
        JOIN sections s ON s.id = se.section_id
        WHERE s.course_id = $1 AND s.period_id IS NOT NULL
        AND EXISTS (
            SELECT 1 FROM section_enrollments other
            JOIN sections os ON os.id = other.section_id
            WHERE other.student_id = se.student_id
            AND os.period_id = s.period_id
            AND os.course_id <> s.course_id
        )`
	var rows []models.SectionConflict
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list conflicting enrollments: %w", err)
	}
	return rows, nil
}

// CountDistinctByPeriodGrade counts distinct students of a grade level
// enrolled across all sections meeting in a period.
func (r *SectionRepository) CountDistinctByPeriodGrade(ctx context.Context, periodID string, gradeLevel int) (int, error) {
	const query = `SELECT COUNT(DISTINCT se.student_id)
        FROM section_enrollments se
        JOIN sections s ON s.id = se.section_id
        JOIN users u ON u.id = se.student_id
        WHERE s.period_id = $1 AND u.grade_level = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, periodID, gradeLevel); err != nil {
		return 0, fmt.Errorf("count period grade occupancy: %w", err)
	}
	return count, nil
}

// IsDistributed reports whether any section of the course has at least one
// enrolled student.
func (r *SectionRepository) IsDistributed(ctx context.Context, courseID string) (bool, error) {
	const query = `SELECT 1 FROM section_enrollments se
        JOIN sections s ON s.id = se.section_id
        WHERE s.course_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check distribution: %w", err)
	}
	return true, nil
}
