package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

// CourseRepository handles persistence of courses and their registration
// rosters (students signed up for a course but not yet placed in a section).
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, name, code, description, grade_level, course_type, duration,
        num_sections, max_students_per_section, exclusivity_group, count_requirement, required_count,
        created_at, updated_at`

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListOverview returns every course annotated with roster and section counts.
func (r *CourseRepository) ListOverview(ctx context.Context) ([]models.CourseOverview, error) {
	const query = `SELECT c.id, c.name, c.code, c.description, c.grade_level, c.course_type, c.duration,
        c.num_sections, c.max_students_per_section, c.exclusivity_group, c.count_requirement, c.required_count,
        c.created_at, c.updated_at,
        COUNT(DISTINCT cr.student_id) AS registered_count,
        COUNT(DISTINCT s.id) AS section_count
        FROM courses c
        LEFT JOIN course_registrations cr ON cr.course_id = c.id
        LEFT JOIN sections s ON s.course_id = c.id
        GROUP BY c.id
        ORDER BY c.grade_level, c.name`
	var courses []models.CourseOverview
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list course overview: %w", err)
	}
	return courses, nil
}

// ListDistributable returns courses that have at least one registered student.
// Ordering is left to the caller: batch priority uses the explicit course-type
// rank, not SQL string ordering.
func (r *CourseRepository) ListDistributable(ctx context.Context) ([]models.CourseOverview, error) {
	const query = `SELECT c.id, c.name, c.code, c.description, c.grade_level, c.course_type, c.duration,
        c.num_sections, c.max_students_per_section, c.exclusivity_group, c.count_requirement, c.required_count,
        c.created_at, c.updated_at,
        COUNT(DISTINCT cr.student_id) AS registered_count,
        COUNT(DISTINCT s.id) AS section_count
        FROM courses c
        JOIN course_registrations cr ON cr.course_id = c.id
        LEFT JOIN sections s ON s.course_id = c.id
        GROUP BY c.id
        HAVING COUNT(DISTINCT cr.student_id) > 0`
	var courses []models.CourseOverview
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list distributable courses: %w", err)
	}
	return courses, nil
}

// ListByType returns courses of the given type.
func (r *CourseRepository) ListByType(ctx context.Context, courseType models.CourseType) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE course_type = $1 ORDER BY grade_level, name`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, courseType); err != nil {
		return nil, fmt.Errorf("list courses by type: %w", err)
	}
	return courses, nil
}

// RegisteredStudents returns the registration roster of a course.
func (r *CourseRepository) RegisteredStudents(ctx context.Context, courseID string) ([]models.Student, error) {
	const query = `SELECT u.id, u.full_name, u.grade_level
        FROM course_registrations cr
        JOIN users u ON u.id = cr.student_id
        WHERE cr.course_id = $1 AND u.role = $2
        ORDER BY u.full_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, courseID, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("list registered students: %w", err)
	}
	return students, nil
}

// CountRegistered returns the roster size of a course.
func (r *CourseRepository) CountRegistered(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM course_registrations WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// AddRegistrations adds students to a course roster, ignoring duplicates.
// Used by the language-group distributor when it materialises rosters.
func (r *CourseRepository) AddRegistrations(ctx context.Context, exec sqlx.ExtContext, courseID string, studentIDs []string) error {
	const query = `INSERT INTO course_registrations (course_id, student_id, created_at)
        VALUES ($1, $2, $3) ON CONFLICT (course_id, student_id) DO NOTHING`
	now := time.Now().UTC()
	for _, studentID := range studentIDs {
		if _, err := exec.ExecContext(ctx, query, courseID, studentID, now); err != nil {
			return fmt.Errorf("register student %s: %w", studentID, err)
		}
	}
	return nil
}

// CountEnrolledByGrade returns the number of distinct students of one grade
// level enrolled across a course's sections.
func (r *CourseRepository) CountEnrolledByGrade(ctx context.Context, courseID string, gradeLevel int) (int, error) {
	const query = `SELECT COUNT(DISTINCT se.student_id)
        FROM section_enrollments se
        JOIN sections s ON s.id = se.section_id
        JOIN users u ON u.id = se.student_id
        WHERE s.course_id = $1 AND u.grade_level = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, gradeLevel); err != nil {
		return 0, fmt.Errorf("count enrolled by grade: %w", err)
	}
	return count, nil
}
