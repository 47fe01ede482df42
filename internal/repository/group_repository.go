package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

// GroupRepository loads language groups and exclusivity course groups
// together with their linked periods and courses.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListLanguageGroups returns every language group ordered by grade level.
// Periods and courses are not loaded; call FindLanguageGroup for a full view.
func (r *GroupRepository) ListLanguageGroups(ctx context.Context) ([]models.LanguageGroup, error) {
	const query = `SELECT id, name, grade_level, created_at, updated_at
        FROM language_groups ORDER BY grade_level, name`
	var groups []models.LanguageGroup
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list language groups: %w", err)
	}
	return groups, nil
}

// FindLanguageGroup fetches a language group with its periods ordered by
// start time and its courses in rotation order.
func (r *GroupRepository) FindLanguageGroup(ctx context.Context, id string) (*models.LanguageGroup, error) {
	const query = `SELECT id, name, grade_level, created_at, updated_at
        FROM language_groups WHERE id = $1`
	var group models.LanguageGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find language group: %w", err)
	}

	const periodQuery = `SELECT p.id, p.name, p.start_time, p.end_time, p.created_at, p.updated_at
        FROM periods p
        JOIN language_group_periods lgp ON lgp.period_id = p.id
        WHERE lgp.language_group_id = $1
        ORDER BY p.start_time`
	if err := r.db.SelectContext(ctx, &group.Periods, periodQuery, id); err != nil {
		return nil, fmt.Errorf("load language group periods: %w", err)
	}

	const courseQuery = `SELECT c.id, c.name, c.code, c.description, c.grade_level, c.course_type,
        c.duration, c.num_sections, c.max_students_per_section, c.exclusivity_group,
        c.count_requirement, c.required_count, c.created_at, c.updated_at
        FROM courses c
        JOIN language_group_courses lgc ON lgc.course_id = c.id
        WHERE lgc.language_group_id = $1
        ORDER BY lgc.position`
	if err := r.db.SelectContext(ctx, &group.Courses, courseQuery, id); err != nil {
		return nil, fmt.Errorf("load language group courses: %w", err)
	}
	return &group, nil
}

// LanguageCourseIDs returns the IDs of every course that belongs to any
// language group. Batch distribution skips these in the per-course pass.
func (r *GroupRepository) LanguageCourseIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT course_id FROM language_group_courses`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list language course ids: %w", err)
	}
	return ids, nil
}

// ListCourseGroups returns exclusivity course groups with member courses.
func (r *GroupRepository) ListCourseGroups(ctx context.Context) ([]models.CourseGroup, error) {
	const query = `SELECT id, name, grade_level, created_at, updated_at
        FROM course_groups ORDER BY grade_level, name`
	var groups []models.CourseGroup
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list course groups: %w", err)
	}
	const courseQuery = `SELECT c.id, c.name, c.code, c.description, c.grade_level, c.course_type,
        c.duration, c.num_sections, c.max_students_per_section, c.exclusivity_group,
        c.count_requirement, c.required_count, c.created_at, c.updated_at
        FROM courses c
        JOIN course_group_courses cgc ON cgc.course_id = c.id
        WHERE cgc.course_group_id = $1
        ORDER BY c.name`
	for i := range groups {
		if err := r.db.SelectContext(ctx, &groups[i].Courses, courseQuery, groups[i].ID); err != nil {
			return nil, fmt.Errorf("load course group courses: %w", err)
		}
	}
	return groups, nil
}

// ListExclusivityViolations finds students holding enrollments in multiple
// courses of the same exclusivity group.
func (r *GroupRepository) ListExclusivityViolations(ctx context.Context) ([]models.ExclusivityViolation, error) {
	const query = `SELECT u.id AS student_id, u.full_name AS student_name,
        cg.id AS group_id, cg.name AS group_name, COUNT(DISTINCT s.course_id) AS course_count
        FROM section_enrollments se
        JOIN sections s ON s.id = se.section_id
        JOIN course_group_courses cgc ON cgc.course_id = s.course_id
        JOIN course_groups cg ON cg.id = cgc.course_group_id
        JOIN users u ON u.id = se.student_id
        GROUP BY u.id, u.full_name, cg.id, cg.name
        HAVING COUNT(DISTINCT s.course_id) > 1
        ORDER BY cg.name, u.full_name`
	var violations []models.ExclusivityViolation
	if err := r.db.SelectContext(ctx, &violations, query); err != nil {
		return nil, fmt.Errorf("list exclusivity violations: %w", err)
	}
	return violations, nil
}
