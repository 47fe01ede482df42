package models

import "time"

// LanguageGroup ties the language offerings of one grade level to the shared
// periods they rotate through across trimesters. Every course in the group
// must be a LANGUAGE course at the group's grade level.
type LanguageGroup struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	GradeLevel int       `db:"grade_level" json:"grade_level"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	Periods []Period `db:"-" json:"periods,omitempty"`
	Courses []Course `db:"-" json:"courses,omitempty"`
}

// CourseGroup names a set of mutually exclusive courses: a student may be
// enrolled in at most one of them at a time.
type CourseGroup struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	GradeLevel int       `db:"grade_level" json:"grade_level"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	Courses []Course `db:"-" json:"courses,omitempty"`
}

// ExclusivityViolation is a student enrolled in more than one course of an
// exclusive course group.
type ExclusivityViolation struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	GroupID     string `db:"group_id" json:"group_id"`
	GroupName   string `db:"group_name" json:"group_name"`
	CourseCount int    `db:"course_count" json:"course_count"`
}
