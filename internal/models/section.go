package models

import "time"

// Section is one scheduled instance of a course. Teacher, period and room are
// weak references: deleting any of them nulls the pointer here instead of
// cascading into the section.
type Section struct {
	ID            string    `db:"id" json:"id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	SectionNumber int       `db:"section_number" json:"section_number"`
	Name          string    `db:"name" json:"name"`
	Trimester     *int      `db:"trimester" json:"trimester,omitempty"`
	MaxStudents   *int      `db:"max_students" json:"max_students,omitempty"`
	TeacherID     *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	PeriodID      *string   `db:"period_id" json:"period_id,omitempty"`
	RoomID        *string   `db:"room_id" json:"room_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Capacity returns the effective seat limit for the section.
func (s Section) Capacity(course Course) int {
	if s.MaxStudents != nil && *s.MaxStudents > 0 {
		return *s.MaxStudents
	}
	return course.MaxStudentsPerSection
}

// SectionDetail joins a section with its period name and enrolled count.
type SectionDetail struct {
	Section
	PeriodName    *string `db:"period_name" json:"period_name,omitempty"`
	EnrolledCount int     `db:"enrolled_count" json:"enrolled_count"`
}

// Enrollment links a student to a section after distribution.
type Enrollment struct {
	SectionID string    `db:"section_id" json:"section_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PeriodOccupancy is one row of the student-to-period occupancy snapshot used
// to seed the in-memory conflict tracker at the start of a distribution run.
type PeriodOccupancy struct {
	StudentID string `db:"student_id"`
	PeriodID  string `db:"period_id"`
	CourseID  string `db:"course_id"`
}

// EnrollmentRow pairs a section with one of its enrolled students.
type EnrollmentRow struct {
	SectionID  string `db:"section_id"`
	StudentID  string `db:"student_id"`
	FullName   string `db:"full_name"`
	GradeLevel int    `db:"grade_level"`
}

// SectionConflict identifies an enrollment double-booking a period.
type SectionConflict struct {
	SectionID   string `db:"section_id"`
	SectionName string `db:"section_name"`
	StudentID   string `db:"student_id"`
	PeriodID    string `db:"period_id"`
}
