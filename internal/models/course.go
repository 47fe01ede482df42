package models

import "time"

// CourseType classifies how a course participates in scheduling.
type CourseType string

const (
	CourseTypeCore             CourseType = "CORE"
	CourseTypeRequiredElective CourseType = "REQUIRED_ELECTIVE"
	CourseTypeElective         CourseType = "ELECTIVE"
	CourseTypeLanguage         CourseType = "LANGUAGE"
)

// coursePriorities ranks course types for batch distribution ordering.
// Lower rank distributes earlier.
var coursePriorities = map[CourseType]int{
	CourseTypeCore:             0,
	CourseTypeRequiredElective: 1,
	CourseTypeElective:         2,
	CourseTypeLanguage:         3,
}

// PriorityRank returns the explicit distribution priority of the course type.
// Unknown types sort last.
func (t CourseType) PriorityRank() int {
	if rank, ok := coursePriorities[t]; ok {
		return rank
	}
	return len(coursePriorities)
}

// CourseDuration describes how long a course runs within the school year.
type CourseDuration string

const (
	DurationQuarter   CourseDuration = "QUARTER"
	DurationTrimester CourseDuration = "TRIMESTER"
	DurationYear      CourseDuration = "YEAR"
)

// CountRequirement expresses the expected size of a course's roster.
type CountRequirement string

const (
	CountRequirementFullGrade CountRequirement = "FULL_GRADE"
	CountRequirementExact     CountRequirement = "EXACT"
	CountRequirementMin       CountRequirement = "MIN"
	CountRequirementMax       CountRequirement = "MAX"
)

// Course represents an academic offering, distinct from its scheduled sections.
type Course struct {
	ID                    string           `db:"id" json:"id"`
	Name                  string           `db:"name" json:"name"`
	Code                  *string          `db:"code" json:"code,omitempty"`
	Description           string           `db:"description" json:"description,omitempty"`
	GradeLevel            int              `db:"grade_level" json:"grade_level"`
	CourseType            CourseType       `db:"course_type" json:"course_type"`
	Duration              CourseDuration   `db:"duration" json:"duration"`
	NumSections           int              `db:"num_sections" json:"num_sections"`
	MaxStudentsPerSection int              `db:"max_students_per_section" json:"max_students_per_section"`
	ExclusivityGroup      *string          `db:"exclusivity_group" json:"exclusivity_group,omitempty"`
	CountRequirement      CountRequirement `db:"count_requirement" json:"count_requirement"`
	RequiredCount         *int             `db:"required_count" json:"required_count,omitempty"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

// Label returns the human readable identifier used in logs and results.
func (c Course) Label() string {
	if c.Code != nil && *c.Code != "" {
		return *c.Code
	}
	return c.Name
}

// CourseOverview annotates a course with roster and section counts.
type CourseOverview struct {
	Course
	RegisteredCount int `db:"registered_count" json:"registered_count"`
	SectionCount    int `db:"section_count" json:"section_count"`
}
