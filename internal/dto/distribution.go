package dto

// EnrolledStudent is the roster entry returned in distribution snapshots.
type EnrolledStudent struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	GradeLevel int    `json:"grade_level"`
}

// UnassignedStudent records a student the distributor could not place.
type UnassignedStudent struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Reason   string `json:"reason"`
}

// SectionDistribution is the per-section roster in a distribution result.
type SectionDistribution struct {
	SectionID    string            `json:"section_id"`
	SectionName  string            `json:"section_name"`
	Period       *string           `json:"period,omitempty"`
	Trimester    *int              `json:"trimester,omitempty"`
	StudentCount int               `json:"student_count"`
	Students     []EnrolledStudent `json:"students"`
}

// DistributionResult is the outcome of distributing a single course or one
// language group. Partial placement is still a success: unassigned students
// are surfaced, never silently dropped.
type DistributionResult struct {
	Success       bool                  `json:"success"`
	Error         string                `json:"error,omitempty"`
	CourseID      string                `json:"course_id,omitempty"`
	CourseName    string                `json:"course_name,omitempty"`
	CourseCode    string                `json:"course_code,omitempty"`
	GroupID       string                `json:"group_id,omitempty"`
	GroupName     string                `json:"group_name,omitempty"`
	TotalStudents int                   `json:"total_students"`
	NumSections   int                   `json:"num_sections"`
	Distribution  []SectionDistribution `json:"distribution"`
	Unassigned    []UnassignedStudent   `json:"unassigned_students"`
}

// GradeLevelValidation reports post-distribution invariant checks for one
// grade level.
type GradeLevelValidation struct {
	GradeLevel int      `json:"grade_level"`
	Valid      bool     `json:"valid"`
	Errors     []string `json:"errors,omitempty"`
}

// RemovedConflict describes an enrollment the batch sweep revoked because it
// double-booked a period after sibling courses were distributed.
type RemovedConflict struct {
	StudentID   string `json:"student_id"`
	CourseID    string `json:"course_id"`
	SectionID   string `json:"section_id"`
	SectionName string `json:"section_name"`
	PeriodID    string `json:"period_id"`
}

// BatchDistributionResult aggregates a full distribute-all run.
type BatchDistributionResult struct {
	Success          bool                         `json:"success"`
	LanguageGroups   []*DistributionResult        `json:"language_groups"`
	Courses          []*DistributionResult        `json:"courses"`
	GradeLevelStats  map[int]GradeLevelValidation `json:"grade_level_stats"`
	RemovedConflicts []RemovedConflict            `json:"removed_conflicts,omitempty"`
}

// DistributionStatus is the read-only snapshot of a course's distribution.
type DistributionStatus struct {
	CourseID      string                `json:"course_id"`
	CourseName    string                `json:"course_name"`
	CourseCode    string                `json:"course_code,omitempty"`
	TotalStudents int                   `json:"total_students"`
	NumSections   int                   `json:"num_sections"`
	IsDistributed bool                  `json:"is_distributed"`
	Distribution  []SectionDistribution `json:"distribution"`
}

// CourseStatusSummary is one row of the all-courses distribution overview.
type CourseStatusSummary struct {
	CourseID      string `json:"course_id"`
	Name          string `json:"name"`
	Code          string `json:"code,omitempty"`
	GradeLevel    int    `json:"grade_level"`
	CourseType    string `json:"course_type"`
	TotalStudents int    `json:"total_students"`
	NumSections   int    `json:"num_sections"`
	IsDistributed bool   `json:"is_distributed"`
}

// ClearResult acknowledges a clear operation.
type ClearResult struct {
	Success         bool `json:"success"`
	SectionsCleared int  `json:"sections_cleared"`
}
