package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

func TestValidateGradeLevelPasses(t *testing.T) {
	svc := newValidationFixture(validationFixtureConfig{
		gradeTotal: 30,
		coreCourses: []models.Course{
			{ID: "math", Name: "MATH-7", GradeLevel: 7, CourseType: models.CourseTypeCore},
		},
		enrolledByCourse: map[string]int{"math": 30},
		periodCounts:     map[string]int{"p1": 30, "p2": 12},
	})

	validation, err := svc.ValidateGradeLevel(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, validation.Valid)
	assert.Empty(t, validation.Errors)
}

func TestValidateGradeLevelFlagsCoreUnderEnrollment(t *testing.T) {
	svc := newValidationFixture(validationFixtureConfig{
		gradeTotal: 30,
		coreCourses: []models.Course{
			{ID: "math", Name: "MATH-7", GradeLevel: 7, CourseType: models.CourseTypeCore},
		},
		enrolledByCourse: map[string]int{"math": 27},
	})

	validation, err := svc.ValidateGradeLevel(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, validation.Valid)
	require.Len(t, validation.Errors, 1)
	assert.Contains(t, validation.Errors[0], "MATH-7")
	assert.Contains(t, validation.Errors[0], "27 of 30")
}

func TestValidateGradeLevelIgnoresOtherGrades(t *testing.T) {
	svc := newValidationFixture(validationFixtureConfig{
		gradeTotal: 30,
		coreCourses: []models.Course{
			{ID: "math8", Name: "MATH-8", GradeLevel: 8, CourseType: models.CourseTypeCore},
		},
		enrolledByCourse: map[string]int{"math8": 0},
	})

	validation, err := svc.ValidateGradeLevel(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, validation.Valid)
}

func TestValidateGradeLevelFlagsPeriodOverCapacity(t *testing.T) {
	svc := newValidationFixture(validationFixtureConfig{
		gradeTotal:   25,
		periodCounts: map[string]int{"p1": 26},
	})

	validation, err := svc.ValidateGradeLevel(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, validation.Valid)
	require.Len(t, validation.Errors, 1)
	assert.Contains(t, validation.Errors[0], "Period 1")
}

func TestExclusivityViolationsPassThrough(t *testing.T) {
	violations := []models.ExclusivityViolation{
		{StudentID: "s1", StudentName: "Student 1", GroupID: "g1", GroupName: "Math Track", CourseCount: 2},
	}
	svc := newValidationFixture(validationFixtureConfig{violations: violations})

	got, err := svc.ExclusivityViolations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, violations, got)
}

// --- Fixtures ---

type validationFixtureConfig struct {
	gradeTotal       int
	coreCourses      []models.Course
	enrolledByCourse map[string]int
	periodCounts     map[string]int
	violations       []models.ExclusivityViolation
}

func newValidationFixture(cfg validationFixtureConfig) *ValidationService {
	return NewValidationService(
		validationCourseStub{courses: cfg.coreCourses, enrolled: cfg.enrolledByCourse},
		validationSectionStub{counts: cfg.periodCounts},
		periodListerStub{},
		validationStudentStub{total: cfg.gradeTotal},
		exclusivityStub{violations: cfg.violations},
		zap.NewNop(),
	)
}

type validationCourseStub struct {
	courses  []models.Course
	enrolled map[string]int
}

func (s validationCourseStub) ListByType(ctx context.Context, courseType models.CourseType) ([]models.Course, error) {
	var out []models.Course
	for _, c := range s.courses {
		if c.CourseType == courseType {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s validationCourseStub) CountEnrolledByGrade(ctx context.Context, courseID string, gradeLevel int) (int, error) {
	return s.enrolled[courseID], nil
}

type validationSectionStub struct {
	counts map[string]int
}

func (s validationSectionStub) CountDistinctByPeriodGrade(ctx context.Context, periodID string, gradeLevel int) (int, error) {
	return s.counts[periodID], nil
}

type validationStudentStub struct {
	total int
}

func (s validationStudentStub) CountByGrade(ctx context.Context, gradeLevel int) (int, error) {
	return s.total, nil
}

type exclusivityStub struct {
	violations []models.ExclusivityViolation
}

func (s exclusivityStub) ListExclusivityViolations(ctx context.Context) ([]models.ExclusivityViolation, error) {
	return s.violations, nil
}
