package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bellhaven-ms/scheduler-api/internal/dto"
	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

type validationCourseReader interface {
	ListByType(ctx context.Context, courseType models.CourseType) ([]models.Course, error)
	CountEnrolledByGrade(ctx context.Context, courseID string, gradeLevel int) (int, error)
}

type validationSectionReader interface {
	CountDistinctByPeriodGrade(ctx context.Context, periodID string, gradeLevel int) (int, error)
}

type validationStudentReader interface {
	CountByGrade(ctx context.Context, gradeLevel int) (int, error)
}

type exclusivityReader interface {
	ListExclusivityViolations(ctx context.Context) ([]models.ExclusivityViolation, error)
}

// ValidationService runs read-only post-distribution invariant checks.
// Violations are surfaced as warnings, never auto-corrected.
type ValidationService struct {
	courses     validationCourseReader
	sections    validationSectionReader
	periods     periodLister
	students    validationStudentReader
	exclusivity exclusivityReader
	logger      *zap.Logger
}

// NewValidationService wires the invariant checker.
func NewValidationService(
	courses validationCourseReader,
	sections validationSectionReader,
	periods periodLister,
	students validationStudentReader,
	exclusivity exclusivityReader,
	logger *zap.Logger,
) *ValidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationService{
		courses:     courses,
		sections:    sections,
		periods:     periods,
		students:    students,
		exclusivity: exclusivity,
		logger:      logger,
	}
}

// ValidateGradeLevel checks two invariants for one grade level: every CORE
// course at the grade must enroll the full grade population, and no period
// may hold more distinct students of the grade than the grade has.
func (s *ValidationService) ValidateGradeLevel(ctx context.Context, gradeLevel int) (dto.GradeLevelValidation, error) {
	validation := dto.GradeLevelValidation{GradeLevel: gradeLevel}

	total, err := s.students.CountByGrade(ctx, gradeLevel)
	if err != nil {
		return validation, err
	}

	cores, err := s.courses.ListByType(ctx, models.CourseTypeCore)
	if err != nil {
		return validation, err
	}
	for _, course := range cores {
		if course.GradeLevel != gradeLevel {
			continue
		}
		enrolled, err := s.courses.CountEnrolledByGrade(ctx, course.ID, gradeLevel)
		if err != nil {
			return validation, err
		}
		if enrolled != total {
			validation.Errors = append(validation.Errors,
				fmt.Sprintf("core course %s enrolls %d of %d grade %d students", course.Label(), enrolled, total, gradeLevel))
		}
	}

	periods, err := s.periods.List(ctx)
	if err != nil {
		return validation, err
	}
	for _, period := range periods {
		occupied, err := s.sections.CountDistinctByPeriodGrade(ctx, period.ID, gradeLevel)
		if err != nil {
			return validation, err
		}
		if occupied > total {
			validation.Errors = append(validation.Errors,
				fmt.Sprintf("period %s holds %d grade %d students but the grade has %d", period.Name, occupied, gradeLevel, total))
		}
	}

	validation.Valid = len(validation.Errors) == 0
	if !validation.Valid {
		s.logger.Warn("grade level validation failed",
			zap.Int("grade_level", gradeLevel),
			zap.Strings("errors", validation.Errors))
	}
	return validation, nil
}

// ExclusivityViolations lists students enrolled in more than one course of an
// exclusive course group.
func (s *ValidationService) ExclusivityViolations(ctx context.Context) ([]models.ExclusivityViolation, error) {
	return s.exclusivity.ListExclusivityViolations(ctx)
}
