package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/bellhaven-ms/scheduler-api/internal/dto"
	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

const scopeLanguageGroup = "language_group"

type languageGroupReader interface {
	ListLanguageGroups(ctx context.Context) ([]models.LanguageGroup, error)
	FindLanguageGroup(ctx context.Context, id string) (*models.LanguageGroup, error)
	LanguageCourseIDs(ctx context.Context) ([]string, error)
}

type cohortStudentReader interface {
	ListByGrade(ctx context.Context, gradeLevel int) ([]models.Student, error)
}

type rotationSectionRepo interface {
	FindByCourseAndPeriod(ctx context.Context, exec sqlx.ExtContext, courseID, periodID string) (*models.Section, error)
	NextSectionNumber(ctx context.Context, exec sqlx.ExtContext, courseID string) (int, error)
	Create(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error
	SetTrimester(ctx context.Context, exec sqlx.ExtContext, sectionID string, trimester int) error
	ClearEnrollments(ctx context.Context, exec sqlx.ExtContext, sectionID string) error
	Enroll(ctx context.Context, exec sqlx.ExtContext, sectionID, studentID string) error
}

type rosterWriter interface {
	AddRegistrations(ctx context.Context, exec sqlx.ExtContext, courseID string, studentIDs []string) error
}

// LanguageGroupService rotates a grade-level cohort through every course of a
// language group. Students are split across the group's periods; within a
// period each course occupies a distinct trimester, so the whole rotation is
// conflict-free by construction.
type LanguageGroupService struct {
	groups   languageGroupReader
	students cohortStudentReader
	sections rotationSectionRepo
	courses  rosterWriter
	tx       txProvider
	metrics  *MetricsService
	logger   *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewLanguageGroupService wires the language rotation distributor.
func NewLanguageGroupService(
	groups languageGroupReader,
	students cohortStudentReader,
	sections rotationSectionRepo,
	courses rosterWriter,
	tx txProvider,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg DistributionConfig,
) *LanguageGroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := time.Now().UnixNano()
	if cfg.Deterministic {
		seed = cfg.Seed
	}
	return &LanguageGroupService{
		groups:   groups,
		students: students,
		sections: sections,
		courses:  courses,
		tx:       tx,
		metrics:  metrics,
		logger:   logger,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// List returns every configured language group.
func (s *LanguageGroupService) List(ctx context.Context) ([]models.LanguageGroup, error) {
	return s.groups.ListLanguageGroups(ctx)
}

// LanguageCourseIDs returns the IDs of courses handled by any language group.
func (s *LanguageGroupService) LanguageCourseIDs(ctx context.Context) ([]string, error) {
	return s.groups.LanguageCourseIDs(ctx)
}

// DistributeGroup runs the rotation for one language group.
func (s *LanguageGroupService) DistributeGroup(ctx context.Context, groupID string) (*dto.DistributionResult, error) {
	start := time.Now()

	group, err := s.groups.FindLanguageGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if s.metrics != nil {
				s.metrics.ObserveDistribution(scopeLanguageGroup, outcomeFailure, time.Since(start))
			}
			return &dto.DistributionResult{Success: false, Error: "language group not found"}, nil
		}
		return nil, err
	}

	result, err := s.distributeGroup(ctx, group)
	outcome := outcomeSuccess
	if err != nil || !result.Success {
		outcome = outcomeFailure
	}
	if s.metrics != nil {
		s.metrics.ObserveDistribution(scopeLanguageGroup, outcome, time.Since(start))
	}
	return result, err
}

// DistributeAllGroups runs the rotation for every configured group. One
// group's failure is recorded in its result and does not stop the others.
func (s *LanguageGroupService) DistributeAllGroups(ctx context.Context) ([]*dto.DistributionResult, error) {
	groups, err := s.groups.ListLanguageGroups(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*dto.DistributionResult, 0, len(groups))
	for i := range groups {
		g := &groups[i]
		result, err := s.DistributeGroup(ctx, g.ID)
		if err != nil {
			s.logger.Error("language group distribution failed",
				zap.String("group_id", g.ID),
				zap.String("group", g.Name),
				zap.Error(err))
			result = failedGroupResult(g, err.Error())
		}
		results = append(results, result)
	}
	return results, nil
}

func failedGroupResult(group *models.LanguageGroup, message string) *dto.DistributionResult {
	return &dto.DistributionResult{
		Success:   false,
		Error:     message,
		GroupID:   group.ID,
		GroupName: group.Name,
	}
}

func (s *LanguageGroupService) distributeGroup(ctx context.Context, group *models.LanguageGroup) (*dto.DistributionResult, error) {
	if len(group.Courses) == 0 {
		return failedGroupResult(group, fmt.Sprintf("language group %s has no courses", group.Name)), nil
	}
	if len(group.Periods) == 0 {
		return failedGroupResult(group, fmt.Sprintf("language group %s has no periods", group.Name)), nil
	}

	students, err := s.students.ListByGrade(ctx, group.GradeLevel)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return failedGroupResult(group, fmt.Sprintf("no students at grade level %d", group.GradeLevel)), nil
	}

	s.rngMu.Lock()
	s.rng.Shuffle(len(students), func(i, j int) {
		students[i], students[j] = students[j], students[i]
	})
	s.rngMu.Unlock()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin language group tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// One section per (course, period), created on first use and reset.
	sectionFor := make(map[string]map[string]*models.Section, len(group.Courses))
	for _, course := range group.Courses {
		sectionFor[course.ID] = make(map[string]*models.Section, len(group.Periods))
		for _, period := range group.Periods {
			section, err := s.ensureSection(ctx, tx, course, period)
			if err != nil {
				return nil, err
			}
			if err := s.sections.ClearEnrollments(ctx, tx, section.ID); err != nil {
				return nil, err
			}
			sectionFor[course.ID][period.ID] = section
		}
	}

	cohorts := splitCohorts(students, len(group.Periods))

	result := &dto.DistributionResult{
		Success:       true,
		GroupID:       group.ID,
		GroupName:     group.Name,
		TotalStudents: len(students),
		NumSections:   len(group.Courses) * len(group.Periods),
	}

	for pi, period := range group.Periods {
		periodName := period.Name
		cohort := cohorts[pi]
		cohortIDs := make([]string, len(cohort))
		for i, st := range cohort {
			cohortIDs[i] = st.ID
		}

		for ci, course := range group.Courses {
			trimester := ci + 1
			section := sectionFor[course.ID][period.ID]
			if err := s.sections.SetTrimester(ctx, tx, section.ID, trimester); err != nil {
				return nil, err
			}
			for _, st := range cohort {
				if err := s.sections.Enroll(ctx, tx, section.ID, st.ID); err != nil {
					return nil, err
				}
			}
			if err := s.courses.AddRegistrations(ctx, tx, course.ID, cohortIDs); err != nil {
				return nil, err
			}

			entry := dto.SectionDistribution{
				SectionID:    section.ID,
				SectionName:  section.Name,
				Period:       &periodName,
				StudentCount: len(cohort),
			}
			entry.Trimester = &trimester
			for _, st := range cohort {
				entry.Students = append(entry.Students, dto.EnrolledStudent{
					ID:         st.ID,
					FullName:   st.FullName,
					GradeLevel: st.GradeLevel,
				})
			}
			result.Distribution = append(result.Distribution, entry)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit language group tx: %w", err)
	}

	s.logger.Info("language group distributed",
		zap.String("group_id", group.ID),
		zap.String("group", group.Name),
		zap.Int("students", len(students)),
		zap.Int("periods", len(group.Periods)),
		zap.Int("courses", len(group.Courses)))
	return result, nil
}

func (s *LanguageGroupService) ensureSection(ctx context.Context, tx sqlx.ExtContext, course models.Course, period models.Period) (*models.Section, error) {
	section, err := s.sections.FindByCourseAndPeriod(ctx, tx, course.ID, period.ID)
	if err == nil {
		return section, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	number, err := s.sections.NextSectionNumber(ctx, tx, course.ID)
	if err != nil {
		return nil, err
	}
	periodID := period.ID
	section = &models.Section{
		ID:            uuid.NewString(),
		CourseID:      course.ID,
		SectionNumber: number,
		Name:          fmt.Sprintf("%s-%d", course.Label(), number),
		PeriodID:      &periodID,
	}
	if err := s.sections.Create(ctx, tx, section); err != nil {
		return nil, err
	}
	return section, nil
}

// splitCohorts divides students across n cohorts: integer division plus the
// remainder spread one student each over the leading cohorts, so nobody is
// dropped when the count does not divide evenly.
func splitCohorts(students []models.Student, n int) [][]models.Student {
	cohorts := make([][]models.Student, n)
	base := len(students) / n
	remainder := len(students) % n
	cursor := 0
	for i := 0; i < n; i++ {
		size := base
		if i < remainder {
			size++
		}
		cohorts[i] = students[cursor : cursor+size]
		cursor += size
	}
	return cohorts
}
