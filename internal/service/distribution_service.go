package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/bellhaven-ms/scheduler-api/internal/dto"
	"github.com/bellhaven-ms/scheduler-api/internal/models"
)

const (
	statusCacheKeyPrefix = "distribution:status:"
	statusCachePattern   = "distribution:status:*"
	statusListCacheKey   = "distribution:status:list"
	unassignedReason     = "Period conflicts or capacity constraints"
	scopeCourse          = "course"
	scopeBatch           = "batch"
	outcomeSuccess       = "success"
	outcomeFailure       = "failure"
)

type distributionCourseRepo interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListOverview(ctx context.Context) ([]models.CourseOverview, error)
	ListDistributable(ctx context.Context) ([]models.CourseOverview, error)
	RegisteredStudents(ctx context.Context, courseID string) ([]models.Student, error)
	CountRegistered(ctx context.Context, courseID string) (int, error)
}

type distributionSectionRepo interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Section, error)
	ListDetailsByCourse(ctx context.Context, courseID string) ([]models.SectionDetail, error)
	Enroll(ctx context.Context, exec sqlx.ExtContext, sectionID, studentID string) error
	RemoveEnrollment(ctx context.Context, exec sqlx.ExtContext, sectionID, studentID string) error
	ClearEnrollmentsByCourse(ctx context.Context, exec sqlx.ExtContext, courseID string) (int, error)
	ClearAllEnrollments(ctx context.Context, exec sqlx.ExtContext) (int, error)
	PeriodOccupancy(ctx context.Context, exec sqlx.ExtContext) ([]models.PeriodOccupancy, error)
	HasPeriodConflict(ctx context.Context, exec sqlx.ExtContext, studentID, periodID, courseID string) (bool, error)
	EnrolledStudentsByCourse(ctx context.Context, courseID string) ([]models.EnrollmentRow, error)
	ListConflictingEnrollments(ctx context.Context, courseID string) ([]models.SectionConflict, error)
	IsDistributed(ctx context.Context, courseID string) (bool, error)
}

type periodLister interface {
	List(ctx context.Context) ([]models.Period, error)
}

type languageGroupDistributor interface {
	DistributeAllGroups(ctx context.Context) ([]*dto.DistributionResult, error)
	LanguageCourseIDs(ctx context.Context) ([]string, error)
}

type gradeLevelValidator interface {
	ValidateGradeLevel(ctx context.Context, gradeLevel int) (dto.GradeLevelValidation, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// DistributionConfig governs randomness of the placement heuristics.
type DistributionConfig struct {
	// Deterministic forces the seeded source below instead of a time seed,
	// making runs reproducible.
	Deterministic bool
	Seed          int64
}

// DistributionService assigns registered students to course sections. Single
// courses are placed most-constrained-first with greedy load balancing;
// batches clear everything, run language groups, then remaining courses in
// priority order.
type DistributionService struct {
	courses        distributionCourseRepo
	sections       distributionSectionRepo
	periods        periodLister
	languageGroups languageGroupDistributor
	validator      gradeLevelValidator
	tx             txProvider
	cache          *CacheService
	metrics        *MetricsService
	logger         *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewDistributionService wires the distribution engine.
func NewDistributionService(
	courses distributionCourseRepo,
	sections distributionSectionRepo,
	periods periodLister,
	languageGroups languageGroupDistributor,
	validator gradeLevelValidator,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg DistributionConfig,
) *DistributionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := time.Now().UnixNano()
	if cfg.Deterministic {
		seed = cfg.Seed
	}
	return &DistributionService{
		courses:        courses,
		sections:       sections,
		periods:        periods,
		languageGroups: languageGroups,
		validator:      validator,
		tx:             tx,
		cache:          cache,
		metrics:        metrics,
		logger:         logger,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

func (s *DistributionService) shuffleStudents(students []models.Student) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(students), func(i, j int) {
		students[i], students[j] = students[j], students[i]
	})
}

func (s *DistributionService) pick(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

func failedResult(course *models.Course, message string) *dto.DistributionResult {
	result := &dto.DistributionResult{Success: false, Error: message}
	if course != nil {
		result.CourseID = course.ID
		result.CourseName = course.Name
		if course.Code != nil {
			result.CourseCode = *course.Code
		}
	}
	return result
}

// DistributeCourse runs a full single-course distribution: clears the
// course's enrollments and reassigns every registered student. Precondition
// failures (no students, no sections, a section without a period) come back
// as an unsuccessful result, not a Go error.
func (s *DistributionService) DistributeCourse(ctx context.Context, courseID string) (*dto.DistributionResult, error) {
	start := time.Now()
	result, err := s.distributeCourse(ctx, courseID)

	outcome := outcomeSuccess
	if err != nil || !result.Success {
		outcome = outcomeFailure
	}
	if s.metrics != nil {
		s.metrics.ObserveDistribution(scopeCourse, outcome, time.Since(start))
	}
	if err == nil && result.Success {
		if s.metrics != nil {
			s.metrics.AddUnassigned(len(result.Unassigned))
			s.metrics.SetLastRunEnrollments(result.TotalStudents - len(result.Unassigned))
		}
		s.invalidateStatusCache(ctx)
	}
	return result, err
}

func (s *DistributionService) distributeCourse(ctx context.Context, courseID string) (*dto.DistributionResult, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failedResult(nil, "course not found"), nil
		}
		return nil, err
	}

	students, err := s.courses.RegisteredStudents(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return failedResult(course, fmt.Sprintf("no students registered for %s", course.Label())), nil
	}

	sections, err := s.sections.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return failedResult(course, fmt.Sprintf("no sections found for %s", course.Label())), nil
	}
	var withoutPeriod []string
	for _, sec := range sections {
		if sec.PeriodID == nil {
			withoutPeriod = append(withoutPeriod, sec.Name)
		}
	}
	if len(withoutPeriod) > 0 {
		return failedResult(course, fmt.Sprintf("sections missing a period assignment: %s", strings.Join(withoutPeriod, ", "))), nil
	}

	periodNames, err := s.periodNames(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin distribution tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := s.sections.ClearEnrollmentsByCourse(ctx, tx, courseID); err != nil {
		return nil, err
	}

	occupancy, err := s.sections.PeriodOccupancy(ctx, tx)
	if err != nil {
		return nil, err
	}
	tracker := newOccupancyTracker(occupancy)

	rosters, unassigned, err := s.placeStudents(ctx, tx, course, sections, students, tracker)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit distribution tx: %w", err)
	}

	result := &dto.DistributionResult{
		Success:       true,
		CourseID:      course.ID,
		CourseName:    course.Name,
		TotalStudents: len(students),
		NumSections:   len(sections),
		Unassigned:    unassigned,
	}
	if course.Code != nil {
		result.CourseCode = *course.Code
	}
	for _, sec := range sections {
		roster := rosters[sec.ID]
		entry := dto.SectionDistribution{
			SectionID:    sec.ID,
			SectionName:  sec.Name,
			Trimester:    sec.Trimester,
			StudentCount: len(roster),
			Students:     roster,
		}
		if sec.PeriodID != nil {
			if name, ok := periodNames[*sec.PeriodID]; ok {
				entry.Period = &name
			}
		}
		result.Distribution = append(result.Distribution, entry)
	}

	s.logger.Info("course distributed",
		zap.String("course_id", course.ID),
		zap.String("course", course.Label()),
		zap.Int("students", len(students)),
		zap.Int("unassigned", len(unassigned)))
	return result, nil
}

// placeStudents runs the most-constrained-first greedy placement inside the
// provided transaction. Capacity bookkeeping is per grade level: a grade's
// occupancy of a period may not exceed that grade's registered population for
// the course.
func (s *DistributionService) placeStudents(
	ctx context.Context,
	tx sqlx.ExtContext,
	course *models.Course,
	sections []models.Section,
	students []models.Student,
	tracker *occupancyTracker,
) (map[string][]dto.EnrolledStudent, []dto.UnassignedStudent, error) {
	gradeTotals := make(map[int]int)
	for _, st := range students {
		gradeTotals[st.GradeLevel]++
	}
	load := make(map[string]int, len(sections))
	periodGradeLoad := make(map[string]map[int]int)

	eligible := func(st models.Student) []int {
		var out []int
		for i, sec := range sections {
			if load[sec.ID] >= sec.Capacity(*course) {
				continue
			}
			periodID := *sec.PeriodID
			if tracker.hasConflict(st.ID, periodID, course.ID) {
				continue
			}
			if periodGradeLoad[periodID][st.GradeLevel] >= gradeTotals[st.GradeLevel] {
				continue
			}
			out = append(out, i)
		}
		return out
	}

	// Random tiebreak comes from shuffling before the stable sort.
	s.shuffleStudents(students)
	sort.SliceStable(students, func(i, j int) bool {
		return len(eligible(students[i])) < len(eligible(students[j]))
	})

	rosters := make(map[string][]dto.EnrolledStudent)
	var unassigned []dto.UnassignedStudent

	for _, st := range students {
		options := eligible(st)
		if len(options) == 0 {
			unassigned = append(unassigned, dto.UnassignedStudent{ID: st.ID, FullName: st.FullName, Reason: unassignedReason})
			continue
		}
		best := options[:0:0]
		bestLoad := -1
		for _, idx := range options {
			l := load[sections[idx].ID]
			switch {
			case bestLoad == -1 || l < bestLoad:
				bestLoad = l
				best = append(best[:0], idx)
			case l == bestLoad:
				best = append(best, idx)
			}
		}
		sec := sections[best[s.pick(len(best))]]
		periodID := *sec.PeriodID

		// Final check against live data before the write.
		conflict, err := s.sections.HasPeriodConflict(ctx, tx, st.ID, periodID, course.ID)
		if err != nil {
			return nil, nil, err
		}
		if conflict {
			unassigned = append(unassigned, dto.UnassignedStudent{ID: st.ID, FullName: st.FullName, Reason: unassignedReason})
			continue
		}
		if err := s.sections.Enroll(ctx, tx, sec.ID, st.ID); err != nil {
			return nil, nil, err
		}
		tracker.commit(st.ID, periodID, course.ID)
		load[sec.ID]++
		if periodGradeLoad[periodID] == nil {
			periodGradeLoad[periodID] = make(map[int]int)
		}
		periodGradeLoad[periodID][st.GradeLevel]++
		rosters[sec.ID] = append(rosters[sec.ID], dto.EnrolledStudent{ID: st.ID, FullName: st.FullName, GradeLevel: st.GradeLevel})
	}
	return rosters, unassigned, nil
}

// DistributeAll clears every enrollment, distributes language groups, then
// distributes remaining courses ordered by course-type priority, ascending
// section count and descending registration count. Each course or group runs
// in its own transaction, so later courses see earlier placements.
func (s *DistributionService) DistributeAll(ctx context.Context) (*dto.BatchDistributionResult, error) {
	start := time.Now()
	batch, err := s.distributeAll(ctx)

	outcome := outcomeSuccess
	if err != nil || !batch.Success {
		outcome = outcomeFailure
	}
	if s.metrics != nil {
		s.metrics.ObserveDistribution(scopeBatch, outcome, time.Since(start))
	}
	if err == nil {
		s.invalidateStatusCache(ctx)
	}
	return batch, err
}

func (s *DistributionService) distributeAll(ctx context.Context) (*dto.BatchDistributionResult, error) {
	batch := &dto.BatchDistributionResult{
		GradeLevelStats: make(map[int]dto.GradeLevelValidation),
	}

	if _, err := s.ClearAll(ctx); err != nil {
		return batch, err
	}

	groupResults, err := s.languageGroups.DistributeAllGroups(ctx)
	if err != nil {
		return batch, err
	}
	batch.LanguageGroups = groupResults

	languageCourseIDs, err := s.languageGroups.LanguageCourseIDs(ctx)
	if err != nil {
		return batch, err
	}
	skip := make(map[string]struct{}, len(languageCourseIDs))
	for _, id := range languageCourseIDs {
		skip[id] = struct{}{}
	}

	candidates, err := s.courses.ListDistributable(ctx)
	if err != nil {
		return batch, err
	}
	ordered := candidates[:0:0]
	for _, c := range candidates {
		if _, handled := skip[c.ID]; handled {
			continue
		}
		ordered = append(ordered, c)
	}
	// Harder-to-satisfy courses first: required before elective, fewer
	// sections before more, larger rosters before smaller.
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if ra, rb := a.CourseType.PriorityRank(), b.CourseType.PriorityRank(); ra != rb {
			return ra < rb
		}
		if a.SectionCount != b.SectionCount {
			return a.SectionCount < b.SectionCount
		}
		return a.RegisteredCount > b.RegisteredCount
	})

	grades := make(map[int]struct{})
	for _, c := range ordered {
		grades[c.GradeLevel] = struct{}{}

		result, err := s.distributeCourse(ctx, c.ID)
		if err != nil {
			s.logger.Error("course distribution failed",
				zap.String("course_id", c.ID),
				zap.String("course", c.Label()),
				zap.Error(err))
			batch.Courses = append(batch.Courses, &dto.DistributionResult{
				Success:    false,
				Error:      err.Error(),
				CourseID:   c.ID,
				CourseName: c.Name,
			})
			continue
		}
		batch.Courses = append(batch.Courses, result)
		if s.metrics != nil && result.Success {
			s.metrics.AddUnassigned(len(result.Unassigned))
		}

		removed, err := s.sweepConflicts(ctx, c.ID)
		if err != nil {
			return batch, err
		}
		batch.RemovedConflicts = append(batch.RemovedConflicts, removed...)
	}

	for grade := range grades {
		stats, err := s.validator.ValidateGradeLevel(ctx, grade)
		if err != nil {
			return batch, err
		}
		batch.GradeLevelStats[grade] = stats
	}

	batch.Success = true
	for _, r := range batch.LanguageGroups {
		if !r.Success {
			batch.Success = false
		}
	}
	for _, r := range batch.Courses {
		if !r.Success {
			batch.Success = false
		}
	}
	return batch, nil
}

// sweepConflicts removes enrollments in the course's sections whose student
// is double-booked with a different course in the same period. Runs after
// each course in a batch; earlier courses keep their seats.
func (s *DistributionService) sweepConflicts(ctx context.Context, courseID string) ([]dto.RemovedConflict, error) {
	conflicts, err := s.sections.ListConflictingEnrollments(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) == 0 {
		return nil, nil
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin conflict sweep tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	removed := make([]dto.RemovedConflict, 0, len(conflicts))
	for _, c := range conflicts {
		if err := s.sections.RemoveEnrollment(ctx, tx, c.SectionID, c.StudentID); err != nil {
			return nil, err
		}
		removed = append(removed, dto.RemovedConflict{
			StudentID:   c.StudentID,
			CourseID:    courseID,
			SectionID:   c.SectionID,
			SectionName: c.SectionName,
			PeriodID:    c.PeriodID,
		})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit conflict sweep tx: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AddRemovedConflicts(len(removed))
	}
	s.logger.Warn("removed double-booked enrollments",
		zap.String("course_id", courseID),
		zap.Int("count", len(removed)))
	return removed, nil
}

// ClearCourse removes every enrollment from the course's sections.
func (s *DistributionService) ClearCourse(ctx context.Context, courseID string) (*dto.ClearResult, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	cleared, err := s.sections.ClearEnrollmentsByCourse(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clear tx: %w", err)
	}

	s.invalidateStatusCache(ctx)
	s.logger.Info("course enrollments cleared", zap.String("course_id", courseID), zap.Int("sections", cleared))
	return &dto.ClearResult{Success: true, SectionsCleared: cleared}, nil
}

// ClearAll removes every section enrollment system-wide.
func (s *DistributionService) ClearAll(ctx context.Context) (*dto.ClearResult, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	cleared, err := s.sections.ClearAllEnrollments(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clear tx: %w", err)
	}

	s.invalidateStatusCache(ctx)
	s.logger.Info("all enrollments cleared", zap.Int("sections", cleared))
	return &dto.ClearResult{Success: true, SectionsCleared: cleared}, nil
}

// Status returns the read-only distribution snapshot of one course.
func (s *DistributionService) Status(ctx context.Context, courseID string) (*dto.DistributionStatus, error) {
	cacheKey := statusCacheKeyPrefix + courseID
	if s.cache != nil {
		var cached dto.DistributionStatus
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	registered, err := s.courses.CountRegistered(ctx, courseID)
	if err != nil {
		return nil, err
	}
	details, err := s.sections.ListDetailsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.sections.EnrolledStudentsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rosters := make(map[string][]dto.EnrolledStudent)
	for _, row := range rows {
		rosters[row.SectionID] = append(rosters[row.SectionID], dto.EnrolledStudent{
			ID:         row.StudentID,
			FullName:   row.FullName,
			GradeLevel: row.GradeLevel,
		})
	}

	status := &dto.DistributionStatus{
		CourseID:      course.ID,
		CourseName:    course.Name,
		TotalStudents: registered,
		NumSections:   len(details),
	}
	if course.Code != nil {
		status.CourseCode = *course.Code
	}
	for _, detail := range details {
		roster := rosters[detail.ID]
		if len(roster) > 0 {
			status.IsDistributed = true
		}
		status.Distribution = append(status.Distribution, dto.SectionDistribution{
			SectionID:    detail.ID,
			SectionName:  detail.Name,
			Period:       detail.PeriodName,
			Trimester:    detail.Trimester,
			StudentCount: len(roster),
			Students:     roster,
		})
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, status, 0)
	}
	return status, nil
}

// ListStatuses returns the distribution overview for every course.
func (s *DistributionService) ListStatuses(ctx context.Context) ([]dto.CourseStatusSummary, error) {
	if s.cache != nil {
		var cached []dto.CourseStatusSummary
		if hit, err := s.cache.Get(ctx, statusListCacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	overview, err := s.courses.ListOverview(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]dto.CourseStatusSummary, 0, len(overview))
	for _, c := range overview {
		distributed, err := s.sections.IsDistributed(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		summary := dto.CourseStatusSummary{
			CourseID:      c.ID,
			Name:          c.Name,
			GradeLevel:    c.GradeLevel,
			CourseType:    string(c.CourseType),
			TotalStudents: c.RegisteredCount,
			NumSections:   c.SectionCount,
			IsDistributed: distributed,
		}
		if c.Code != nil {
			summary.Code = *c.Code
		}
		summaries = append(summaries, summary)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, statusListCacheKey, summaries, 0)
	}
	return summaries, nil
}

func (s *DistributionService) periodNames(ctx context.Context) (map[string]string, error) {
	periods, err := s.periods.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(periods))
	for _, p := range periods {
		names[p.ID] = p.Name
	}
	return names, nil
}

func (s *DistributionService) invalidateStatusCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, statusCachePattern)
}
