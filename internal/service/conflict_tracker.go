package service

import "github.com/bellhaven-ms/scheduler-api/internal/models"

// occupancyTracker holds the (student, period) occupancy picture for one
// distribution run. It is seeded from a store snapshot when the run starts and
// updated as placements commit, keeping per-candidate conflict checks O(1).
// The repository's HasPeriodConflict still runs once per placement as the
// final authority before an enrollment is written.
type occupancyTracker struct {
	occupied map[string]map[string]string // studentID -> periodID -> courseID
}

func newOccupancyTracker(rows []models.PeriodOccupancy) *occupancyTracker {
	t := &occupancyTracker{occupied: make(map[string]map[string]string, len(rows))}
	for _, row := range rows {
		t.commit(row.StudentID, row.PeriodID, row.CourseID)
	}
	return t
}

// hasConflict reports whether the student already occupies the period with a
// different course. A second section of the same course in the same period is
// not a conflict.
func (t *occupancyTracker) hasConflict(studentID, periodID, courseID string) bool {
	periods, ok := t.occupied[studentID]
	if !ok {
		return false
	}
	occupying, ok := periods[periodID]
	return ok && occupying != courseID
}

func (t *occupancyTracker) commit(studentID, periodID, courseID string) {
	periods, ok := t.occupied[studentID]
	if !ok {
		periods = make(map[string]string)
		t.occupied[studentID] = periods
	}
	periods[periodID] = courseID
}
