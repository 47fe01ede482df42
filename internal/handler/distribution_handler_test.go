package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellhaven-ms/scheduler-api/internal/dto"
	internalmiddleware "github.com/bellhaven-ms/scheduler-api/internal/middleware"
	"github.com/bellhaven-ms/scheduler-api/internal/models"
	"github.com/bellhaven-ms/scheduler-api/pkg/export"
	"github.com/bellhaven-ms/scheduler-api/pkg/response"
)

type distributorMock struct {
	result    *dto.DistributionResult
	batch     *dto.BatchDistributionResult
	clear     *dto.ClearResult
	status    *dto.DistributionStatus
	summaries []dto.CourseStatusSummary
	err       error

	courseID string
}

func (m *distributorMock) DistributeCourse(ctx context.Context, courseID string) (*dto.DistributionResult, error) {
	m.courseID = courseID
	return m.result, m.err
}

func (m *distributorMock) DistributeAll(ctx context.Context) (*dto.BatchDistributionResult, error) {
	return m.batch, m.err
}

func (m *distributorMock) ClearCourse(ctx context.Context, courseID string) (*dto.ClearResult, error) {
	m.courseID = courseID
	return m.clear, m.err
}

func (m *distributorMock) ClearAll(ctx context.Context) (*dto.ClearResult, error) {
	return m.clear, m.err
}

func (m *distributorMock) Status(ctx context.Context, courseID string) (*dto.DistributionStatus, error) {
	m.courseID = courseID
	return m.status, m.err
}

func (m *distributorMock) ListStatuses(ctx context.Context) ([]dto.CourseStatusSummary, error) {
	return m.summaries, m.err
}

type groupDistributorMock struct {
	groups []models.LanguageGroup
	result *dto.DistributionResult
	err    error
}

func (m *groupDistributorMock) List(ctx context.Context) ([]models.LanguageGroup, error) {
	return m.groups, m.err
}

func (m *groupDistributorMock) DistributeGroup(ctx context.Context, groupID string) (*dto.DistributionResult, error) {
	return m.result, m.err
}

type validatorMock struct {
	validation dto.GradeLevelValidation
	violations []models.ExclusivityViolation
	grade      int
	err        error
}

func (m *validatorMock) ValidateGradeLevel(ctx context.Context, gradeLevel int) (dto.GradeLevelValidation, error) {
	m.grade = gradeLevel
	return m.validation, m.err
}

func (m *validatorMock) ExclusivityViolations(ctx context.Context) ([]models.ExclusivityViolation, error) {
	return m.violations, m.err
}

func newDistributionTestHandler(svc *distributorMock, groups *groupDistributorMock, validation *validatorMock) *DistributionHandler {
	return &DistributionHandler{
		service:    svc,
		groups:     groups,
		validation: validation,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
	}
}

func performRequest(t *testing.T, method, target string, params gin.Params, fn gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = params
	fn(c)
	return w
}

func TestDistributeSuccess(t *testing.T) {
	svc := &distributorMock{result: &dto.DistributionResult{Success: true, CourseID: "c1", TotalStudents: 28}}
	handler := newDistributionTestHandler(svc, &groupDistributorMock{}, &validatorMock{})

	w := performRequest(t, http.MethodPost, "/distribution/courses/c1/distribute",
		gin.Params{{Key: "id", Value: "c1"}}, handler.Distribute)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", svc.courseID)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, true, data["success"])
	assert.Equal(t, float64(28), data["total_students"])
}

func TestDistributeFailureReturnsUnprocessable(t *testing.T) {
	svc := &distributorMock{result: &dto.DistributionResult{Success: false, Error: "course has no sections"}}
	handler := newDistributionTestHandler(svc, &groupDistributorMock{}, &validatorMock{})

	w := performRequest(t, http.MethodPost, "/distribution/courses/c1/distribute",
		gin.Params{{Key: "id", Value: "c1"}}, handler.Distribute)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "course has no sections")
}

func TestClearMapsMissingCourseToNotFound(t *testing.T) {
	svc := &distributorMock{err: sql.ErrNoRows}
	handler := newDistributionTestHandler(svc, &groupDistributorMock{}, &validatorMock{})

	w := performRequest(t, http.MethodPost, "/distribution/courses/missing/clear",
		gin.Params{{Key: "id", Value: "missing"}}, handler.Clear)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "course not found")
}

func TestStatusReturnsSnapshot(t *testing.T) {
	svc := &distributorMock{status: &dto.DistributionStatus{CourseID: "c1", CourseName: "Mathematics 7", IsDistributed: true}}
	handler := newDistributionTestHandler(svc, &groupDistributorMock{}, &validatorMock{})

	w := performRequest(t, http.MethodGet, "/distribution/courses/c1/status",
		gin.Params{{Key: "id", Value: "c1"}}, handler.Status)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Mathematics 7")
}

func TestExportStatusesCSV(t *testing.T) {
	svc := &distributorMock{summaries: []dto.CourseStatusSummary{
		{CourseID: "c1", Name: "Mathematics 7", GradeLevel: 7, CourseType: "CORE", TotalStudents: 48, NumSections: 2, IsDistributed: true},
	}}
	handler := newDistributionTestHandler(svc, &groupDistributorMock{}, &validatorMock{})

	w := performRequest(t, http.MethodGet, "/distribution/status/export?format=csv", nil, handler.ExportStatuses)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "distribution-status.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Course")
	assert.Contains(t, lines[1], "Mathematics 7")
}

func TestExportCourseStatusCSV(t *testing.T) {
	period := "Period 1"
	svc := &distributorMock{status: &dto.DistributionStatus{
		CourseID:   "c1",
		CourseName: "Mathematics 7",
		Distribution: []dto.SectionDistribution{
			{SectionName: "MATH7-1", Period: &period, Students: []dto.EnrolledStudent{
				{ID: "s1", FullName: "Ana Brook", GradeLevel: 7},
				{ID: "s2", FullName: "Ben Cole", GradeLevel: 7},
			}},
		},
	}}
	handler := newDistributionTestHandler(svc, &groupDistributorMock{}, &validatorMock{})

	w := performRequest(t, http.MethodGet, "/distribution/courses/c1/export?format=csv",
		gin.Params{{Key: "id", Value: "c1"}}, handler.ExportCourseStatus)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "distribution-c1.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Ana Brook")
	assert.Contains(t, lines[2], "Ben Cole")
}

func TestExportStatusesRejectsUnknownFormat(t *testing.T) {
	handler := newDistributionTestHandler(&distributorMock{}, &groupDistributorMock{}, &validatorMock{})

	w := performRequest(t, http.MethodGet, "/distribution/status/export?format=xlsx", nil, handler.ExportStatuses)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported export format")
}

func TestValidateGradeParsesParam(t *testing.T) {
	validation := &validatorMock{validation: dto.GradeLevelValidation{GradeLevel: 7, Valid: true}}
	handler := newDistributionTestHandler(&distributorMock{}, &groupDistributorMock{}, validation)

	w := performRequest(t, http.MethodGet, "/distribution/validation/grade-levels/7",
		gin.Params{{Key: "grade", Value: "7"}}, handler.ValidateGrade)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, validation.grade)
}

func TestValidateGradeRejectsNonInteger(t *testing.T) {
	handler := newDistributionTestHandler(&distributorMock{}, &groupDistributorMock{}, &validatorMock{})

	w := performRequest(t, http.MethodGet, "/distribution/validation/grade-levels/seven",
		gin.Params{{Key: "grade", Value: "seven"}}, handler.ValidateGrade)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "grade level must be an integer")
}

func TestDistributeGroupFailureReturnsUnprocessable(t *testing.T) {
	groups := &groupDistributorMock{result: &dto.DistributionResult{Success: false, Error: "language group lg1 has no courses"}}
	handler := newDistributionTestHandler(&distributorMock{}, groups, &validatorMock{})

	w := performRequest(t, http.MethodPost, "/distribution/language-groups/lg1/distribute",
		gin.Params{{Key: "id", Value: "lg1"}}, handler.DistributeGroup)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "has no courses")
}

func TestDistributionRoutesRequireAuthentication(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newDistributionTestHandler(&distributorMock{}, &groupDistributorMock{}, &validatorMock{})
	router := gin.New()
	router.POST("/distribution/distribute-all", internalmiddleware.RBAC(models.RoleAdmin), handler.DistributeAll)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodPost, "/distribution/distribute-all", nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
