package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bellhaven-ms/scheduler-api/internal/dto"
	"github.com/bellhaven-ms/scheduler-api/internal/models"
	"github.com/bellhaven-ms/scheduler-api/internal/service"
	appErrors "github.com/bellhaven-ms/scheduler-api/pkg/errors"
	"github.com/bellhaven-ms/scheduler-api/pkg/export"
	"github.com/bellhaven-ms/scheduler-api/pkg/response"
)

type distributor interface {
	DistributeCourse(ctx context.Context, courseID string) (*dto.DistributionResult, error)
	DistributeAll(ctx context.Context) (*dto.BatchDistributionResult, error)
	ClearCourse(ctx context.Context, courseID string) (*dto.ClearResult, error)
	ClearAll(ctx context.Context) (*dto.ClearResult, error)
	Status(ctx context.Context, courseID string) (*dto.DistributionStatus, error)
	ListStatuses(ctx context.Context) ([]dto.CourseStatusSummary, error)
}

type groupDistributor interface {
	List(ctx context.Context) ([]models.LanguageGroup, error)
	DistributeGroup(ctx context.Context, groupID string) (*dto.DistributionResult, error)
}

type distributionValidator interface {
	ValidateGradeLevel(ctx context.Context, gradeLevel int) (dto.GradeLevelValidation, error)
	ExclusivityViolations(ctx context.Context) ([]models.ExclusivityViolation, error)
}

// DistributionHandler exposes the section distribution endpoints.
type DistributionHandler struct {
	service    distributor
	groups     groupDistributor
	validation distributionValidator
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
}

// NewDistributionHandler constructs the handler.
func NewDistributionHandler(svc *service.DistributionService, groups *service.LanguageGroupService, validation *service.ValidationService) *DistributionHandler {
	return &DistributionHandler{
		service:    svc,
		groups:     groups,
		validation: validation,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
	}
}

func mapNotFound(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return err
}

// Distribute godoc
// @Summary Distribute registered students of one course across its sections
// @Tags Distribution
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /distribution/courses/{id}/distribute [post]
func (h *DistributionHandler) Distribute(c *gin.Context) {
	result, err := h.service.DistributeCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Success {
		response.JSON(c, http.StatusUnprocessableEntity, result, nil)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DistributeAll godoc
// @Summary Clear and redistribute every course, language groups first
// @Tags Distribution
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /distribution/distribute-all [post]
func (h *DistributionHandler) DistributeAll(c *gin.Context) {
	result, err := h.service.DistributeAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Clear godoc
// @Summary Remove all section enrollments of one course
// @Tags Distribution
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /distribution/courses/{id}/clear [post]
func (h *DistributionHandler) Clear(c *gin.Context) {
	result, err := h.service.ClearCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, mapNotFound(err, "course not found"))
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClearAll godoc
// @Summary Remove every section enrollment system-wide
// @Tags Distribution
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /distribution/clear-all [post]
func (h *DistributionHandler) ClearAll(c *gin.Context) {
	result, err := h.service.ClearAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Status godoc
// @Summary Distribution snapshot of one course
// @Tags Distribution
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /distribution/courses/{id}/status [get]
func (h *DistributionHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, mapNotFound(err, "course not found"))
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// ListStatuses godoc
// @Summary Distribution overview for every course
// @Tags Distribution
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /distribution/status [get]
func (h *DistributionHandler) ListStatuses(c *gin.Context) {
	summaries, err := h.service.ListStatuses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// ExportStatuses godoc
// @Summary Export the distribution overview as CSV or PDF
// @Tags Distribution
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /distribution/status/export [get]
func (h *DistributionHandler) ExportStatuses(c *gin.Context) {
	summaries, err := h.service.ListStatuses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	data := export.Dataset{
		Headers: []string{"Course", "Code", "Grade", "Type", "Registered", "Sections", "Distributed"},
	}
	for _, s := range summaries {
		data.Rows = append(data.Rows, map[string]string{
			"Course":      s.Name,
			"Code":        s.Code,
			"Grade":       strconv.Itoa(s.GradeLevel),
			"Type":        s.CourseType,
			"Registered":  strconv.Itoa(s.TotalStudents),
			"Sections":    strconv.Itoa(s.NumSections),
			"Distributed": strconv.FormatBool(s.IsDistributed),
		})
	}

	format := c.DefaultQuery("format", "csv")
	switch format {
	case "csv":
		payload, err := h.csv.Render(data)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="distribution-status.csv"`)
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.pdf.Render(data, "Distribution Status")
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="distribution-status.pdf"`)
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format)))
	}
}

// ExportCourseStatus godoc
// @Summary Export one course's section rosters as CSV or PDF
// @Tags Distribution
// @Produce octet-stream
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /distribution/courses/{id}/export [get]
func (h *DistributionHandler) ExportCourseStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, mapNotFound(err, "course not found"))
		return
	}

	data := export.Dataset{
		Headers: []string{"Section", "Period", "Student", "Grade"},
	}
	for _, section := range status.Distribution {
		period := ""
		if section.Period != nil {
			period = *section.Period
		}
		for _, student := range section.Students {
			data.Rows = append(data.Rows, map[string]string{
				"Section": section.SectionName,
				"Period":  period,
				"Student": student.FullName,
				"Grade":   strconv.Itoa(student.GradeLevel),
			})
		}
	}

	filename := fmt.Sprintf("distribution-%s", status.CourseID)
	format := c.DefaultQuery("format", "csv")
	switch format {
	case "csv":
		payload, err := h.csv.Render(data)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.pdf.Render(data, fmt.Sprintf("Distribution - %s", status.CourseName))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format)))
	}
}

// ListGroups godoc
// @Summary List configured language groups
// @Tags Distribution
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /distribution/language-groups [get]
func (h *DistributionHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// DistributeGroup godoc
// @Summary Run the trimester rotation for one language group
// @Tags Distribution
// @Produce json
// @Param id path string true "Language group ID"
// @Success 200 {object} response.Envelope
// @Router /distribution/language-groups/{id}/distribute [post]
func (h *DistributionHandler) DistributeGroup(c *gin.Context) {
	result, err := h.groups.DistributeGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Success {
		response.JSON(c, http.StatusUnprocessableEntity, result, nil)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ValidateGrade godoc
// @Summary Post-distribution invariant checks for one grade level
// @Tags Distribution
// @Produce json
// @Param grade path int true "Grade level"
// @Success 200 {object} response.Envelope
// @Router /distribution/validation/grade-levels/{grade} [get]
func (h *DistributionHandler) ValidateGrade(c *gin.Context) {
	grade, err := strconv.Atoi(c.Param("grade"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "grade level must be an integer"))
		return
	}
	validation, err := h.validation.ValidateGradeLevel(c.Request.Context(), grade)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, validation, nil)
}

// ExclusivityViolations godoc
// @Summary Students enrolled in multiple courses of an exclusive group
// @Tags Distribution
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /distribution/validation/exclusivity [get]
func (h *DistributionHandler) ExclusivityViolations(c *gin.Context) {
	violations, err := h.validation.ExclusivityViolations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violations, nil)
}
