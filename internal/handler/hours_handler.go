package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutoring-orchestrator/internal/dto"
	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	"github.com/noah-isme/tutoring-orchestrator/internal/service"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
	"github.com/noah-isme/tutoring-orchestrator/pkg/response"
)

type hourReporter interface {
	List(ctx context.Context, filter models.HourEntryFilter) ([]models.HourEntry, error)
	Render(ctx context.Context, filter models.HourEntryFilter, format string) (*service.HourReport, error)
}

// HoursHandler serves tutors' hour logs.
type HoursHandler struct {
	reports  hourReporter
	validate *validator.Validate
}

// NewHoursHandler constructs the handler.
func NewHoursHandler(reports hourReporter, validate *validator.Validate) *HoursHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &HoursHandler{reports: reports, validate: validate}
}

// List godoc
// @Summary List a tutor's hour entries
// @Tags Hours
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param uid path string true "Tutor UID"
// @Param from query string false "First slot date (YYYY-MM-DD)"
// @Param to query string false "Last slot date (YYYY-MM-DD)"
// @Param format query string false "json, csv or pdf"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutors/{uid}/hours [get]
func (h *HoursHandler) List(c *gin.Context) {
	var query dto.HoursQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	if err := h.validate.Struct(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}

	filter := models.HourEntryFilter{
		TutorUID: c.Param("uid"),
		From:     query.From,
		To:       query.To,
		Limit:    query.Limit,
	}

	if query.Format == "" || query.Format == service.ReportFormatJSON {
		entries, err := h.reports.List(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
		return
	}

	report, err := h.reports.Render(c.Request.Context(), filter, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Data)
}
