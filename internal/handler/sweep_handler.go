package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutoring-orchestrator/internal/dto"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
	"github.com/noah-isme/tutoring-orchestrator/pkg/response"
)

type sweeper interface {
	Today() time.Time
	Sweep(ctx context.Context, today time.Time) (int, error)
}

// SweepHandler runs the auto-completion sweep on demand.
type SweepHandler struct {
	sweeps   sweeper
	validate *validator.Validate
}

// NewSweepHandler constructs the handler.
func NewSweepHandler(sweeps sweeper, validate *validator.Validate) *SweepHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &SweepHandler{sweeps: sweeps, validate: validate}
}

// Run godoc
// @Summary Complete past scheduled sessions
// @Tags Sweeps
// @Accept json
// @Produce json
// @Param payload body dto.SweepRequest false "Sweep date"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /sweeps [post]
func (h *SweepHandler) Run(c *gin.Context) {
	var req dto.SweepRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid sweep payload"))
			return
		}
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "today must be YYYY-MM-DD"))
		return
	}

	today := h.sweeps.Today()
	if req.Today != "" {
		parsed, err := time.Parse("2006-01-02", req.Today)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "today must be YYYY-MM-DD"))
			return
		}
		today = parsed
	}

	count, err := h.sweeps.Sweep(c.Request.Context(), today)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SweepResponse{Today: today.Format("2006-01-02"), Transitioned: count})
}
