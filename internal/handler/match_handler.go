package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutoring-orchestrator/internal/dto"
	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
	"github.com/noah-isme/tutoring-orchestrator/pkg/response"
)

type matchPreviewer interface {
	Preview(ctx context.Context, request models.TutoringRequest) (map[string][]models.Slot, error)
}

// MatchHandler exposes tutor matching without notifying anyone.
type MatchHandler struct {
	matcher  matchPreviewer
	validate *validator.Validate
}

// NewMatchHandler constructs the handler.
func NewMatchHandler(matcher matchPreviewer, validate *validator.Validate) *MatchHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &MatchHandler{matcher: matcher, validate: validate}
}

// Preview godoc
// @Summary Preview tutor matches for a request
// @Tags Matching
// @Accept json
// @Produce json
// @Param payload body dto.MatchPreviewRequest true "Requested class and slots"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /matches/preview [post]
func (h *MatchHandler) Preview(c *gin.Context) {
	var req dto.MatchPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid match payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid match payload"))
		return
	}

	matches, err := h.matcher.Preview(c.Request.Context(), models.TutoringRequest{
		Subject:      req.Subject,
		Class:        req.Class,
		Availability: req.Availability,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MatchPreviewResponse{Matches: matches, Tutors: len(matches)})
}
