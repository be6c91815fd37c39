package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-orchestrator/internal/dto"
	"github.com/noah-isme/tutoring-orchestrator/internal/eventsource"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
	"github.com/noah-isme/tutoring-orchestrator/pkg/response"
)

var errQueueUnavailable = appErrors.New("QUEUE_UNAVAILABLE", http.StatusServiceUnavailable, "event queue unavailable")

type eventPublisher interface {
	Publish(env eventsource.Envelope) error
	Routed(collection string, kind eventsource.Kind) bool
}

// EventHandler accepts change notifications and queues them for delivery.
type EventHandler struct {
	events   eventPublisher
	validate *validator.Validate
	logger   *zap.Logger
}

// NewEventHandler constructs the handler.
func NewEventHandler(events eventPublisher, validate *validator.Validate, logger *zap.Logger) *EventHandler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{events: events, validate: validate, logger: logger}
}

// Ingest godoc
// @Summary Queue a change notification
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.EventRequest true "Change notification"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Ingest(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid event payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload"))
		return
	}

	env := eventsource.Envelope{
		ID:         req.ID,
		Collection: req.Collection,
		Kind:       eventsource.Kind(req.Kind),
		DocumentID: req.DocumentID,
		Before:     req.Before,
		After:      req.After,
		OccurredAt: time.Now().UTC(),
	}
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if req.OccurredAt != nil {
		env.OccurredAt = req.OccurredAt.UTC()
	}

	if err := h.events.Publish(env); err != nil {
		h.logger.Error("failed to queue event", zap.String("event_id", env.ID), zap.Error(err))
		response.Error(c, appErrors.Wrap(err, errQueueUnavailable.Code, errQueueUnavailable.Status, errQueueUnavailable.Message))
		return
	}
	h.logger.Debug("event queued",
		zap.String("event_id", env.ID),
		zap.String("collection", env.Collection),
		zap.String("kind", string(env.Kind)),
		zap.String("actor", actorFromContext(c)),
	)
	response.Accepted(c, dto.EventAccepted{ID: env.ID, Routed: h.events.Routed(env.Collection, env.Kind)})
}
