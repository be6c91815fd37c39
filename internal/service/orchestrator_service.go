package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	"github.com/noah-isme/tutoring-orchestrator/internal/repository"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

type orchestratorUsers interface {
	GetByID(ctx context.Context, uid string) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
}

type sessionReader interface {
	GetByID(ctx context.Context, id string) (*models.Session, error)
}

type classRequestReader interface {
	GetByID(ctx context.Context, id string) (*models.ClassRequest, error)
}

type hourEntryAppender interface {
	Append(ctx context.Context, entry *models.HourEntry) (bool, error)
}

type batchWriter interface {
	BatchWrite(ctx context.Context, ops ...repository.BatchOp) ([]int64, error)
}

type notificationSender interface {
	Dispatch(ctx context.Context, n models.Notification) []models.DeliveryOutcome
}

type tutorMatcher interface {
	Match(ctx context.Context, request models.TutoringRequest) ([]TutorMatch, error)
}

type confirmationScheduler interface {
	Schedule(name, documentID string, at time.Time) error
}

type hourMetrics interface {
	IncHourEntries()
}

// OrchestratorConfig carries organisation values the lifecycle rules depend on.
type OrchestratorConfig struct {
	HeadRole       string
	LeadRoleSuffix string
	ConfirmDelay   time.Duration
}

// OrchestratorDeps groups the collaborators of the lifecycle handlers.
type OrchestratorDeps struct {
	Users         orchestratorUsers
	Sessions      sessionReader
	ClassRequests classRequestReader
	HourEntries   hourEntryAppender
	Store         batchWriter
	Composer      *NotificationComposer
	Dispatcher    notificationSender
	Matcher       tutorMatcher
	// Confirmations defers session confirmation. Without it the confirmation is sent at once.
	Confirmations confirmationScheduler
}

// TaskConfirmSession is the deferred task that sends a session confirmation.
const TaskConfirmSession = "confirm_session"

// OrchestratorService implements the Session and ClassRequest state machines and their side effects.
// Every handler tolerates redelivery of the same event.
type OrchestratorService struct {
	deps      OrchestratorDeps
	cfg       OrchestratorConfig
	validator *validator.Validate
	metrics   hourMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// OrchestratorOption customises the orchestrator.
type OrchestratorOption func(*OrchestratorService)

// WithOrchestratorClock overrides the time source used for decision timestamps.
func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(s *OrchestratorService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOrchestratorMetrics records hour entry creation.
func WithOrchestratorMetrics(metrics hourMetrics) OrchestratorOption {
	return func(s *OrchestratorService) {
		s.metrics = metrics
	}
}

// NewOrchestratorService constructs the orchestrator.
func NewOrchestratorService(deps OrchestratorDeps, cfg OrchestratorConfig, validate *validator.Validate, logger *zap.Logger, opts ...OrchestratorOption) *OrchestratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.HeadRole == "" {
		cfg.HeadRole = "Head"
	}
	if cfg.LeadRoleSuffix == "" {
		cfg.LeadRoleSuffix = " Lead"
	}
	svc := &OrchestratorService{
		deps:      deps,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// OnSessionCreated schedules the confirmation of a newly booked session once the confirmation
// delay has passed.
func (s *OrchestratorService) OnSessionCreated(ctx context.Context, session models.Session) error {
	log := s.logger.With(zap.String("session_id", session.ID))
	if session.Status != models.SessionStatusScheduled {
		log.Debug("session not scheduled at creation, no confirmation", zap.String("status", string(session.Status)))
		return nil
	}
	if s.cfg.ConfirmDelay <= 0 || s.deps.Confirmations == nil {
		return s.ConfirmSession(ctx, session.ID)
	}

	at := s.now().Add(s.cfg.ConfirmDelay)
	if err := s.deps.Confirmations.Schedule(TaskConfirmSession, session.ID, at); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule session confirmation")
	}
	log.Info("session confirmation scheduled", zap.Time("not_before", at))
	return nil
}

// ConfirmSession sends the confirmation for a session that is still scheduled.
func (s *OrchestratorService) ConfirmSession(ctx context.Context, sessionID string) error {
	log := s.logger.With(zap.String("session_id", sessionID))
	current, err := s.deps.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Info("session disappeared before confirmation")
			return nil
		}
		return appErrors.Store(err, "failed to reload session")
	}
	if current.Status != models.SessionStatusScheduled {
		log.Info("session no longer scheduled, skipping confirmation", zap.String("status", string(current.Status)))
		return nil
	}

	notification, err := s.deps.Composer.SessionConfirmed(*current)
	if err != nil {
		return err
	}
	s.dispatch(ctx, notification)
	return nil
}

// OnSessionUpdated reacts to a status edge of a session.
func (s *OrchestratorService) OnSessionUpdated(ctx context.Context, before, after models.Session) error {
	log := s.logger.With(zap.String("session_id", after.ID))
	edge, err := models.SessionTransitions.Edge(before.Status, after.Status)
	if err != nil {
		log.Warn("rejected session transition", zap.Error(err))
		return err
	}
	if !edge {
		return nil
	}

	switch after.Status {
	case models.SessionStatusCompleted:
		return s.recordCompletion(ctx, after)
	case models.SessionStatusCancelled:
		notification, err := s.deps.Composer.SessionCancelled(after)
		if err != nil {
			return err
		}
		s.dispatch(ctx, notification)
	}
	return nil
}

func (s *OrchestratorService) recordCompletion(ctx context.Context, session models.Session) error {
	log := s.logger.With(zap.String("session_id", session.ID))
	if missing := session.MissingCompletionFields(); len(missing) > 0 {
		log.Error("completed session lacks data for an hour entry", zap.Strings("missing", missing))
		return nil
	}

	sessionID := session.ID
	entry := &models.HourEntry{
		Type:        models.HourEntryCompletedSession,
		SessionID:   &sessionID,
		TutorUID:    session.TutorUID,
		TutorName:   session.TutorName,
		Slot:        session.Slot,
		Subject:     session.Subject,
		Class:       session.Class,
		StudentName: session.Name,
		CreatedAt:   s.now().UTC(),
	}
	created, err := s.deps.HourEntries.Append(ctx, entry)
	if err != nil {
		return appErrors.Store(err, "failed to append hour entry")
	}
	if !created {
		log.Info("hour entry already recorded for session")
		return nil
	}
	if s.metrics != nil {
		s.metrics.IncHourEntries()
	}
	log.Info("hour entry recorded", zap.String("hour_entry_id", entry.ID), zap.String("tutor_uid", entry.TutorUID))
	return nil
}

// OnClassRequestCreated auto-approves requests from the head or the subject lead and otherwise
// routes the request to reviewers. Approval and grant commit in one batch.
func (s *OrchestratorService) OnClassRequestCreated(ctx context.Context, request models.ClassRequest) error {
	log := s.logger.With(zap.String("class_request_id", request.ID), zap.String("uid", request.UID))

	current, err := s.deps.ClassRequests.GetByID(ctx, request.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Info("class request no longer exists")
			return nil
		}
		return appErrors.Store(err, "failed to reload class request")
	}
	if current.Status == models.ClassRequestStatusRejected {
		log.Info("class request already rejected")
		return nil
	}

	role, err := s.requesterRole(ctx, current.UID)
	if err != nil {
		return err
	}

	if !s.autoApproves(role, current.Subject) {
		if !current.IsPending() {
			log.Info("class request already decided", zap.String("status", string(current.Status)))
			return nil
		}
		leads, err := s.deps.Users.ListByRole(ctx, current.Subject+s.cfg.LeadRoleSuffix)
		if err != nil {
			return appErrors.Store(err, "failed to load subject leads")
		}
		notification, err := s.deps.Composer.ClassPendingReview(*current, leads)
		if err != nil {
			return err
		}
		s.dispatch(ctx, notification)
		return nil
	}

	decidedAt := s.now().UTC()
	uid, decidedRole := current.UID, role
	affected, err := s.deps.Store.BatchWrite(ctx,
		repository.ApproveClassRequest{
			ID:            current.ID,
			DecidedAt:     decidedAt,
			DecidedByUID:  uid,
			DecidedByRole: decidedRole,
			AutoApproved:  true,
		},
		repository.GrantClass{UID: current.UID, Class: current.Class, RequestID: current.ID},
	)
	if err != nil {
		return appErrors.Store(err, "failed to auto-approve class request")
	}

	if affected[0] == 0 && current.IsPending() {
		// Someone decided between the read and the write.
		latest, err := s.deps.ClassRequests.GetByID(ctx, current.ID)
		if err != nil {
			return appErrors.Store(err, "failed to reload class request")
		}
		if !latest.IsApproved() {
			log.Info("class request decided concurrently, skipping approval notice", zap.String("status", string(latest.Status)))
			return nil
		}
		current = latest
	} else if affected[0] > 0 {
		current.Status = models.ClassRequestStatusApproved
		current.AutoApproved = true
		current.DecidedAt = &decidedAt
		current.DecidedByUID = &uid
		current.DecidedByRole = &decidedRole
		log.Info("class request auto-approved", zap.String("role", role), zap.String("class", current.Class))
	}

	notification, err := s.deps.Composer.ClassApproved(*current)
	if err != nil {
		return err
	}
	s.dispatch(ctx, notification)
	return nil
}

// OnClassRequestUpdated reacts to a review decision.
func (s *OrchestratorService) OnClassRequestUpdated(ctx context.Context, before, after models.ClassRequest) error {
	log := s.logger.With(zap.String("class_request_id", after.ID), zap.String("uid", after.UID))
	edge, err := models.ClassRequestTransitions.Edge(before.Status, after.Status)
	if err != nil {
		log.Warn("rejected class request transition", zap.Error(err))
		return err
	}
	if !edge {
		return nil
	}

	switch after.Status {
	case models.ClassRequestStatusApproved:
		if _, err := s.deps.Store.BatchWrite(ctx, repository.GrantClass{UID: after.UID, Class: after.Class, RequestID: after.ID}); err != nil {
			return appErrors.Store(err, "failed to grant class")
		}
		if after.AutoApproved {
			log.Debug("auto-approval already notified")
			return nil
		}
		notification, err := s.deps.Composer.ClassApproved(after)
		if err != nil {
			return err
		}
		s.dispatch(ctx, notification)
	case models.ClassRequestStatusRejected:
		notification, err := s.deps.Composer.ClassRejected(after)
		if err != nil {
			return err
		}
		s.dispatch(ctx, notification)
	}
	return nil
}

// OnTutoringRequestCreated notifies every tutor who can cover part of the request.
func (s *OrchestratorService) OnTutoringRequestCreated(ctx context.Context, request models.TutoringRequest) error {
	log := s.logger.With(zap.String("tutoring_request_id", request.ID))
	if err := s.validator.Var(request.Class, "required"); err != nil {
		log.Warn("tutoring request has no class", zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "class is required")
	}
	request.Availability = usableSlots(log, request.Availability)

	matches, err := s.deps.Matcher.Match(ctx, request)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		log.Info("no tutors available for request", zap.String("class", request.Class))
		return nil
	}

	notification, err := s.deps.Composer.TutoringMatch(request, matches)
	if err != nil {
		return err
	}
	s.dispatch(ctx, notification)
	return nil
}

// usableSlots drops slots whose date cannot be read. Slots without a date are kept.
func usableSlots(log *zap.Logger, slots []models.Slot) []models.Slot {
	out := make([]models.Slot, 0, len(slots))
	for i, slot := range slots {
		if slot.Date != "" {
			if _, err := models.ParseSlotDate(slot.Date); err != nil {
				log.Warn("skipping slot with unreadable date", zap.Int("index", i), zap.String("date", slot.Date))
				continue
			}
		}
		out = append(out, slot)
	}
	return out
}

func (s *OrchestratorService) requesterRole(ctx context.Context, uid string) (string, error) {
	user, err := s.deps.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("class request owner not found", zap.String("uid", uid))
			return "", nil
		}
		return "", appErrors.Store(err, "failed to load requester")
	}
	return user.Role, nil
}

func (s *OrchestratorService) autoApproves(role, subject string) bool {
	if role == "" {
		return false
	}
	if role == s.cfg.HeadRole {
		return true
	}
	return subject != "" && role == subject+s.cfg.LeadRoleSuffix
}

func (s *OrchestratorService) dispatch(ctx context.Context, n models.Notification) {
	if len(n.Messages) == 0 {
		s.logger.Info("notification has no recipients", zap.String("template", n.Template), zap.String("key", n.Key))
		return
	}
	outcomes := s.deps.Dispatcher.Dispatch(ctx, n)
	failed := 0
	for _, o := range outcomes {
		if o.Status == models.DeliveryFailed {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn("notification partially failed", zap.String("template", n.Template), zap.String("key", n.Key),
			zap.Int("failed", failed), zap.Int("total", len(outcomes)))
	}
}
