package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	"github.com/noah-isme/tutoring-orchestrator/internal/repository"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

type scheduledSessionLister interface {
	ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.Session, error)
}

type sessionUpdateHandler interface {
	OnSessionUpdated(ctx context.Context, before, after models.Session) error
}

type sweepMetrics interface {
	RecordSweep(transitioned int, err error)
}

// SweepConfig tunes the daily auto-completion sweep.
type SweepConfig struct {
	Location       *time.Location
	EmitCompletion bool
}

// SweepService completes scheduled sessions whose date has passed.
type SweepService struct {
	sessions    scheduledSessionLister
	store       batchWriter
	completions sessionUpdateHandler
	metrics     sweepMetrics
	logger      *zap.Logger
	cfg         SweepConfig
	now         func() time.Time
}

// NewSweepService constructs the sweep. completions may be nil when EmitCompletion is off.
func NewSweepService(sessions scheduledSessionLister, store batchWriter, completions sessionUpdateHandler, metrics sweepMetrics, logger *zap.Logger, cfg SweepConfig) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SweepService{
		sessions:    sessions,
		store:       store,
		completions: completions,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Today returns the current calendar date in the sweep's timezone.
func (s *SweepService) Today() time.Time {
	return s.now().In(s.cfg.Location)
}

// Sweep transitions every scheduled session dated strictly before today's calendar date and returns
// how many were transitioned. Only the year, month and day of today are used. The transitions
// commit as one batch, so either all apply or the sweep fails with none applied.
func (s *SweepService) Sweep(ctx context.Context, today time.Time) (int, error) {
	count, err := s.sweep(ctx, today)
	if s.metrics != nil {
		s.metrics.RecordSweep(count, err)
	}
	return count, err
}

func (s *SweepService) sweep(ctx context.Context, today time.Time) (int, error) {
	y, m, d := today.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	log := s.logger.With(zap.String("today", cutoff.Format(models.SlotDateLayout)))

	sessions, err := s.sessions.ListByStatus(ctx, models.SessionStatusScheduled)
	if err != nil {
		return 0, appErrors.Store(err, "failed to scan scheduled sessions")
	}

	var due []models.Session
	for _, session := range sessions {
		date, err := models.ParseSlotDate(session.Slot.Date)
		if err != nil {
			log.Warn("skipping session with unparseable date", zap.String("session_id", session.ID),
				zap.String("date", session.Slot.Date), zap.Error(err))
			continue
		}
		if date.Before(cutoff) {
			due = append(due, session)
		}
	}
	if len(due) == 0 {
		log.Info("sweep found nothing to complete", zap.Int("scanned", len(sessions)))
		return 0, nil
	}

	completedAt := s.now().UTC()
	ops := make([]repository.BatchOp, len(due))
	for i, session := range due {
		ops[i] = repository.CompleteSession{ID: session.ID, AutoCompletedAt: completedAt}
	}
	affected, err := s.store.BatchWrite(ctx, ops...)
	if err != nil {
		log.Error("sweep batch failed", zap.Int("queued", len(due)), zap.Error(err))
		return 0, appErrors.Store(err, "failed to commit sweep batch")
	}

	transitioned := make([]models.Session, 0, len(due))
	for i, session := range due {
		if affected[i] > 0 {
			transitioned = append(transitioned, session)
		}
	}
	log.Info("sweep completed sessions", zap.Int("scanned", len(sessions)), zap.Int("transitioned", len(transitioned)))

	if s.cfg.EmitCompletion && s.completions != nil {
		for _, before := range transitioned {
			after := before
			after.Status = models.SessionStatusCompleted
			after.AutoCompletedAt = &completedAt
			if err := s.completions.OnSessionUpdated(ctx, before, after); err != nil {
				log.Error("completion side effects failed", zap.String("session_id", before.ID), zap.Error(err))
			}
		}
	}
	return len(transitioned), nil
}
