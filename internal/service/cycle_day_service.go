package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

type cycleDayReader interface {
	Get(ctx context.Context, date string) (*models.CycleDay, error)
}

// CycleDayService resolves calendar dates to school cycle days, caching hits.
type CycleDayService struct {
	repo   cycleDayReader
	cache  *CacheService
	logger *zap.Logger
}

// NewCycleDayService constructs the resolver. cache may be nil.
func NewCycleDayService(repo cycleDayReader, cache *CacheService, logger *zap.Logger) *CycleDayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CycleDayService{repo: repo, cache: cache, logger: logger}
}

func cycleDayCacheKey(date string) string {
	return "cycle_day:" + date
}

// Resolve returns the cycle day for date. ok is false when the calendar has no entry for it.
func (s *CycleDayService) Resolve(ctx context.Context, date string) (day string, ok bool, err error) {
	var cached models.CycleDay
	if hit, _ := s.cache.Get(ctx, cycleDayCacheKey(date), &cached); hit {
		return cached.CycleDay, true, nil
	}

	record, err := s.repo.Get(ctx, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, appErrors.Store(err, "failed to load cycle day")
	}
	_ = s.cache.Set(ctx, cycleDayCacheKey(date), record, 0)
	return record.CycleDay, true, nil
}
