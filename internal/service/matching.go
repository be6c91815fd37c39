package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
)

// MatchTutors pairs a request with every tutor in pool approved for its class and free in at least
// one requested slot. Each tutor maps to the slots they cover, in request order. Slots missing a
// cycle day or block are skipped. The result is keyed by uid so pool order does not matter.
func MatchTutors(request models.TutoringRequest, pool []models.User) map[string][]models.Slot {
	result := make(map[string][]models.Slot)
	for _, tutor := range pool {
		if tutor.UID == "" || !tutor.HasClass(request.Class) {
			continue
		}
		var covered []models.Slot
		for _, slot := range request.Availability {
			key := slot.Key()
			if key == "" {
				continue
			}
			if tutor.FreeAt(key) {
				covered = append(covered, slot)
			}
		}
		if len(covered) > 0 {
			result[tutor.UID] = covered
		}
	}
	return result
}

// TutorMatch is a matched tutor and the requested slots they can cover.
type TutorMatch struct {
	Tutor models.User   `json:"tutor"`
	Slots []models.Slot `json:"slots"`
}

type tutorPool interface {
	ListTutorsByClass(ctx context.Context, class string) ([]models.User, error)
}

type cycleDayResolver interface {
	Resolve(ctx context.Context, date string) (string, bool, error)
}

// MatchingService loads the tutor pool for a request and runs MatchTutors over it.
type MatchingService struct {
	tutors    tutorPool
	cycleDays cycleDayResolver
	resolve   bool
	logger    *zap.Logger
}

// MatchingOption customises the matcher.
type MatchingOption func(*MatchingService)

// WithCycleDayResolution fills in missing cycle days from the calendar lookup before matching.
func WithCycleDayResolution(resolver cycleDayResolver) MatchingOption {
	return func(s *MatchingService) {
		if resolver != nil {
			s.cycleDays = resolver
			s.resolve = true
		}
	}
}

// NewMatchingService constructs the matcher.
func NewMatchingService(tutors tutorPool, logger *zap.Logger, opts ...MatchingOption) *MatchingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &MatchingService{tutors: tutors, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Preview returns the raw match for request without any recipient filtering.
func (s *MatchingService) Preview(ctx context.Context, request models.TutoringRequest) (map[string][]models.Slot, error) {
	request, pool, err := s.prepare(ctx, request)
	if err != nil {
		return nil, err
	}
	return MatchTutors(request, pool), nil
}

// Match returns the notifiable matches sorted by tutor uid. Tutors without an email are dropped.
func (s *MatchingService) Match(ctx context.Context, request models.TutoringRequest) ([]TutorMatch, error) {
	request, pool, err := s.prepare(ctx, request)
	if err != nil {
		return nil, err
	}
	matched := MatchTutors(request, pool)
	byUID := make(map[string]models.User, len(pool))
	for _, tutor := range pool {
		byUID[tutor.UID] = tutor
	}

	matches := make([]TutorMatch, 0, len(matched))
	for uid, slots := range matched {
		tutor := byUID[uid]
		if tutor.Email == "" {
			s.logger.Info("matched tutor has no email, skipping", zap.String("request_id", request.ID), zap.String("tutor_uid", uid))
			continue
		}
		matches = append(matches, TutorMatch{Tutor: tutor, Slots: slots})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Tutor.UID < matches[j].Tutor.UID })
	return matches, nil
}

func (s *MatchingService) prepare(ctx context.Context, request models.TutoringRequest) (models.TutoringRequest, []models.User, error) {
	if request.Class == "" {
		return request, nil, appErrors.Clone(appErrors.ErrValidation, "class is required")
	}
	if s.resolve {
		resolved, err := s.resolveCycleDays(ctx, request.Availability)
		if err != nil {
			return request, nil, err
		}
		request.Availability = resolved
	}
	pool, err := s.tutors.ListTutorsByClass(ctx, request.Class)
	if err != nil {
		return request, nil, appErrors.Store(err, "failed to load tutor pool")
	}
	return request, pool, nil
}

func (s *MatchingService) resolveCycleDays(ctx context.Context, slots []models.Slot) ([]models.Slot, error) {
	out := make([]models.Slot, len(slots))
	copy(out, slots)
	for i := range out {
		if out[i].CycleDay != "" || out[i].Date == "" {
			continue
		}
		day, ok, err := s.cycleDays.Resolve(ctx, out[i].Date)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i].CycleDay = day
		}
	}
	return out, nil
}
