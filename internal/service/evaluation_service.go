package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/repository"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

type sessionFinder interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type evaluationRepository interface {
	ExistsForSession(ctx context.Context, sessionID string) (bool, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
	AverageByTutor(ctx context.Context, tutorID string) (*float64, error)
}

type ratingCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// EvaluationServiceParams wires the evaluation service.
type EvaluationServiceParams struct {
	Sessions      sessionFinder
	Evaluations   evaluationRepository
	Cache         ratingCache
	CacheTTL      time.Duration
	DefaultRating float64
	Validator     *validator.Validate
	Logger        *zap.Logger
	Now           func() time.Time
}

// EvaluationService records session ratings and serves tutor averages.
type EvaluationService struct {
	sessions      sessionFinder
	evaluations   evaluationRepository
	cache         ratingCache
	cacheTTL      time.Duration
	defaultRating float64
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewEvaluationService constructs the service.
func NewEvaluationService(params EvaluationServiceParams) *EvaluationService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	rating := params.DefaultRating
	if rating <= 0 {
		rating = 5.0
	}
	return &EvaluationService{
		sessions:      params.Sessions,
		evaluations:   params.Evaluations,
		cache:         params.Cache,
		cacheTTL:      params.CacheTTL,
		defaultRating: rating,
		validator:     validate,
		logger:        logger,
		now:           now,
	}
}

// Submit rates a completed or missed session. A session is rated once.
func (s *EvaluationService) Submit(ctx context.Context, sessionID string, req dto.SubmitEvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "stars must be between 1 and 5")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(err, "session not found", "failed to load session")
	}
	if session.State != models.SessionStateCompleted && session.State != models.SessionStateNoShow {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only completed or missed sessions can be evaluated")
	}

	exists, err := s.evaluations.ExistsForSession(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check evaluation")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session already evaluated")
	}

	evaluation := &models.Evaluation{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Stars:     req.Stars,
		Comment:   req.Comment,
		CreatedAt: models.NaiveTime(s.now()),
	}
	if err := s.evaluations.Create(ctx, evaluation); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvaluation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "session already evaluated")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save evaluation")
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, ratingCacheKey(session.TutorID))
	}
	return evaluation, nil
}

// TutorAverageRating returns the tutor's mean rating rounded to one decimal,
// the configured default when nobody rated yet, and whether it came from cache.
func (s *EvaluationService) TutorAverageRating(ctx context.Context, tutorID string) (float64, bool, error) {
	key := ratingCacheKey(tutorID)
	if s.cache != nil {
		var cached float64
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	avg, err := s.evaluations.AverageByTutor(ctx, tutorID)
	if err != nil {
		return 0, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor rating")
	}
	rating := s.defaultRating
	if avg != nil {
		rating = math.Round(*avg*10) / 10
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, rating, s.cacheTTL)
	}
	return rating, false, nil
}

func ratingCacheKey(tutorID string) string {
	return "tutoring:rating:" + tutorID
}
