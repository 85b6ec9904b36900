package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

const analysisUnavailable = "analysis not available"

type tutorEnrollmentLister interface {
	ListDetailByTutor(ctx context.Context, tutorID string) ([]models.EnrollmentDetail, error)
}

type batchRiskEvaluator interface {
	EvaluateEnrollments(ctx context.Context, enrollments []models.Enrollment, intervene bool) []dto.RiskEvaluationItem
}

type sessionLister interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, error)
}

type tutorRatingSource interface {
	TutorAverageRating(ctx context.Context, tutorID string) (float64, bool, error)
}

// DashboardServiceParams wires the dashboard service.
type DashboardServiceParams struct {
	Enrollments   tutorEnrollmentLister
	Risk          batchRiskEvaluator
	Sessions      sessionLister
	Ratings       tutorRatingSource
	DefaultRating float64
	Logger        *zap.Logger
	Now           func() time.Time
}

// DashboardService assembles the tutor dashboard.
type DashboardService struct {
	enrollments   tutorEnrollmentLister
	risk          batchRiskEvaluator
	sessions      sessionLister
	ratings       tutorRatingSource
	defaultRating float64
	logger        *zap.Logger
	now           func() time.Time
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
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
	return &DashboardService{
		enrollments:   params.Enrollments,
		risk:          params.Risk,
		sessions:      params.Sessions,
		ratings:       params.Ratings,
		defaultRating: rating,
		logger:        logger,
		now:           now,
	}
}

// Tutor returns every enrollment of the tutor with a fresh assessment. When
// intervene is set the guard runs for each at-risk row. A row that cannot be
// evaluated is flagged without failing the dashboard.
func (s *DashboardService) Tutor(ctx context.Context, tutorID string, intervene bool) (*dto.TutorDashboard, error) {
	if tutorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tutorId is required")
	}

	details, err := s.enrollments.ListDetailByTutor(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutor enrollments")
	}

	enrollments := make([]models.Enrollment, len(details))
	for i, detail := range details {
		enrollments[i] = detail.Enrollment
	}
	items := s.risk.EvaluateEnrollments(ctx, enrollments, intervene)
	byID := make(map[string]dto.RiskEvaluationItem, len(items))
	for _, item := range items {
		byID[item.EnrollmentID] = item
	}

	dashboard := &dto.TutorDashboard{
		TutorID:         tutorID,
		Rows:            make([]dto.TutorDashboardRow, 0, len(details)),
		PendingRequests: []models.SessionDetail{},
		GeneratedAt:     s.now().UTC(),
	}
	for _, detail := range details {
		row := dto.TutorDashboardRow{Enrollment: detail}
		item, ok := byID[detail.ID]
		if !ok || item.Assessment == nil {
			row.Error = analysisUnavailable
			dashboard.Rows = append(dashboard.Rows, row)
			continue
		}
		row.Assessment = item.Assessment
		row.Intervention = item.Intervention
		if item.Assessment.Tier.AtRisk() {
			dashboard.AtRiskCount++
		}
		dashboard.Rows = append(dashboard.Rows, row)
	}

	pending, err := s.sessions.List(ctx, models.SessionFilter{
		TutorID: tutorID,
		States:  []models.SessionState{models.SessionStateRequested},
	})
	if err != nil {
		s.logger.Warn("pending sessions unavailable", zap.String("tutor_id", tutorID), zap.Error(err))
	} else if pending != nil {
		dashboard.PendingRequests = pending
	}

	dashboard.AverageRating = s.defaultRating
	if rating, _, err := s.ratings.TutorAverageRating(ctx, tutorID); err != nil {
		s.logger.Warn("tutor rating unavailable", zap.String("tutor_id", tutorID), zap.Error(err))
	} else {
		dashboard.AverageRating = rating
	}

	return dashboard, nil
}
