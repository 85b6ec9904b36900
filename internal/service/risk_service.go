package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

type featureSource interface {
	Extract(ctx context.Context, enrollmentID string) (*models.Features, error)
	ExtractFor(ctx context.Context, enrollment models.Enrollment) (*models.Features, error)
}

type riskEstimator interface {
	Estimate(features models.Features) models.RiskAssessment
}

type interventionDecider interface {
	MaybeCreateIntervention(ctx context.Context, enrollmentID string, assessment models.RiskAssessment) models.InterventionOutcome
}

type enrollmentLister interface {
	ListDetailByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ListDetailByTutor(ctx context.Context, tutorID string) ([]models.EnrollmentDetail, error)
}

type riskRecorder interface {
	RecordAssessment(assessment models.RiskAssessment)
	ObserveBatch(duration time.Duration)
}

// RiskServiceParams wires the risk engine.
type RiskServiceParams struct {
	Features    featureSource
	Estimator   riskEstimator
	Guard       interventionDecider
	Enrollments enrollmentLister
	Metrics     riskRecorder
	Logger      *zap.Logger
	Concurrency int
}

// RiskService is the entry point of the risk engine.
type RiskService struct {
	features    featureSource
	estimator   riskEstimator
	guard       interventionDecider
	enrollments enrollmentLister
	metrics     riskRecorder
	logger      *zap.Logger
	concurrency int
}

// NewRiskService constructs the service.
func NewRiskService(params RiskServiceParams) *RiskService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &RiskService{
		features:    params.Features,
		estimator:   params.Estimator,
		guard:       params.Guard,
		enrollments: params.Enrollments,
		metrics:     params.Metrics,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Evaluate computes a fresh assessment for the enrollment.
func (s *RiskService) Evaluate(ctx context.Context, enrollmentID string) (*models.RiskAssessment, error) {
	features, err := s.features.Extract(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	assessment := s.assess(*features)
	return &assessment, nil
}

// EvaluateAndMaybeIntervene computes the assessment and, when risk is
// present, lets the guard decide whether to create a session. Intervention
// failures only show up in the outcome.
func (s *RiskService) EvaluateAndMaybeIntervene(ctx context.Context, enrollmentID string) (*models.RiskAssessment, models.InterventionOutcome, error) {
	assessment, err := s.Evaluate(ctx, enrollmentID)
	if err != nil {
		return nil, models.InterventionOutcome{}, err
	}
	outcome := s.guard.MaybeCreateIntervention(ctx, enrollmentID, *assessment)
	return assessment, outcome, nil
}

// EvaluateMany evaluates distinct enrollments in parallel. Repeated IDs are
// evaluated once and reported once, in first-seen order.
func (s *RiskService) EvaluateMany(ctx context.Context, enrollmentIDs []string, intervene bool) []dto.RiskEvaluationItem {
	ids := dedupe(enrollmentIDs)
	items := make([]dto.RiskEvaluationItem, len(ids))
	s.runBatch(ctx, len(ids), func(ctx context.Context, i int) {
		items[i] = s.evaluateItem(ctx, ids[i], func(ctx context.Context) (*models.Features, error) {
			return s.features.Extract(ctx, ids[i])
		}, intervene)
	})
	return items
}

// EvaluateEnrollments evaluates enrollments already loaded by the caller.
func (s *RiskService) EvaluateEnrollments(ctx context.Context, enrollments []models.Enrollment, intervene bool) []dto.RiskEvaluationItem {
	seen := make(map[string]struct{}, len(enrollments))
	unique := make([]models.Enrollment, 0, len(enrollments))
	for _, enrollment := range enrollments {
		if _, ok := seen[enrollment.ID]; ok {
			continue
		}
		seen[enrollment.ID] = struct{}{}
		unique = append(unique, enrollment)
	}

	items := make([]dto.RiskEvaluationItem, len(unique))
	s.runBatch(ctx, len(unique), func(ctx context.Context, i int) {
		enrollment := unique[i]
		items[i] = s.evaluateItem(ctx, enrollment.ID, func(ctx context.Context) (*models.Features, error) {
			return s.features.ExtractFor(ctx, enrollment)
		}, intervene)
	})
	return items
}

// EvaluateStudent evaluates every enrollment of a student.
func (s *RiskService) EvaluateStudent(ctx context.Context, studentID string) (*dto.StudentRiskOverview, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	details, err := s.enrollments.ListDetailByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	enrollments := make([]models.Enrollment, len(details))
	for i, detail := range details {
		enrollments[i] = detail.Enrollment
	}
	return &dto.StudentRiskOverview{
		StudentID: studentID,
		Items:     s.EvaluateEnrollments(ctx, enrollments, false),
	}, nil
}

func (s *RiskService) assess(features models.Features) models.RiskAssessment {
	assessment := s.estimator.Estimate(features)
	if s.metrics != nil {
		s.metrics.RecordAssessment(assessment)
	}
	return assessment
}

func (s *RiskService) evaluateItem(ctx context.Context, enrollmentID string, extract func(context.Context) (*models.Features, error), intervene bool) dto.RiskEvaluationItem {
	item := dto.RiskEvaluationItem{EnrollmentID: enrollmentID}
	features, err := extract(ctx)
	if err != nil {
		s.logger.Warn("risk evaluation failed", zap.String("enrollment_id", enrollmentID), zap.Error(err))
		item.Error = appErrors.FromError(err).Message
		return item
	}
	assessment := s.assess(*features)
	item.Assessment = &assessment
	if intervene {
		outcome := s.guard.MaybeCreateIntervention(ctx, enrollmentID, assessment)
		item.Intervention = &outcome
	}
	return item
}

// runBatch calls fn for every index with at most s.concurrency in flight.
// fn never fails the group; per-item errors live in the item.
func (s *RiskService) runBatch(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	if n == 0 {
		return
	}
	start := time.Now()
	var group errgroup.Group
	group.SetLimit(s.concurrency)
	for i := 0; i < n; i++ {
		i := i
		group.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = group.Wait()
	if s.metrics != nil {
		s.metrics.ObserveBatch(time.Since(start))
	}
	s.logger.Debug("risk batch evaluated", zap.Int("size", n), zap.Duration("duration", time.Since(start)))
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
