package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/config"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

type fakeFeatures struct {
	mu       sync.Mutex
	features map[string]models.Features
	calls    map[string]int
	delay    time.Duration

	inFlight    int32
	maxInFlight int32
}

func newFakeFeatures(features ...models.Features) *fakeFeatures {
	f := &fakeFeatures{features: make(map[string]models.Features), calls: make(map[string]int)}
	for _, item := range features {
		f.features[item.EnrollmentID] = item
	}
	return f
}

func (f *fakeFeatures) Extract(ctx context.Context, enrollmentID string) (*models.Features, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.maxInFlight)
		if current <= peak || atomic.CompareAndSwapInt32(&f.maxInFlight, peak, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[enrollmentID]++
	features, ok := f.features[enrollmentID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	return &features, nil
}

func (f *fakeFeatures) ExtractFor(ctx context.Context, enrollment models.Enrollment) (*models.Features, error) {
	return f.Extract(ctx, enrollment.ID)
}

type fakeGuard struct {
	mu      sync.Mutex
	calls   []models.RiskAssessment
	outcome models.InterventionOutcome
}

func (g *fakeGuard) MaybeCreateIntervention(_ context.Context, _ string, assessment models.RiskAssessment) models.InterventionOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, assessment)
	return g.outcome
}

type fakeEnrollmentLister struct {
	byStudent map[string][]models.EnrollmentDetail
	byTutor   map[string][]models.EnrollmentDetail
	err       error
}

func (f *fakeEnrollmentLister) ListDetailByStudent(_ context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return f.byStudent[studentID], f.err
}

func (f *fakeEnrollmentLister) ListDetailByTutor(_ context.Context, tutorID string) ([]models.EnrollmentDetail, error) {
	return f.byTutor[tutorID], f.err
}

func features(id string, p1 *float64, sessions int) models.Features {
	f := inProgress(p1, nil, sessions)
	f.EnrollmentID = id
	return f
}

func newRiskServiceForTest(source *fakeFeatures, guard *fakeGuard, lister *fakeEnrollmentLister, concurrency int) *RiskService {
	return NewRiskService(RiskServiceParams{
		Features:    source,
		Estimator:   NewRiskEstimator(RiskEstimatorParams{Policy: config.DefaultRisk()}),
		Guard:       guard,
		Enrollments: lister,
		Metrics:     NewMetricsService(),
		Concurrency: concurrency,
	})
}

func TestRiskServiceEvaluate(t *testing.T) {
	guard := &fakeGuard{}
	svc := newRiskServiceForTest(newFakeFeatures(features("enr-1", floatPtr(4.0), 0)), guard, nil, 2)

	assessment, err := svc.Evaluate(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.InDelta(t, 25, assessment.Probability, 1e-9)
	assert.Equal(t, models.RiskTierLow, assessment.Tier)
	assert.Empty(t, guard.calls)

	_, err = svc.Evaluate(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRiskServiceEvaluateAndMaybeIntervene(t *testing.T) {
	guard := &fakeGuard{outcome: models.InterventionOutcome{Reason: models.InterventionPersistenceError}}
	svc := newRiskServiceForTest(newFakeFeatures(features("enr-1", floatPtr(5.0), 2)), guard, nil, 2)

	assessment, outcome, err := svc.EvaluateAndMaybeIntervene(context.Background(), "enr-1")
	require.NoError(t, err)
	require.NotNil(t, assessment)
	assert.Equal(t, models.RiskTierMedium, assessment.Tier)
	assert.Equal(t, models.InterventionPersistenceError, outcome.Reason)
	require.Len(t, guard.calls, 1)
	assert.Equal(t, *assessment, guard.calls[0])
}

func TestRiskServiceEvaluateAndMaybeInterveneMissingEnrollment(t *testing.T) {
	guard := &fakeGuard{}
	svc := newRiskServiceForTest(newFakeFeatures(), guard, nil, 2)

	_, _, err := svc.EvaluateAndMaybeIntervene(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, guard.calls)
}

func TestRiskServiceEvaluateManyDeduplicatesAndIsolatesFailures(t *testing.T) {
	source := newFakeFeatures(features("enr-1", floatPtr(4.0), 0), features("enr-2", floatPtr(8.0), 1))
	guard := &fakeGuard{outcome: models.InterventionOutcome{Reason: models.InterventionNotAtRisk}}
	svc := newRiskServiceForTest(source, guard, nil, 3)

	items := svc.EvaluateMany(context.Background(), []string{"enr-1", "enr-2", "enr-1", "missing", ""}, true)
	require.Len(t, items, 3)
	assert.Equal(t, "enr-1", items[0].EnrollmentID)
	assert.Equal(t, "enr-2", items[1].EnrollmentID)
	assert.Equal(t, "missing", items[2].EnrollmentID)

	require.NotNil(t, items[0].Assessment)
	require.NotNil(t, items[0].Intervention)
	assert.Equal(t, models.RiskTierHigh, items[1].Assessment.Tier)
	assert.Nil(t, items[2].Assessment)
	assert.Equal(t, "enrollment not found", items[2].Error)

	assert.Equal(t, 1, source.calls["enr-1"])
	assert.Len(t, guard.calls, 2)
}

func TestRiskServiceEvaluateManyBoundsConcurrency(t *testing.T) {
	var all []models.Features
	var ids []string
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		all = append(all, features(id, floatPtr(6), 1))
		ids = append(ids, id)
	}
	source := newFakeFeatures(all...)
	source.delay = 10 * time.Millisecond
	svc := newRiskServiceForTest(source, &fakeGuard{}, nil, 2)

	items := svc.EvaluateMany(context.Background(), ids, false)
	require.Len(t, items, len(ids))
	for _, item := range items {
		assert.NotNil(t, item.Assessment)
		assert.Nil(t, item.Intervention)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&source.maxInFlight), int32(2))
}

func TestRiskServiceEvaluateStudent(t *testing.T) {
	source := newFakeFeatures(features("enr-1", floatPtr(4.0), 0), features("enr-2", nil, 0))
	lister := &fakeEnrollmentLister{byStudent: map[string][]models.EnrollmentDetail{
		"stu-1": {
			{Enrollment: models.Enrollment{ID: "enr-1", StudentID: "stu-1"}},
			{Enrollment: models.Enrollment{ID: "enr-2", StudentID: "stu-1"}},
		},
	}}
	guard := &fakeGuard{}
	svc := newRiskServiceForTest(source, guard, lister, 2)

	overview, err := svc.EvaluateStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, overview.Items, 2)
	assert.Equal(t, models.RiskTierLow, overview.Items[0].Assessment.Tier)
	assert.Equal(t, models.RiskTierNotAvailable, overview.Items[1].Assessment.Tier)
	assert.Empty(t, guard.calls)

	_, err = svc.EvaluateStudent(context.Background(), "")
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
