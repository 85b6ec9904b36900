package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

type fakeBatchEvaluator struct {
	items     []dto.RiskEvaluationItem
	intervene bool
	received  []models.Enrollment
}

func (f *fakeBatchEvaluator) EvaluateEnrollments(_ context.Context, enrollments []models.Enrollment, intervene bool) []dto.RiskEvaluationItem {
	f.received = enrollments
	f.intervene = intervene
	return f.items
}

type fakeRatings struct {
	rating float64
	err    error
}

func (f fakeRatings) TutorAverageRating(context.Context, string) (float64, bool, error) {
	return f.rating, false, f.err
}

func tutorDetails() []models.EnrollmentDetail {
	return []models.EnrollmentDetail{
		{Enrollment: tutoredEnrollment("enr-1"), StudentName: "Ana Torres", SubjectName: "Calculus", TermName: "2026-A"},
		{Enrollment: tutoredEnrollment("enr-2"), StudentName: "Luis Vega", SubjectName: "Calculus", TermName: "2026-A"},
		{Enrollment: tutoredEnrollment("enr-3"), StudentName: "Eva Ruiz", SubjectName: "Physics", TermName: "2026-A"},
	}
}

func TestDashboardServiceTutor(t *testing.T) {
	low := models.RiskAssessment{EnrollmentID: "enr-1", Tier: models.RiskTierLow, Probability: 25}
	high := models.RiskAssessment{EnrollmentID: "enr-2", Tier: models.RiskTierHigh, Probability: 100}
	created := models.InterventionOutcome{Created: true, Reason: models.InterventionCreated}
	evaluator := &fakeBatchEvaluator{items: []dto.RiskEvaluationItem{
		{EnrollmentID: "enr-1", Assessment: &low, Intervention: &created},
		{EnrollmentID: "enr-2", Assessment: &high},
		{EnrollmentID: "enr-3", Error: "failed to load grades"},
	}}
	store := newMemoryStore()
	store.addSession(models.Session{ID: "ses-1", TutorID: "tut-1", State: models.SessionStateRequested})
	store.addSession(models.Session{ID: "ses-2", TutorID: "tut-1", State: models.SessionStateScheduled})

	svc := NewDashboardService(DashboardServiceParams{
		Enrollments: &fakeEnrollmentLister{byTutor: map[string][]models.EnrollmentDetail{"tut-1": tutorDetails()}},
		Risk:        evaluator,
		Sessions:    store,
		Ratings:     fakeRatings{rating: 4.6},
		Now:         func() time.Time { return guardNow },
	})

	dashboard, err := svc.Tutor(context.Background(), "tut-1", true)
	require.NoError(t, err)
	assert.True(t, evaluator.intervene)
	assert.Len(t, evaluator.received, 3)

	require.Len(t, dashboard.Rows, 3)
	assert.Equal(t, "Ana Torres", dashboard.Rows[0].Enrollment.StudentName)
	assert.True(t, dashboard.Rows[0].Intervention.Created)
	assert.Nil(t, dashboard.Rows[2].Assessment)
	assert.Equal(t, analysisUnavailable, dashboard.Rows[2].Error)
	assert.Equal(t, 1, dashboard.AtRiskCount)
	require.Len(t, dashboard.PendingRequests, 1)
	assert.Equal(t, "ses-1", dashboard.PendingRequests[0].ID)
	assert.Equal(t, 4.6, dashboard.AverageRating)
}

func TestDashboardServiceRatingFallback(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Enrollments: &fakeEnrollmentLister{},
		Risk:        &fakeBatchEvaluator{},
		Sessions:    newMemoryStore(),
		Ratings:     fakeRatings{err: errors.New("redis down")},
	})

	dashboard, err := svc.Tutor(context.Background(), "tut-9", false)
	require.NoError(t, err)
	assert.Empty(t, dashboard.Rows)
	assert.NotNil(t, dashboard.PendingRequests)
	assert.Equal(t, 5.0, dashboard.AverageRating)
}

func TestDashboardServiceErrors(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Enrollments: &fakeEnrollmentLister{err: errors.New("db down")},
		Risk:        &fakeBatchEvaluator{},
		Sessions:    newMemoryStore(),
		Ratings:     fakeRatings{},
	})

	_, err := svc.Tutor(context.Background(), "", false)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Tutor(context.Background(), "tut-1", false)
	require.ErrorIs(t, err, appErrors.ErrInternal)
}
