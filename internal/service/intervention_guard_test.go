package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/config"
)

var guardNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.FixedZone("ECT", -5*3600))

func tutoredEnrollment(id string) models.Enrollment {
	return models.Enrollment{ID: id, StudentID: "stu-1", TutorID: strPtr("tut-1"), SubjectID: "sub-1", TermID: "term-1", Status: models.AcademicStatusInProgress}
}

func newGuardForTest(store *memoryStore, metrics *MetricsService) *InterventionGuard {
	return NewInterventionGuard(InterventionGuardParams{
		Locker:   store,
		Sessions: store,
		Config:   config.InterventionConfig{DurationMinutes: 60, Modality: "virtual", TopicPrefix: "risk-intervention"},
		Metrics:  metrics,
		Now:      func() time.Time { return guardNow },
	})
}

func atRisk(tier models.RiskTier) models.RiskAssessment {
	return models.RiskAssessment{EnrollmentID: "enr-1", Tier: tier, Probability: 25}
}

func TestInterventionGuardCreatesSession(t *testing.T) {
	store := newMemoryStore(tutoredEnrollment("enr-1"))
	metrics := NewMetricsService()
	guard := newGuardForTest(store, metrics)

	outcome := guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(models.RiskTierLow))
	require.True(t, outcome.Created)
	assert.Equal(t, models.InterventionCreated, outcome.Reason)
	require.NotNil(t, outcome.Session)

	session := outcome.Session
	assert.Equal(t, "tut-1", session.TutorID)
	assert.Equal(t, "enr-1", *session.EnrollmentID)
	assert.Equal(t, "risk-intervention:LOW_SUCCESS_PROB", *session.Topic)
	assert.Equal(t, 60, session.DurationMinutes)
	assert.Equal(t, models.ModalityVirtual, session.Modality)
	assert.Equal(t, models.SessionStateRequested, session.State)
	assert.Equal(t, 9, session.ScheduledAt.Hour())
	assert.Equal(t, time.UTC, session.ScheduledAt.Location())

	assert.Len(t, store.sessionsFor("enr-1"), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.interventions.WithLabelValues(string(models.InterventionCreated))))
}

func TestInterventionGuardSkipsWhenNotAtRisk(t *testing.T) {
	store := newMemoryStore(tutoredEnrollment("enr-1"))
	guard := newGuardForTest(store, nil)

	for _, tier := range []models.RiskTier{models.RiskTierHigh, models.RiskTierNotAvailable, models.RiskTierFinalSuccess, models.RiskTierFinalFailure} {
		outcome := guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(tier))
		assert.False(t, outcome.Created)
		assert.Equal(t, models.InterventionNotAtRisk, outcome.Reason, string(tier))
	}
	assert.Empty(t, store.sessionsFor("enr-1"))
	assert.Zero(t, store.lockCalls)
}

func TestInterventionGuardNoTutor(t *testing.T) {
	enrollment := tutoredEnrollment("enr-1")
	enrollment.TutorID = nil
	store := newMemoryStore(enrollment)
	guard := newGuardForTest(store, nil)

	outcome := guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(models.RiskTierLow))
	assert.False(t, outcome.Created)
	assert.Equal(t, models.InterventionNoTutor, outcome.Reason)
	assert.Empty(t, store.sessionsFor("enr-1"))
}

func TestInterventionGuardDuplicateOpenRegardlessOfTier(t *testing.T) {
	store := newMemoryStore(tutoredEnrollment("enr-1"))
	store.addSession(models.Session{ID: "ses-open", EnrollmentID: strPtr("enr-1"), TutorID: "tut-1", State: models.SessionStateScheduled, Topic: strPtr("algebra review")})
	guard := newGuardForTest(store, nil)

	for _, tier := range []models.RiskTier{models.RiskTierLow, models.RiskTierMedium, models.RiskTierHigh} {
		outcome := guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(tier))
		assert.False(t, outcome.Created)
		assert.Equal(t, models.InterventionDuplicateOpen, outcome.Reason, string(tier))
	}
	assert.Len(t, store.sessionsFor("enr-1"), 1)
}

func TestInterventionGuardAlreadyDelivered(t *testing.T) {
	store := newMemoryStore(tutoredEnrollment("enr-1"))
	store.addSession(models.Session{ID: "ses-done", EnrollmentID: strPtr("enr-1"), TutorID: "tut-1", State: models.SessionStateCompleted, Topic: strPtr("risk-intervention:MEDIUM")})
	guard := newGuardForTest(store, nil)

	outcome := guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(models.RiskTierMedium))
	assert.False(t, outcome.Created)
	assert.Equal(t, models.InterventionAlreadyDelivered, outcome.Reason)

	// A worse tier is a new episode.
	outcome = guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(models.RiskTierLow))
	assert.True(t, outcome.Created)
}

func TestInterventionGuardIsIdempotent(t *testing.T) {
	store := newMemoryStore(tutoredEnrollment("enr-1"))
	guard := newGuardForTest(store, nil)

	first := guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(models.RiskTierLow))
	second := guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(models.RiskTierLow))
	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, models.InterventionDuplicateOpen, second.Reason)
	assert.Len(t, store.sessionsFor("enr-1"), 1)
}

func TestInterventionGuardConcurrentCallsCreateOnce(t *testing.T) {
	store := newMemoryStore(tutoredEnrollment("enr-1"))
	guard := newGuardForTest(store, nil)

	const callers = 16
	outcomes := make([]models.InterventionOutcome, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outcomes[i] = guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(models.RiskTierMedium))
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for _, outcome := range outcomes {
		if outcome.Created {
			created++
			continue
		}
		assert.Equal(t, models.InterventionDuplicateOpen, outcome.Reason)
	}
	assert.Equal(t, 1, created)
	assert.Len(t, store.sessionsFor("enr-1"), 1)
}

func TestInterventionGuardPersistenceError(t *testing.T) {
	store := newMemoryStore(tutoredEnrollment("enr-1"))
	store.createErr = errors.New("insert failed")
	guard := newGuardForTest(store, nil)

	outcome := guard.MaybeCreateIntervention(context.Background(), "enr-1", atRisk(models.RiskTierLow))
	assert.False(t, outcome.Created)
	assert.Equal(t, models.InterventionPersistenceError, outcome.Reason)
	assert.Nil(t, outcome.Session)
	assert.Empty(t, store.sessionsFor("enr-1"))
}

func TestInterventionGuardEnrollmentNotFound(t *testing.T) {
	store := newMemoryStore()
	guard := newGuardForTest(store, nil)

	outcome := guard.MaybeCreateIntervention(context.Background(), "missing", atRisk(models.RiskTierLow))
	assert.False(t, outcome.Created)
	assert.Equal(t, models.InterventionEnrollmentNotFound, outcome.Reason)
}
