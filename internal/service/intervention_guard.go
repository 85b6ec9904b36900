package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/repository"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/config"
)

// interventionLocker serialises session creation per enrollment.
type interventionLocker interface {
	WithEnrollmentLock(ctx context.Context, enrollmentID string, fn repository.LockedFunc) error
}

// openSessionChecker answers the unlocked pre-check.
type openSessionChecker interface {
	HasOpenSession(ctx context.Context, enrollmentID string) (bool, error)
}

type interventionRecorder interface {
	RecordIntervention(reason models.InterventionReason)
}

// InterventionGuardParams configures the guard.
type InterventionGuardParams struct {
	Locker   interventionLocker
	Sessions openSessionChecker
	Config   config.InterventionConfig
	Metrics  interventionRecorder
	Logger   *zap.Logger
	Now      func() time.Time
}

// InterventionGuard creates at most one proactive session per enrollment and risk episode.
type InterventionGuard struct {
	locker   interventionLocker
	sessions openSessionChecker
	cfg      config.InterventionConfig
	metrics  interventionRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewInterventionGuard constructs the guard.
func NewInterventionGuard(params InterventionGuardParams) *InterventionGuard {
	cfg := params.Config
	if cfg.DurationMinutes <= 0 {
		cfg.DurationMinutes = 60
	}
	if !models.Modality(cfg.Modality).Valid() {
		cfg.Modality = string(models.ModalityVirtual)
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "risk-intervention"
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &InterventionGuard{
		locker:   params.Locker,
		sessions: params.Sessions,
		cfg:      cfg,
		metrics:  params.Metrics,
		logger:   logger,
		now:      now,
	}
}

// Topic returns the canonical topic of an intervention triggered by tier.
func (g *InterventionGuard) Topic(tier models.RiskTier) string {
	return g.cfg.TopicPrefix + ":" + string(tier)
}

// MaybeCreateIntervention decides whether the assessment warrants a new
// session and creates it. Failures are reported through the outcome reason.
func (g *InterventionGuard) MaybeCreateIntervention(ctx context.Context, enrollmentID string, assessment models.RiskAssessment) models.InterventionOutcome {
	outcome := g.decide(ctx, enrollmentID, assessment)
	if g.metrics != nil {
		g.metrics.RecordIntervention(outcome.Reason)
	}
	return outcome
}

func (g *InterventionGuard) decide(ctx context.Context, enrollmentID string, assessment models.RiskAssessment) models.InterventionOutcome {
	logger := g.logger.With(zap.String("enrollment_id", enrollmentID), zap.String("tier", string(assessment.Tier)))

	// An open session blocks any new one whatever the tier; this read is
	// repeated under the lock before inserting.
	if g.sessions != nil {
		open, err := g.sessions.HasOpenSession(ctx, enrollmentID)
		if err != nil {
			logger.Error("open session pre-check failed", zap.Error(err))
			return models.InterventionOutcome{Reason: models.InterventionPersistenceError}
		}
		if open {
			return models.InterventionOutcome{Reason: models.InterventionDuplicateOpen}
		}
	}

	if !assessment.Tier.AtRisk() {
		return models.InterventionOutcome{Reason: models.InterventionNotAtRisk}
	}

	topic := g.Topic(assessment.Tier)
	var outcome models.InterventionOutcome
	err := g.locker.WithEnrollmentLock(ctx, enrollmentID, func(ctx context.Context, enrollment models.Enrollment, store repository.LockedSessionStore) error {
		if !enrollment.HasTutor() {
			outcome = models.InterventionOutcome{Reason: models.InterventionNoTutor}
			return nil
		}

		open, err := store.HasOpenSession(ctx, enrollment.ID)
		if err != nil {
			return err
		}
		if open {
			outcome = models.InterventionOutcome{Reason: models.InterventionDuplicateOpen}
			return nil
		}

		delivered, err := store.HasCompletedTopic(ctx, enrollment.ID, topic)
		if err != nil {
			return err
		}
		if delivered {
			outcome = models.InterventionOutcome{Reason: models.InterventionAlreadyDelivered}
			return nil
		}

		now := models.NaiveTime(g.now())
		session := &models.Session{
			ID:              uuid.NewString(),
			EnrollmentID:    &enrollment.ID,
			TutorID:         *enrollment.TutorID,
			ScheduledAt:     now,
			DurationMinutes: g.cfg.DurationMinutes,
			Modality:        models.Modality(g.cfg.Modality),
			State:           models.SessionStateRequested,
			Topic:           &topic,
			CreatedAt:       now,
		}
		if err := store.CreateSession(ctx, session); err != nil {
			return err
		}
		outcome = models.InterventionOutcome{Created: true, Reason: models.InterventionCreated, Session: session}
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.InterventionOutcome{Reason: models.InterventionEnrollmentNotFound}
		}
		logger.Error("intervention rolled back", zap.Error(err))
		return models.InterventionOutcome{Reason: models.InterventionPersistenceError}
	}

	if outcome.Created {
		logger.Info("proactive session created",
			zap.String("session_id", outcome.Session.ID),
			zap.String("tutor_id", outcome.Session.TutorID),
		)
	}
	return outcome
}
