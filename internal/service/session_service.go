package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/repository"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

type sessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, error)
	Create(ctx context.Context, session *models.Session) error
	UpdateState(ctx context.Context, id string, from, to models.SessionState, meetingLink, notes *string) error
}

var wallClockLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339Nano,
}

// SessionServiceParams wires the session service.
type SessionServiceParams struct {
	Sessions  sessionRepository
	Locker    interventionLocker
	Validator *validator.Validate
	Logger    *zap.Logger
	Now       func() time.Time
}

// SessionService manages the tutoring session lifecycle.
type SessionService struct {
	sessions  sessionRepository
	locker    interventionLocker
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs the service.
func NewSessionService(params SessionServiceParams) *SessionService {
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
	return &SessionService{
		sessions:  params.Sessions,
		locker:    params.Locker,
		validator: validate,
		logger:    logger,
		now:       now,
	}
}

// Request records a student-requested session. Sessions tied to an
// enrollment go through the enrollment lock so they never race a
// proactive intervention.
func (s *SessionService) Request(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	scheduledAt, err := parseWallClock(req.ScheduledAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "scheduledAt must be a date and time")
	}

	session := &models.Session{
		ID:              uuid.NewString(),
		EnrollmentID:    req.EnrollmentID,
		TutorID:         strings.TrimSpace(req.TutorID),
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		Modality:        models.Modality(req.Modality),
		State:           models.SessionStateRequested,
		Topic:           req.Topic,
		CreatedAt:       models.NaiveTime(s.now()),
	}

	if session.EnrollmentID == nil {
		if session.TutorID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "tutorId is required")
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
		}
		return session, nil
	}

	err = s.locker.WithEnrollmentLock(ctx, *session.EnrollmentID, func(ctx context.Context, enrollment models.Enrollment, store repository.LockedSessionStore) error {
		switch {
		case session.TutorID == "" && enrollment.HasTutor():
			session.TutorID = *enrollment.TutorID
		case session.TutorID == "":
			return appErrors.Clone(appErrors.ErrValidation, "enrollment has no tutor assigned")
		case enrollment.HasTutor() && *enrollment.TutorID != session.TutorID:
			return appErrors.Clone(appErrors.ErrValidation, "tutor is not assigned to this enrollment")
		}

		open, err := store.HasOpenSession(ctx, enrollment.ID)
		if err != nil {
			return err
		}
		if open {
			return appErrors.Clone(appErrors.ErrConflict, "an open session already exists for this enrollment")
		}
		return store.CreateSession(ctx, session)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.logger.Info("session requested",
		zap.String("session_id", session.ID),
		zap.String("enrollment_id", *session.EnrollmentID),
		zap.String("tutor_id", session.TutorID),
	)
	return session, nil
}

// Transition moves a session to a new state. Only the assigned tutor may do so.
func (s *SessionService) Transition(ctx context.Context, sessionID, actorID string, req dto.UpdateSessionStatusRequest) (*models.Session, error) {
	if actorID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TutorID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned tutor can update this session")
	}

	target := models.SessionState(req.State)
	if !session.State.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move session from %s to %s", session.State, target))
	}

	link := session.MeetingLink
	if req.MeetingLink != nil && *req.MeetingLink != "" {
		link = req.MeetingLink
	}
	if target == models.SessionStateScheduled && session.Modality == models.ModalityVirtual && (link == nil || *link == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "meetingLink is required to schedule a virtual session")
	}

	if err := s.sessions.UpdateState(ctx, session.ID, session.State, target, req.MeetingLink, req.TutorNotes); err != nil {
		if errors.Is(err, repository.ErrStateChanged) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "session was updated concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}

	s.logger.Info("session transitioned",
		zap.String("session_id", session.ID),
		zap.String("from", string(session.State)),
		zap.String("to", string(target)),
	)

	session.State = target
	session.MeetingLink = link
	if req.TutorNotes != nil {
		session.TutorNotes = req.TutorNotes
	}
	return session, nil
}

// Get returns a session by ID.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "session not found", "failed to load session")
	}
	return session, nil
}

// ListByTutor returns a tutor's sessions, optionally restricted to some states.
func (s *SessionService) ListByTutor(ctx context.Context, tutorID string, states []models.SessionState) ([]models.SessionDetail, error) {
	if tutorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tutorId is required")
	}
	for _, state := range states {
		if !state.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown session state %q", state))
		}
	}
	sessions, err := s.sessions.List(ctx, models.SessionFilter{TutorID: tutorID, States: states})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// ListByEnrollment returns every session of an enrollment.
func (s *SessionService) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.SessionDetail, error) {
	if enrollmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollmentId is required")
	}
	sessions, err := s.sessions.List(ctx, models.SessionFilter{EnrollmentID: enrollmentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// parseWallClock accepts a local date-time and keeps the wall clock as
// written. An offset, when present, is discarded rather than applied, so
// "10:00+05:00" is stored and returned as 10:00.
func parseWallClock(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range wallClockLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return models.NaiveTime(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date-time %q", raw)
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
