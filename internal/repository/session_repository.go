package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
)

// ErrStateChanged is returned when a session moved to another state between read and update.
var ErrStateChanged = errors.New("session state changed concurrently")

const sessionColumns = `id, enrollment_id, tutor_id, scheduled_at, duration_minutes, modality, state, meeting_link, topic, tutor_notes, created_at`

// SessionRepository persists tutoring sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindByID returns a session by its ID. A missing row is reported as sql.ErrNoRows.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions with student and subject context.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.TutorID != "" {
		conditions = append(conditions, fmt.Sprintf("ts.tutor_id = $%d", len(args)+1))
		args = append(args, filter.TutorID)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("ts.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, state)
		}
		conditions = append(conditions, fmt.Sprintf("ts.state IN (%s)", strings.Join(placeholders, ",")))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := `SELECT ts.id, ts.enrollment_id, ts.tutor_id, ts.scheduled_at, ts.duration_minutes, ts.modality, ts.state,
        ts.meeting_link, ts.topic, ts.tutor_notes, ts.created_at,
        e.student_id, s.full_name AS student_name, sub.name AS subject_name
        FROM sessions ts
        LEFT JOIN enrollments e ON e.id = ts.enrollment_id
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN subjects sub ON sub.id = e.subject_id` + clause + ` ORDER BY ts.scheduled_at`

	var sessions []models.SessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CountByState counts an enrollment's sessions in the given state.
func (r *SessionRepository) CountByState(ctx context.Context, enrollmentID string, state models.SessionState) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE enrollment_id = $1 AND state = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, enrollmentID, state); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// HasOpenSession reports whether the enrollment has a requested or scheduled session.
func (r *SessionRepository) HasOpenSession(ctx context.Context, enrollmentID string) (bool, error) {
	return hasOpenSession(ctx, r.db, enrollmentID)
}

// Create inserts a session outside any enrollment lock.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	return createSession(ctx, r.db, session)
}

// UpdateState moves a session from one state to another. The update only
// applies while the row is still in from; otherwise ErrStateChanged is returned.
func (r *SessionRepository) UpdateState(ctx context.Context, id string, from, to models.SessionState, meetingLink, notes *string) error {
	const query = `UPDATE sessions
        SET state = $3, meeting_link = COALESCE($4, meeting_link), tutor_notes = COALESCE($5, tutor_notes)
        WHERE id = $1 AND state = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, meetingLink, notes)
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	if affected == 0 {
		return ErrStateChanged
	}
	return nil
}

func hasOpenSession(ctx context.Context, q sqlx.QueryerContext, enrollmentID string) (bool, error) {
	const query = `SELECT 1 FROM sessions WHERE enrollment_id = $1 AND state IN ($2, $3) LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, q, &exists, query, enrollmentID, models.SessionStateRequested, models.SessionStateScheduled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check open session: %w", err)
	}
	return true, nil
}

func hasCompletedTopic(ctx context.Context, q sqlx.QueryerContext, enrollmentID, topic string) (bool, error) {
	const query = `SELECT 1 FROM sessions WHERE enrollment_id = $1 AND topic = $2 AND state = $3 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, q, &exists, query, enrollmentID, topic, models.SessionStateCompleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check delivered intervention: %w", err)
	}
	return true, nil
}

func createSession(ctx context.Context, e sqlx.ExtContext, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = models.NaiveTime(time.Now())
	}
	if session.State == "" {
		session.State = models.SessionStateRequested
	}
	query := `INSERT INTO sessions (` + sessionColumns + `)
        VALUES (:id, :enrollment_id, :tutor_id, :scheduled_at, :duration_minutes, :modality, :state, :meeting_link, :topic, :tutor_notes, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, e, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}
