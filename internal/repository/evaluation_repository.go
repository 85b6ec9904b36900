package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
)

// ErrDuplicateEvaluation is returned when a session already carries an evaluation.
var ErrDuplicateEvaluation = errors.New("session already evaluated")

const uniqueViolation = "23505"

// EvaluationRepository persists session evaluations.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs the repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// ExistsForSession reports whether the session was already evaluated.
func (r *EvaluationRepository) ExistsForSession(ctx context.Context, sessionID string) (bool, error) {
	const query = `SELECT 1 FROM evaluations WHERE session_id = $1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check evaluation: %w", err)
	}
	return true, nil
}

// Create inserts an evaluation. The unique session constraint surfaces as ErrDuplicateEvaluation.
func (r *EvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	if evaluation.CreatedAt.IsZero() {
		evaluation.CreatedAt = models.NaiveTime(time.Now())
	}
	const query = `INSERT INTO evaluations (id, session_id, stars, comment, created_at)
        VALUES (:id, :session_id, :stars, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateEvaluation
		}
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// AverageByTutor returns the mean rating across a tutor's sessions, or nil when none were rated.
func (r *EvaluationRepository) AverageByTutor(ctx context.Context, tutorID string) (*float64, error) {
	const query = `SELECT AVG(ev.stars)::float8 FROM evaluations ev
        JOIN sessions ts ON ts.id = ev.session_id
        WHERE ts.tutor_id = $1`
	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, tutorID); err != nil {
		return nil, fmt.Errorf("average tutor rating: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}
