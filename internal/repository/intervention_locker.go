package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
)

// LockedSessionStore is the session view available while an enrollment row is locked.
// Every call runs inside the locking transaction.
type LockedSessionStore interface {
	HasOpenSession(ctx context.Context, enrollmentID string) (bool, error)
	HasCompletedTopic(ctx context.Context, enrollmentID, topic string) (bool, error)
	CreateSession(ctx context.Context, session *models.Session) error
}

// LockedFunc runs while the enrollment row is held. Returning an error rolls the work back.
type LockedFunc func(ctx context.Context, enrollment models.Enrollment, store LockedSessionStore) error

// EnrollmentLocker serialises session creation per enrollment with a row lock.
type EnrollmentLocker struct {
	db *sqlx.DB
}

// NewEnrollmentLocker constructs the locker.
func NewEnrollmentLocker(db *sqlx.DB) *EnrollmentLocker {
	return &EnrollmentLocker{db: db}
}

// WithEnrollmentLock locks the enrollment row for the duration of fn and
// commits when fn succeeds. A missing enrollment is reported as sql.ErrNoRows.
func (l *EnrollmentLocker) WithEnrollmentLock(ctx context.Context, enrollmentID string, fn LockedFunc) (err error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment lock: %w", err)
	}
	// No-op after Commit; releases the row lock if fn panics.
	defer tx.Rollback() //nolint:errcheck

	const query = `SELECT id, student_id, tutor_id, subject_id, term_id, status FROM enrollments WHERE id = $1 FOR UPDATE`
	var enrollment models.Enrollment
	if err = tx.GetContext(ctx, &enrollment, query, enrollmentID); err != nil {
		return fmt.Errorf("lock enrollment: %w", err)
	}

	if err = fn(ctx, enrollment, &txSessionStore{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment lock: %w", err)
	}
	return nil
}

type txSessionStore struct {
	tx *sqlx.Tx
}

func (s *txSessionStore) HasOpenSession(ctx context.Context, enrollmentID string) (bool, error) {
	return hasOpenSession(ctx, s.tx, enrollmentID)
}

func (s *txSessionStore) HasCompletedTopic(ctx context.Context, enrollmentID, topic string) (bool, error) {
	return hasCompletedTopic(ctx, s.tx, enrollmentID, topic)
}

func (s *txSessionStore) CreateSession(ctx context.Context, session *models.Session) error {
	return createSession(ctx, s.tx, session)
}
