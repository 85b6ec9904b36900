package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
)

const enrollmentDetailSelect = `SELECT e.id, e.student_id, e.tutor_id, e.subject_id, e.term_id, e.status,
        s.full_name AS student_name, sub.name AS subject_name, t.name AS term_name
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN subjects sub ON sub.id = e.subject_id
        JOIN terms t ON t.id = e.term_id`

// EnrollmentRepository reads enrollments. Enrollments are owned by the
// enrollment subsystem; nothing here writes them.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID. A missing row is reported as sql.ErrNoRows.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, tutor_id, subject_id, term_id, status FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListDetailByTutor returns every enrollment assigned to a tutor.
func (r *EnrollmentRepository) ListDetailByTutor(ctx context.Context, tutorID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.tutor_id = $1 ORDER BY sub.name, s.full_name`
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor enrollments: %w", err)
	}
	return rows, nil
}

// ListDetailByStudent returns a student's enrollments, most recent term first.
func (r *EnrollmentRepository) ListDetailByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := enrollmentDetailSelect + ` WHERE e.student_id = $1 ORDER BY t.starts_on DESC, sub.name`
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return rows, nil
}
