package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
)

// GradeRepository reads grade snapshots.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FindByEnrollment returns the grade row of an enrollment, or nil when no
// grades were recorded yet.
func (r *GradeRepository) FindByEnrollment(ctx context.Context, enrollmentID string) (*models.GradeSnapshot, error) {
	const query = `SELECT enrollment_id, first_partial, second_partial, final_grade FROM grades WHERE enrollment_id = $1`
	var snapshot models.GradeSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, enrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get grades: %w", err)
	}
	return &snapshot, nil
}
