package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type gradeReader interface {
	FindByEnrollment(ctx context.Context, enrollmentID string) (*models.GradeSnapshot, error)
}

type sessionCounter interface {
	CountByState(ctx context.Context, enrollmentID string, state models.SessionState) (int, error)
}

// FeatureExtractor assembles estimator input from stored facts.
type FeatureExtractor struct {
	enrollments enrollmentReader
	grades      gradeReader
	sessions    sessionCounter
}

// NewFeatureExtractor constructs the extractor.
func NewFeatureExtractor(enrollments enrollmentReader, grades gradeReader, sessions sessionCounter) *FeatureExtractor {
	return &FeatureExtractor{enrollments: enrollments, grades: grades, sessions: sessions}
}

// Extract loads the enrollment and builds its features.
func (x *FeatureExtractor) Extract(ctx context.Context, enrollmentID string) (*models.Features, error) {
	enrollment, err := x.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return x.ExtractFor(ctx, *enrollment)
}

// ExtractFor builds features for an enrollment already in hand. Missing
// grades leave the grade fields nil.
func (x *FeatureExtractor) ExtractFor(ctx context.Context, enrollment models.Enrollment) (*models.Features, error) {
	features := &models.Features{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		Status:       enrollment.Status,
	}

	snapshot, err := x.grades.FindByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	if snapshot != nil {
		features.FirstPartial = snapshot.FirstPartial
		features.SecondPartial = snapshot.SecondPartial
		features.FinalGrade = snapshot.FinalGrade
	}

	completed, err := x.sessions.CountByState(ctx, enrollment.ID, models.SessionStateCompleted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	features.CompletedSessionCount = completed

	return features, nil
}
