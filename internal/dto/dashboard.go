package dto

import (
	"time"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
)

// TutorDashboardRow is one enrollment on a tutor's dashboard.
type TutorDashboardRow struct {
	Enrollment   models.EnrollmentDetail     `json:"enrollment"`
	Assessment   *models.RiskAssessment      `json:"assessment,omitempty"`
	Intervention *models.InterventionOutcome `json:"intervention,omitempty"`
	Error        string                      `json:"error,omitempty"`
}

// TutorDashboard summarises a tutor's students and pending work.
type TutorDashboard struct {
	TutorID         string                 `json:"tutorId"`
	AverageRating   float64                `json:"averageRating"`
	Rows            []TutorDashboardRow    `json:"rows"`
	PendingRequests []models.SessionDetail `json:"pendingRequests"`
	AtRiskCount     int                    `json:"atRiskCount"`
	GeneratedAt     time.Time              `json:"generatedAt"`
}
