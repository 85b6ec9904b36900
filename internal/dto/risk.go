package dto

import "github.com/Sebxs22/Proyecto-de-Grado/internal/models"

// RiskEvaluationItem is one entry of a batch evaluation. Error is set when
// the enrollment could not be evaluated; the other entries are unaffected.
type RiskEvaluationItem struct {
	EnrollmentID string                      `json:"enrollmentId"`
	Assessment   *models.RiskAssessment      `json:"assessment,omitempty"`
	Intervention *models.InterventionOutcome `json:"intervention,omitempty"`
	Error        string                      `json:"error,omitempty"`
}

// RiskInterventionResponse pairs an assessment with the intervention decision.
type RiskInterventionResponse struct {
	Assessment   models.RiskAssessment      `json:"assessment"`
	Intervention models.InterventionOutcome `json:"intervention"`
}

// StudentRiskOverview lists the assessments of every enrollment of a student.
type StudentRiskOverview struct {
	StudentID string               `json:"studentId"`
	Items     []RiskEvaluationItem `json:"items"`
}
