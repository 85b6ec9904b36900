package models

// RiskTier classifies the estimated likelihood of passing.
type RiskTier string

// Risk tiers.
const (
	RiskTierLow          RiskTier = "LOW_SUCCESS_PROB"
	RiskTierMedium       RiskTier = "MEDIUM"
	RiskTierHigh         RiskTier = "HIGH_SUCCESS_PROB"
	RiskTierNotAvailable RiskTier = "NOT_AVAILABLE"
	RiskTierFinalSuccess RiskTier = "FINAL_SUCCESS"
	RiskTierFinalFailure RiskTier = "FINAL_FAILURE"
)

// AtRisk reports whether the tier warrants a proactive intervention.
func (t RiskTier) AtRisk() bool {
	return t == RiskTierLow || t == RiskTierMedium
}

// IsFinal reports whether the tier reflects an authoritative outcome.
func (t RiskTier) IsFinal() bool {
	return t == RiskTierFinalSuccess || t == RiskTierFinalFailure
}

// Color returns the traffic-light colour shown next to the tier.
func (t RiskTier) Color() string {
	switch t {
	case RiskTierHigh, RiskTierFinalSuccess:
		return "green"
	case RiskTierMedium:
		return "yellow"
	case RiskTierLow, RiskTierFinalFailure:
		return "red"
	default:
		return "gray"
	}
}

// AssessmentSource names the branch of the estimator that produced a result.
type AssessmentSource string

// Assessment sources.
const (
	SourceStatus      AssessmentSource = "status"
	SourceFinalGrade  AssessmentSource = "final_grade"
	SourceTwoPartials AssessmentSource = "two_partials"
	SourceModel       AssessmentSource = "model"
	SourceRules       AssessmentSource = "rules"
	SourceNoData      AssessmentSource = "no_data"
)

// RiskAssessment is the derived, never-cached estimate for one enrollment.
type RiskAssessment struct {
	EnrollmentID      string           `json:"enrollment_id"`
	StudentID         string           `json:"student_id"`
	Probability       float64          `json:"probability"`
	Tier              RiskTier         `json:"tier"`
	Color             string           `json:"color"`
	Explanation       string           `json:"explanation"`
	CompletedSessions int              `json:"completed_sessions"`
	Grade             float64          `json:"grade"`
	Source            AssessmentSource `json:"source"`
}

// InterventionReason explains an intervention outcome.
type InterventionReason string

// Intervention reasons.
const (
	InterventionCreated            InterventionReason = "CREATED"
	InterventionNotAtRisk          InterventionReason = "NOT_AT_RISK"
	InterventionNoTutor            InterventionReason = "NO_TUTOR"
	InterventionDuplicateOpen      InterventionReason = "DUPLICATE_OPEN"
	InterventionAlreadyDelivered   InterventionReason = "ALREADY_DELIVERED"
	InterventionEnrollmentNotFound InterventionReason = "ENROLLMENT_NOT_FOUND"
	InterventionPersistenceError   InterventionReason = "PERSISTENCE_ERROR"
)

// InterventionOutcome reports whether a proactive session was created.
type InterventionOutcome struct {
	Created bool               `json:"created"`
	Reason  InterventionReason `json:"reason"`
	Session *Session           `json:"session,omitempty"`
}
