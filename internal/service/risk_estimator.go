package service

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/classifier"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/config"
)

// classifierFallbackRecorder counts model failures.
type classifierFallbackRecorder interface {
	RecordClassifierFallback()
}

// RiskEstimatorParams configures the estimator.
type RiskEstimatorParams struct {
	Policy     config.RiskConfig
	Classifier classifier.Classifier
	Metrics    classifierFallbackRecorder
	Logger     *zap.Logger
}

// RiskEstimator turns features into an assessment. It holds no mutable state
// and never touches storage, so the same features always yield the same result.
type RiskEstimator struct {
	policy     config.RiskConfig
	classifier classifier.Classifier
	metrics    classifierFallbackRecorder
	logger     *zap.Logger
}

// NewRiskEstimator constructs the estimator. A nil classifier selects the rule path.
func NewRiskEstimator(params RiskEstimatorParams) *RiskEstimator {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := params.Policy
	if policy.PassThreshold <= 0 {
		policy = config.DefaultRisk()
	}
	if params.Classifier == nil {
		logger.Warn("risk model not configured, single-grade estimates use rules")
	} else {
		logger.Info("risk model enabled", zap.Int("dimensions", params.Classifier.Dimensions()))
	}
	return &RiskEstimator{
		policy:     policy,
		classifier: params.Classifier,
		metrics:    params.Metrics,
		logger:     logger,
	}
}

// Estimate applies, in order: academic status, final grade, both partials,
// a single partial (model, then rules), and finally the no-data outcome.
func (e *RiskEstimator) Estimate(f models.Features) models.RiskAssessment {
	assessment := models.RiskAssessment{
		EnrollmentID:      f.EnrollmentID,
		StudentID:         f.StudentID,
		CompletedSessions: f.CompletedSessionCount,
	}
	p1, p2, final := normalizeGrades(f.FirstPartial, f.SecondPartial, f.FinalGrade)

	switch f.Status {
	case models.AcademicStatusApproved:
		return finish(assessment, 100, models.RiskTierFinalSuccess, models.SourceStatus, statusGrade(p1, p2, final), "approved")
	case models.AcademicStatusFailed:
		return finish(assessment, 0, models.RiskTierFinalFailure, models.SourceStatus, statusGrade(p1, p2, final), "failed")
	}

	if final != nil {
		if *final >= e.policy.PassThreshold {
			return finish(assessment, 100, models.RiskTierFinalSuccess, models.SourceFinalGrade, *final,
				fmt.Sprintf("final grade %.2f meets the pass mark", *final))
		}
		return finish(assessment, 0, models.RiskTierFinalFailure, models.SourceFinalGrade, *final,
			fmt.Sprintf("final grade %.2f is below the pass mark", *final))
	}

	if p1 != nil && p2 != nil {
		avg := (*p1 + *p2) / 2
		if avg >= e.policy.PassThreshold {
			return finish(assessment, 100, models.RiskTierHigh, models.SourceTwoPartials, avg,
				fmt.Sprintf("partial average %.2f meets the pass mark", avg))
		}
		return finish(assessment, 0, models.RiskTierLow, models.SourceTwoPartials, avg,
			fmt.Sprintf("partial average %.2f is below the pass mark", avg))
	}

	// Without a first partial there is nothing to project from, even when a
	// second partial was recorded.
	grade := p1
	if grade == nil {
		return finish(assessment, 0, models.RiskTierNotAvailable, models.SourceNoData, 0, "no grades recorded")
	}

	if probability, ok := e.predict(f, *grade); ok {
		return finish(assessment, probability, e.tierFor(probability), models.SourceModel, *grade,
			fmt.Sprintf("model estimate from grade %.2f and %d completed sessions", *grade, f.CompletedSessionCount))
	}

	probability, explanation := e.rules(*grade, f.CompletedSessionCount)
	return finish(assessment, probability, e.tierFor(probability), models.SourceRules, *grade, explanation)
}

func (e *RiskEstimator) predict(f models.Features, grade float64) (float64, bool) {
	if e.classifier == nil {
		return 0, false
	}
	sessions := float64(f.CompletedSessionCount)
	var vector []float64
	switch e.classifier.Dimensions() {
	case 2:
		vector = []float64{grade, sessions}
	case 3:
		vector = []float64{grade, grade, sessions}
	default:
		e.fallback(f, fmt.Errorf("unsupported model dimensions %d", e.classifier.Dimensions()))
		return 0, false
	}

	raw, err := e.classifier.PredictProbability(vector)
	if err != nil {
		e.fallback(f, err)
		return 0, false
	}
	if math.IsNaN(raw) || raw < 0 || raw > 1 {
		e.fallback(f, fmt.Errorf("probability %v outside [0,1]", raw))
		return 0, false
	}
	return clamp(raw*100, e.policy.ModelFloor, e.policy.ModelCeiling), true
}

func (e *RiskEstimator) fallback(f models.Features, err error) {
	e.logger.Warn("risk model failed, using rules",
		zap.String("enrollment_id", f.EnrollmentID),
		zap.Error(err),
	)
	if e.metrics != nil {
		e.metrics.RecordClassifierFallback()
	}
}

func (e *RiskEstimator) rules(grade float64, sessions int) (float64, string) {
	p := e.policy
	score := grade * 10
	var explanation string
	switch {
	case grade < p.PassThreshold && sessions == 0:
		score -= p.NoSessionPenalty
		explanation = fmt.Sprintf("grade %.2f is below the pass mark with no completed tutoring", grade)
	case grade < p.PassThreshold:
		score += math.Min(float64(sessions)*p.SessionBonus, p.SessionBonusCap)
		explanation = fmt.Sprintf("grade %.2f is below the pass mark, %d completed sessions improve the outlook", grade, sessions)
	default:
		score += float64(sessions) * p.StrongSessionBonus
		explanation = fmt.Sprintf("grade %.2f is on track with %d completed sessions", grade, sessions)
	}
	return clamp(score, p.RuleFloor, p.RuleCeiling), explanation
}

func (e *RiskEstimator) tierFor(probability float64) models.RiskTier {
	switch {
	case probability >= e.policy.HighTier:
		return models.RiskTierHigh
	case probability >= e.policy.MediumTier:
		return models.RiskTierMedium
	default:
		return models.RiskTierLow
	}
}

func finish(a models.RiskAssessment, probability float64, tier models.RiskTier, source models.AssessmentSource, grade float64, explanation string) models.RiskAssessment {
	a.Probability = round(probability, 1)
	a.Tier = tier
	a.Color = tier.Color()
	a.Source = source
	a.Grade = round(grade, 2)
	a.Explanation = explanation
	return a
}

// normalizeGrades brings a record to the 0-10 scale: when any present grade
// exceeds 10 the whole record is read as 0-20 and halved.
func normalizeGrades(grades ...*float64) (p1, p2, final *float64) {
	twenty := false
	for _, g := range grades {
		if g != nil && *g > 10 {
			twenty = true
		}
	}
	out := make([]*float64, len(grades))
	for i, g := range grades {
		if g == nil {
			continue
		}
		v := *g
		if twenty {
			v /= 2
		}
		out[i] = &v
	}
	return out[0], out[1], out[2]
}

func statusGrade(p1, p2, final *float64) float64 {
	if final != nil {
		return *final
	}
	var sum float64
	if p1 != nil {
		sum += *p1
	}
	if p2 != nil {
		sum += *p2
	}
	return sum / 2
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
