// Package classifier defines the port the risk estimator uses to ask a
// trained model for a success probability, and a logistic regression
// implementation loaded from an exported coefficient file.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Classifier predicts the probability of eventual success.
type Classifier interface {
	// Dimensions is the feature vector length the model was trained on.
	Dimensions() int
	// PredictProbability returns a value in [0,1].
	PredictProbability(features []float64) (float64, error)
}

// ErrDimensionMismatch is returned when the feature vector has the wrong length.
var ErrDimensionMismatch = errors.New("feature vector dimension mismatch")

// Logistic is a binary logistic regression model.
type Logistic struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	// PositiveClass is the label the probability refers to; exported models
	// must name it so a flipped class order is rejected at load time.
	PositiveClass string   `json:"positive_class"`
	Classes       []string `json:"classes"`
}

// Load reads a model exported as JSON.
func Load(path string) (*Logistic, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var model Logistic
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &model, nil
}

func (m *Logistic) validate() error {
	if len(m.Coefficients) != 2 && len(m.Coefficients) != 3 {
		return fmt.Errorf("expected 2 or 3 coefficients, got %d", len(m.Coefficients))
	}
	if m.PositiveClass == "" {
		return errors.New("positive_class is required")
	}
	for _, class := range m.Classes {
		if class == m.PositiveClass {
			return nil
		}
	}
	return fmt.Errorf("positive class %q not among classes %v", m.PositiveClass, m.Classes)
}

// Dimensions implements Classifier.
func (m *Logistic) Dimensions() int {
	return len(m.Coefficients)
}

// PredictProbability implements Classifier.
func (m *Logistic) PredictProbability(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, len(m.Coefficients), len(features))
	}
	z := m.Intercept
	for i, x := range features {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("feature %d is not finite", i)
		}
		z += m.Coefficients[i] * x
	}
	return 1 / (1 + math.Exp(-z)), nil
}
