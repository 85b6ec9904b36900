package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
)

type fakeRiskSrv struct {
	assessment *models.RiskAssessment
	outcome    models.InterventionOutcome
	overview   *dto.StudentRiskOverview
	err        error
	lastID     string
}

func (f *fakeRiskSrv) Evaluate(_ context.Context, id string) (*models.RiskAssessment, error) {
	f.lastID = id
	return f.assessment, f.err
}

func (f *fakeRiskSrv) EvaluateAndMaybeIntervene(_ context.Context, id string) (*models.RiskAssessment, models.InterventionOutcome, error) {
	f.lastID = id
	return f.assessment, f.outcome, f.err
}

func (f *fakeRiskSrv) EvaluateStudent(_ context.Context, id string) (*dto.StudentRiskOverview, error) {
	f.lastID = id
	return f.overview, f.err
}

func lowAssessment() *models.RiskAssessment {
	return &models.RiskAssessment{
		EnrollmentID: "enr-1",
		Probability:  22.5,
		Tier:         models.RiskTierLow,
		Color:        "red",
		Source:       models.SourceRules,
	}
}

func TestRiskHandlerEvaluate(t *testing.T) {
	srv := &fakeRiskSrv{assessment: lowAssessment()}
	handler := NewRiskHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/enrollments/enr-1/risk", gin.Param{Key: "id", Value: "enr-1"})
	handler.Evaluate(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "enr-1", srv.lastID)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, string(models.RiskTierLow), envelope.Data["tier"])
	assert.Equal(t, 22.5, envelope.Data["probability"])
}

func TestRiskHandlerEvaluateNotFound(t *testing.T) {
	handler := NewRiskHandler(&fakeRiskSrv{err: appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")})

	c, rec := newTestContext(http.MethodGet, "/enrollments/missing/risk", gin.Param{Key: "id", Value: "missing"})
	handler.Evaluate(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "enrollment not found", envelope.Error.Message)
}

func TestRiskHandlerEvaluateRequiresID(t *testing.T) {
	handler := NewRiskHandler(&fakeRiskSrv{})

	c, rec := newTestContext(http.MethodGet, "/enrollments//risk")
	handler.Evaluate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRiskHandlerInterveneCreated(t *testing.T) {
	srv := &fakeRiskSrv{
		assessment: lowAssessment(),
		outcome:    models.InterventionOutcome{Created: true, Reason: models.InterventionCreated, Session: &models.Session{ID: "ses-1"}},
	}
	handler := NewRiskHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/enrollments/enr-1/risk/interventions", gin.Param{Key: "id", Value: "enr-1"})
	handler.Intervene(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	intervention, ok := envelope.Data["intervention"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(models.InterventionCreated), intervention["reason"])
}

func TestRiskHandlerInterveneSkipped(t *testing.T) {
	srv := &fakeRiskSrv{
		assessment: lowAssessment(),
		outcome:    models.InterventionOutcome{Reason: models.InterventionDuplicateOpen},
	}
	handler := NewRiskHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/enrollments/enr-1/risk/interventions", gin.Param{Key: "id", Value: "enr-1"})
	handler.Intervene(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	intervention := envelope.Data["intervention"].(map[string]interface{})
	assert.Equal(t, false, intervention["created"])
	assert.Equal(t, string(models.InterventionDuplicateOpen), intervention["reason"])
}

func TestRiskHandlerStudent(t *testing.T) {
	srv := &fakeRiskSrv{overview: &dto.StudentRiskOverview{StudentID: "stu-1"}}
	handler := NewRiskHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/students/stu-1/risk", gin.Param{Key: "id", Value: "stu-1"})
	handler.Student(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-1", srv.lastID)
	assert.Equal(t, "stu-1", decodeEnvelope(t, rec).Data["studentId"])
}
