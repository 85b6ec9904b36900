package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/middleware"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/response"
)

type riskService interface {
	Evaluate(ctx context.Context, enrollmentID string) (*models.RiskAssessment, error)
	EvaluateAndMaybeIntervene(ctx context.Context, enrollmentID string) (*models.RiskAssessment, models.InterventionOutcome, error)
	EvaluateStudent(ctx context.Context, studentID string) (*dto.StudentRiskOverview, error)
}

// RiskHandler exposes risk assessments and proactive interventions.
type RiskHandler struct {
	service riskService
}

// NewRiskHandler constructs the handler.
func NewRiskHandler(service riskService) *RiskHandler {
	return &RiskHandler{service: service}
}

// Evaluate godoc
// @Summary Assess the success probability of an enrollment
// @Tags Risk
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/risk [get]
func (h *RiskHandler) Evaluate(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	assessment, err := h.service.Evaluate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, middleware.ExtractMeta(c, start))
}

// Intervene godoc
// @Summary Assess an enrollment and create a proactive session when at risk
// @Tags Risk
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id}/risk/interventions [post]
func (h *RiskHandler) Intervene(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	assessment, outcome, err := h.service.EvaluateAndMaybeIntervene(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if outcome.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, dto.RiskInterventionResponse{Assessment: *assessment, Intervention: outcome}, middleware.ExtractMeta(c, start))
}

// Student godoc
// @Summary Assess every enrollment of a student
// @Tags Risk
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/risk [get]
func (h *RiskHandler) Student(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	overview, err := h.service.EvaluateStudent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, middleware.ExtractMeta(c, start))
}
