package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/models"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/response"
)

type sessionService interface {
	Request(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error)
	Transition(ctx context.Context, sessionID, actorID string, req dto.UpdateSessionStatusRequest) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	ListByTutor(ctx context.Context, tutorID string, states []models.SessionState) ([]models.SessionDetail, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.SessionDetail, error)
}

type evaluationService interface {
	Submit(ctx context.Context, sessionID string, req dto.SubmitEvaluationRequest) (*models.Evaluation, error)
}

// SessionHandler manages tutoring sessions and their evaluations.
type SessionHandler struct {
	sessions    sessionService
	evaluations evaluationService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionService, evaluations evaluationService) *SessionHandler {
	return &SessionHandler{sessions: sessions, evaluations: evaluations}
}

// Create godoc
// @Summary Request a tutoring session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.sessions.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Get godoc
// @Summary Get a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// UpdateStatus godoc
// @Summary Move a session through its lifecycle
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param X-Actor-ID header string true "Tutor ID asserted by the gateway"
// @Param payload body dto.UpdateSessionStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/status [patch]
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	session, err := h.sessions.Transition(c.Request.Context(), id, actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// ListByTutor godoc
// @Summary List a tutor's sessions
// @Tags Sessions
// @Produce json
// @Param id path string true "Tutor ID"
// @Param state query string false "Comma separated states"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/sessions [get]
func (h *SessionHandler) ListByTutor(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	sessions, err := h.sessions.ListByTutor(c.Request.Context(), id, parseStates(c.Query("state")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"count": len(sessions)})
}

// ListByEnrollment godoc
// @Summary List the sessions of an enrollment
// @Tags Sessions
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/sessions [get]
func (h *SessionHandler) ListByEnrollment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	sessions, err := h.sessions.ListByEnrollment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"count": len(sessions)})
}

// Evaluate godoc
// @Summary Rate a delivered session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SubmitEvaluationRequest true "Evaluation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/evaluation [post]
func (h *SessionHandler) Evaluate(c *gin.Context) {
	if h.evaluations == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid evaluation payload"))
		return
	}
	evaluation, err := h.evaluations.Submit(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, evaluation)
}

func parseStates(raw string) []models.SessionState {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var states []models.SessionState
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			states = append(states, models.SessionState(strings.ToLower(trimmed)))
		}
	}
	return states
}
