package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/middleware"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/service"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/response"
)

type dashboardService interface {
	Tutor(ctx context.Context, tutorID string, intervene bool) (*dto.TutorDashboard, error)
}

type rosterExporter interface {
	TutorRoster(ctx context.Context, tutorID, format string) (*service.ExportResult, error)
}

// DashboardHandler wires the tutor dashboard and its export to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	export  rosterExporter
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, export rosterExporter) *DashboardHandler {
	return &DashboardHandler{service: service, export: export}
}

// Tutor godoc
// @Summary Tutor dashboard with live risk per enrollment
// @Tags Dashboard
// @Produce json
// @Param id path string true "Tutor ID"
// @Param intervene query bool false "Create proactive sessions for at-risk rows"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/dashboard [get]
func (h *DashboardHandler) Tutor(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	tutorID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	intervene, err := queryBool(c, "intervene")
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	dashboard, err := h.service.Tutor(c.Request.Context(), tutorID, intervene)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "intervene", intervene)
	response.JSON(c, http.StatusOK, dashboard, middleware.ExtractMeta(c, start))
}

// Roster godoc
// @Summary Download the tutor risk roster
// @Tags Dashboard
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Tutor ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /tutors/{id}/roster [get]
func (h *DashboardHandler) Roster(c *gin.Context) {
	if h.export == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	tutorID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.export.TutorRoster(c.Request.Context(), tutorID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}
