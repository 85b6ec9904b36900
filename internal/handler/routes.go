package handler

import "github.com/gin-gonic/gin"

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Risk      *RiskHandler
	Sessions  *SessionHandler
	Dashboard *DashboardHandler
}

// Register mounts every tutoring route on the group. Nil handlers are skipped.
func (h Handlers) Register(api gin.IRouter) {
	if h.Risk != nil {
		api.GET("/enrollments/:id/risk", h.Risk.Evaluate)
		api.POST("/enrollments/:id/risk/interventions", h.Risk.Intervene)
		api.GET("/students/:id/risk", h.Risk.Student)
	}
	if h.Sessions != nil {
		api.POST("/sessions", h.Sessions.Create)
		api.GET("/sessions/:id", h.Sessions.Get)
		api.PATCH("/sessions/:id/status", h.Sessions.UpdateStatus)
		api.POST("/sessions/:id/evaluation", h.Sessions.Evaluate)
		api.GET("/tutors/:id/sessions", h.Sessions.ListByTutor)
		api.GET("/enrollments/:id/sessions", h.Sessions.ListByEnrollment)
	}
	if h.Dashboard != nil {
		api.GET("/tutors/:id/dashboard", h.Dashboard.Tutor)
		api.GET("/tutors/:id/roster", h.Dashboard.Roster)
	}
}
