package models

import "time"

// SessionState enumerates the tutoring session lifecycle.
type SessionState string

// Session lifecycle states.
const (
	SessionStateRequested SessionState = "requested"
	SessionStateScheduled SessionState = "scheduled"
	SessionStateCompleted SessionState = "completed"
	SessionStateNoShow    SessionState = "no_show"
	SessionStateCancelled SessionState = "cancelled"
)

var sessionTransitions = map[SessionState][]SessionState{
	SessionStateRequested: {SessionStateScheduled, SessionStateCancelled},
	SessionStateScheduled: {SessionStateCompleted, SessionStateNoShow, SessionStateCancelled},
}

// IsTerminal reports whether the session has concluded. Concluded sessions
// can still be cancelled.
func (s SessionState) IsTerminal() bool {
	return s == SessionStateCompleted || s == SessionStateNoShow || s == SessionStateCancelled
}

// IsOpen reports whether the session is still pending delivery.
func (s SessionState) IsOpen() bool {
	return s == SessionStateRequested || s == SessionStateScheduled
}

// Valid reports whether s is a known state.
func (s SessionState) Valid() bool {
	switch s {
	case SessionStateRequested, SessionStateScheduled, SessionStateCompleted, SessionStateNoShow, SessionStateCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Cancelling is allowed from every state except cancelled itself.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	if next == SessionStateCancelled {
		return s != SessionStateCancelled && s.Valid()
	}
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Modality describes where a session happens.
type Modality string

// Supported modalities.
const (
	ModalityVirtual  Modality = "virtual"
	ModalityInPerson Modality = "in_person"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	return m == ModalityVirtual || m == ModalityInPerson
}

// Session is one tutoring meeting. ScheduledAt is a naive wall-clock time:
// it is stored and returned exactly as submitted.
type Session struct {
	ID              string       `db:"id" json:"id"`
	EnrollmentID    *string      `db:"enrollment_id" json:"enrollment_id,omitempty"`
	TutorID         string       `db:"tutor_id" json:"tutor_id"`
	ScheduledAt     time.Time    `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int          `db:"duration_minutes" json:"duration_minutes"`
	Modality        Modality     `db:"modality" json:"modality"`
	State           SessionState `db:"state" json:"state"`
	MeetingLink     *string      `db:"meeting_link" json:"meeting_link,omitempty"`
	Topic           *string      `db:"topic" json:"topic,omitempty"`
	TutorNotes      *string      `db:"tutor_notes" json:"tutor_notes,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
}

// SessionDetail adds the student and subject behind a session.
type SessionDetail struct {
	Session
	StudentID   *string `db:"student_id" json:"student_id,omitempty"`
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
}

// SessionFilter scopes session listings.
type SessionFilter struct {
	TutorID      string
	EnrollmentID string
	States       []SessionState
}

// NaiveTime keeps the wall clock of t and drops its location, so a
// timestamp-without-time-zone column stores exactly what was submitted.
func NaiveTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
