package dto

// CreateSessionRequest is the payload of a student-requested session.
// ScheduledAt is a wall-clock time and is stored without a zone; any offset
// in the value is dropped, not applied.
type CreateSessionRequest struct {
	EnrollmentID    *string `json:"enrollmentId" validate:"omitempty,min=1"`
	TutorID         string  `json:"tutorId"`
	ScheduledAt     string  `json:"scheduledAt" validate:"required"`
	DurationMinutes int     `json:"durationMinutes" validate:"required,min=15,max=240"`
	Modality        string  `json:"modality" validate:"required,oneof=virtual in_person"`
	Topic           *string `json:"topic" validate:"omitempty,max=255"`
}

// UpdateSessionStatusRequest moves a session through its lifecycle.
type UpdateSessionStatusRequest struct {
	State       string  `json:"state" validate:"required,oneof=requested scheduled completed no_show cancelled"`
	MeetingLink *string `json:"meetingLink" validate:"omitempty,url"`
	TutorNotes  *string `json:"tutorNotes" validate:"omitempty,max=2000"`
}

// SubmitEvaluationRequest rates a delivered session.
type SubmitEvaluationRequest struct {
	Stars   int     `json:"stars" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}
