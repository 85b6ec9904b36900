package models

// GradeSnapshot holds the partial and final scores of one enrollment.
// Scores are usually on a 0-10 scale, occasionally 0-20.
type GradeSnapshot struct {
	EnrollmentID  string   `db:"enrollment_id" json:"enrollment_id"`
	FirstPartial  *float64 `db:"first_partial" json:"first_partial,omitempty"`
	SecondPartial *float64 `db:"second_partial" json:"second_partial,omitempty"`
	FinalGrade    *float64 `db:"final_grade" json:"final_grade,omitempty"`
}

// Features is the normalised input the risk estimator works on.
type Features struct {
	EnrollmentID          string         `json:"enrollment_id"`
	StudentID             string         `json:"student_id"`
	FirstPartial          *float64       `json:"first_partial,omitempty"`
	SecondPartial         *float64       `json:"second_partial,omitempty"`
	FinalGrade            *float64       `json:"final_grade,omitempty"`
	Status                AcademicStatus `json:"status"`
	CompletedSessionCount int            `json:"completed_session_count"`
}

// HasGrades reports whether any score is recorded.
func (f Features) HasGrades() bool {
	return f.FirstPartial != nil || f.SecondPartial != nil || f.FinalGrade != nil
}
