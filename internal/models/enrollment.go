package models

// AcademicStatus represents the standing of an enrollment in its subject.
type AcademicStatus string

// Possible academic statuses. Approved and failed are terminal.
const (
	AcademicStatusInProgress AcademicStatus = "in_progress"
	AcademicStatusApproved   AcademicStatus = "approved"
	AcademicStatusFailed     AcademicStatus = "failed"
)

// IsTerminal reports whether the status is final.
func (s AcademicStatus) IsTerminal() bool {
	return s == AcademicStatusApproved || s == AcademicStatusFailed
}

// Enrollment captures a student's registration in one subject for one term.
type Enrollment struct {
	ID        string         `db:"id" json:"id"`
	StudentID string         `db:"student_id" json:"student_id"`
	TutorID   *string        `db:"tutor_id" json:"tutor_id,omitempty"`
	SubjectID string         `db:"subject_id" json:"subject_id"`
	TermID    string         `db:"term_id" json:"term_id"`
	Status    AcademicStatus `db:"status" json:"status"`
}

// HasTutor reports whether a tutor is assigned.
func (e Enrollment) HasTutor() bool {
	return e.TutorID != nil && *e.TutorID != ""
}

// EnrollmentDetail enriches Enrollment with display names.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	TermName    string `db:"term_name" json:"term_name"`
}
