package models

import "time"

// Evaluation is the student's rating of a delivered session.
type Evaluation struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Stars     int       `db:"stars" json:"stars"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
