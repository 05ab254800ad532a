package model

import "time"

// Absence removes a single concrete time slot from an instructor's
// availability. Unique per (instructor, AbsentAt).
type Absence struct {
	ID           int64     `json:"id"`
	InstructorID int64     `json:"instructor_id"`
	AbsentAt     time.Time `json:"absent_at"` // exact date-time, UTC
	CreatedAt    time.Time `json:"created_at"`
}
