package model

import (
	"time"

	"github.com/google/uuid"
)

// RecurringClass is a customer's standing weekly lesson commitment with one
// instructor. Materialized occurrences are Class rows tagged with this id.
type RecurringClass struct {
	ID             int64      `json:"id"`
	GroupID        uuid.UUID  `json:"group_id"` // links a chain of replaced commitments
	InstructorID   *int64     `json:"instructor_id"`
	CustomerID     int64      `json:"customer_id"`
	SubscriptionID int64      `json:"subscription_id"`
	StartAt        time.Time  `json:"start_at"` // UTC, first occurrence
	EndAt          *time.Time `json:"end_at"`   // UTC, exclusive cutoff; nil = open-ended
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the commitment is still in force at t,
// i.e. not terminated before t. EndAt is an exclusive cutoff.
func (rc *RecurringClass) ActiveAt(t time.Time) bool {
	return rc.EndAt == nil || !rc.EndAt.Before(t)
}

// StartedBy reports whether the first occurrence is at or before t.
func (rc *RecurringClass) StartedBy(t time.Time) bool {
	return !rc.StartAt.After(t)
}

// RecurringClassAttendance joins one attending child to a commitment.
// Rows are written in bulk with their owning RecurringClass and
// cascade-deleted with it.
type RecurringClassAttendance struct {
	RecurringClassID int64 `json:"recurring_class_id"`
	ChildrenID       int64 `json:"children_id"`
}
