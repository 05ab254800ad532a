package model

import "time"

type ClassStatus string

const (
	ClassStatusBooked               ClassStatus = "booked"
	ClassStatusCompleted            ClassStatus = "completed"
	ClassStatusCanceledByCustomer   ClassStatus = "canceledByCustomer"
	ClassStatusCanceledByInstructor ClassStatus = "canceledByInstructor"
	ClassStatusRebooked             ClassStatus = "rebooked"
	ClassStatusPending              ClassStatus = "pending"
	ClassStatusDeclined             ClassStatus = "declined"
)

// ActiveStatuses are the statuses that occupy an instructor's time slot.
// No two Class rows with an active status may share (instructor, dateTime);
// the partial unique index on classes enforces this.
var ActiveStatuses = []ClassStatus{
	ClassStatusBooked,
	ClassStatusRebooked,
	ClassStatusCompleted,
}

// Active reports whether the status occupies the instructor's slot.
func (s ClassStatus) Active() bool {
	switch s {
	case ClassStatusBooked, ClassStatusRebooked, ClassStatusCompleted:
		return true
	}
	return false
}

// Class is one concrete lesson: a materialized occurrence of a
// RecurringClass, or a free-standing one-off lesson (RecurringClassID nil).
type Class struct {
	ID               int64       `json:"id"`
	RecurringClassID *int64      `json:"recurring_class_id"`
	InstructorID     int64       `json:"instructor_id"`
	CustomerID       int64       `json:"customer_id"`
	SubscriptionID   int64       `json:"subscription_id"`
	DateTime         *time.Time  `json:"date_time"` // UTC; nil only for unscheduled trials
	Status           ClassStatus `json:"status"`
	RebookableUntil  *time.Time  `json:"rebookable_until"`
	ClassCode        string      `json:"class_code"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// ClassAttendance joins one attending child to a concrete lesson.
// Cascade-deleted with its Class.
type ClassAttendance struct {
	ClassID    int64 `json:"class_id"`
	ChildrenID int64 `json:"children_id"`
}
