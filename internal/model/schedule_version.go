package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScheduleVersion is one instructor's weekly availability template, valid over
// the half-open date interval [EffectiveFrom, EffectiveTo). EffectiveTo = nil
// means the version is open-ended (the instructor's active template).
type ScheduleVersion struct {
	ID            int64      `json:"id"`
	InstructorID  int64      `json:"instructor_id"`
	EffectiveFrom time.Time  `json:"effective_from"` // date, inclusive
	EffectiveTo   *time.Time `json:"effective_to"`   // date, exclusive; nil = open-ended
	Timezone      string     `json:"timezone"`
	CreatedAt     time.Time  `json:"created_at"`

	// Slots is populated by the schedule service, not by the version row scan.
	Slots []*Slot `json:"slots,omitempty"`
}

// IsOpenEnded reports whether this is the instructor's active template.
func (v *ScheduleVersion) IsOpenEnded() bool {
	return v.EffectiveTo == nil
}

// Covers reports whether the calendar day falls inside [EffectiveFrom, EffectiveTo).
// Both sides must be date values normalized to UTC midnight.
func (v *ScheduleVersion) Covers(day time.Time) bool {
	if day.Before(v.EffectiveFrom) {
		return false
	}
	return v.EffectiveTo == nil || day.Before(*v.EffectiveTo)
}

// Overlaps reports whether the version interval intersects the half-open
// query window [start, end).
func (v *ScheduleVersion) Overlaps(start, end time.Time) bool {
	if !v.EffectiveFrom.Before(end) {
		return false
	}
	return v.EffectiveTo == nil || v.EffectiveTo.After(start)
}

// Slot is a recurring weekly offering inside a ScheduleVersion. The time of
// day is stored naively and interpreted in the owning version's timezone.
type Slot struct {
	ID                int64 `json:"id"`
	ScheduleVersionID int64 `json:"schedule_version_id"`
	Weekday           int   `json:"weekday"`      // 0 = Sunday, 6 = Saturday
	StartHour         int   `json:"start_hour"`   // 0-23
	StartMinute       int   `json:"start_minute"` // 0-59
}

// TimeOfDay formats the slot start as "HH:MM".
func (s *Slot) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", s.StartHour, s.StartMinute)
}

// MarshalJSON includes the formatted start_time alongside the raw hour and
// minute, so consumers get the slot as a time-of-day string.
func (s *Slot) MarshalJSON() ([]byte, error) {
	type alias Slot
	return json.Marshal(struct {
		*alias
		StartTime string `json:"start_time"`
	}{(*alias)(s), s.TimeOfDay()})
}
