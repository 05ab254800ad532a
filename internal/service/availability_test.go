package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonloop/scheduler/internal/localtime"
	"github.com/lessonloop/scheduler/internal/model"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func datePtr(t time.Time) *time.Time { return &t }

func openEndedVersion(id, instructorID int64, from time.Time) *model.ScheduleVersion {
	return &model.ScheduleVersion{
		ID:            id,
		InstructorID:  instructorID,
		EffectiveFrom: from,
		Timezone:      "Asia/Tokyo",
	}
}

func TestComposeAvailability(t *testing.T) {
	loc := tokyo(t)

	version := openEndedVersion(1, 7, localtime.Date(2025, 7, 1))
	slots := map[int64][]*model.Slot{
		1: {
			{ID: 10, ScheduleVersionID: 1, Weekday: 2, StartHour: 11, StartMinute: 0},  // Tuesday
			{ID: 11, ScheduleVersionID: 1, Weekday: 4, StartHour: 16, StartMinute: 30}, // Thursday
		},
	}

	t.Run("days before effective_from yield nothing", func(t *testing.T) {
		got := composeAvailability(
			localtime.Date(2025, 6, 25), localtime.Date(2025, 7, 8),
			[]*model.ScheduleVersion{version}, slots, nil, nil, loc,
		)

		require.Len(t, got, 2)
		assert.Equal(t, time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC), got[0])  // Tue 11:00 JST
		assert.Equal(t, time.Date(2025, 7, 3, 7, 30, 0, 0, time.UTC), got[1]) // Thu 16:30 JST
	})

	t.Run("each weekday repeats across the window", func(t *testing.T) {
		got := composeAvailability(
			localtime.Date(2025, 6, 25), localtime.Date(2025, 7, 10),
			[]*model.ScheduleVersion{version}, slots, nil, nil, loc,
		)

		require.Len(t, got, 3)
		assert.Equal(t, time.Date(2025, 7, 8, 2, 0, 0, 0, time.UTC), got[2]) // next Tuesday
	})

	t.Run("absences and bookings are dropped", func(t *testing.T) {
		tue := time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)
		thu := time.Date(2025, 7, 3, 7, 30, 0, 0, time.UTC)

		got := composeAvailability(
			localtime.Date(2025, 6, 30), localtime.Date(2025, 7, 5),
			[]*model.ScheduleVersion{version}, slots,
			map[int64]struct{}{tue.Unix(): {}},
			map[int64]struct{}{thu.Unix(): {}},
			loc,
		)

		assert.Empty(t, got)
	})
}

func TestComposeAvailabilityVersionBoundary(t *testing.T) {
	loc := tokyo(t)

	// Version A runs [07-01, 07-08), version B from 07-08 open-ended; both
	// offer a Tuesday slot at different times. 07-08 is a Tuesday.
	boundary := localtime.Date(2025, 7, 8)
	a := &model.ScheduleVersion{ID: 1, InstructorID: 7, EffectiveFrom: localtime.Date(2025, 7, 1), EffectiveTo: datePtr(boundary), Timezone: "Asia/Tokyo"}
	b := openEndedVersion(2, 7, boundary)
	slots := map[int64][]*model.Slot{
		1: {{ID: 10, ScheduleVersionID: 1, Weekday: 2, StartHour: 11, StartMinute: 0}},
		2: {{ID: 20, ScheduleVersionID: 2, Weekday: 2, StartHour: 14, StartMinute: 0}},
	}

	got := composeAvailability(
		localtime.Date(2025, 7, 1), localtime.Date(2025, 7, 15),
		[]*model.ScheduleVersion{a, b}, slots, nil, nil, loc,
	)

	// Tue 07-01 belongs to A, Tue 07-08 (the boundary day) to B — never both.
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2025, 7, 8, 5, 0, 0, 0, time.UTC), got[1])
}

func TestComposeAvailabilityGapBetweenVersions(t *testing.T) {
	loc := tokyo(t)

	// Non-adjacent versions: [06-01, 06-15) and [07-01, ...). A window
	// entirely inside the gap yields nothing.
	a := &model.ScheduleVersion{ID: 1, InstructorID: 7, EffectiveFrom: localtime.Date(2025, 6, 1), EffectiveTo: datePtr(localtime.Date(2025, 6, 15)), Timezone: "Asia/Tokyo"}
	b := openEndedVersion(2, 7, localtime.Date(2025, 7, 1))
	slots := map[int64][]*model.Slot{
		1: {{ID: 10, ScheduleVersionID: 1, Weekday: 2, StartHour: 11, StartMinute: 0}},
		2: {{ID: 20, ScheduleVersionID: 2, Weekday: 2, StartHour: 11, StartMinute: 0}},
	}

	got := composeAvailability(
		localtime.Date(2025, 6, 16), localtime.Date(2025, 6, 30),
		[]*model.ScheduleVersion{a, b}, slots, nil, nil, loc,
	)

	assert.Empty(t, got)
}
