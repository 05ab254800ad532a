package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonloop/scheduler/internal/localtime"
	"github.com/lessonloop/scheduler/internal/model"
)

func testCommitment(id int64, startAt time.Time) *model.RecurringClass {
	instructorID := int64(7)
	return &model.RecurringClass{
		ID:             id,
		InstructorID:   &instructorID,
		CustomerID:     9,
		SubscriptionID: 3,
		StartAt:        startAt,
	}
}

func TestPlanOccurrences(t *testing.T) {
	startAt := time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)
	rc := testCommitment(42, startAt)
	dates := localtime.Weekly(startAt, startAt.AddDate(0, materializationMonths, 0))

	t.Run("clean window books every occurrence", func(t *testing.T) {
		rows := planOccurrences(rc, dates, nil, nil)

		// 3 months from 07-01 is 10-01: Tuesdays 07-01 .. 09-30.
		require.Len(t, rows, 14)
		for i, row := range rows {
			assert.Equal(t, model.ClassStatusBooked, row.Status)
			require.NotNil(t, row.DateTime)
			assert.Equal(t, startAt.AddDate(0, 0, 7*i), *row.DateTime)
			require.NotNil(t, row.RebookableUntil)
			assert.Equal(t, row.DateTime.AddDate(0, 0, rebookableDays), *row.RebookableUntil)
			assert.Equal(t, int64(7), row.InstructorID)
			assert.Equal(t, int64(9), row.CustomerID)
			assert.Equal(t, int64(3), row.SubscriptionID)
			require.NotNil(t, row.RecurringClassID)
			assert.Equal(t, int64(42), *row.RecurringClassID)
		}
	})

	t.Run("conflicting and absent instants are canceled, the rest booked", func(t *testing.T) {
		conflicted := map[int64]struct{}{dates[1].Unix(): {}}
		absent := map[int64]struct{}{dates[2].Unix(): {}}

		rows := planOccurrences(rc, dates, conflicted, absent)

		require.Len(t, rows, len(dates))
		assert.Equal(t, model.ClassStatusBooked, rows[0].Status)
		assert.Equal(t, model.ClassStatusCanceledByInstructor, rows[1].Status)
		assert.Equal(t, model.ClassStatusCanceledByInstructor, rows[2].Status)
		assert.Equal(t, model.ClassStatusBooked, rows[3].Status)
	})
}

func TestOccurrenceCodes(t *testing.T) {
	startAt := time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)
	rc := testCommitment(42, startAt)

	initial := planOccurrences(rc, localtime.Weekly(startAt, startAt.AddDate(0, 0, 21)), nil, nil)
	require.Len(t, initial, 3)
	assert.Equal(t, "RC42-0", initial[0].ClassCode)
	assert.Equal(t, "RC42-2", initial[2].ClassCode)

	// A later extension window continues the sequence instead of colliding.
	later := planOccurrences(rc, localtime.Weekly(startAt.AddDate(0, 0, 28), startAt.AddDate(0, 0, 42)), nil, nil)
	require.Len(t, later, 2)
	assert.Equal(t, "RC42-4", later[0].ClassCode)
	assert.Equal(t, "RC42-5", later[1].ClassCode)
}
