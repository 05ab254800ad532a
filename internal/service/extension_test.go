package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonloop/scheduler/internal/localtime"
)

func TestExtensionDates(t *testing.T) {
	loc := tokyo(t)
	monthStart, monthEnd := localtime.MonthWindow(2025, time.September, loc)

	// A Tuesday 11:00 JST commitment running since May.
	startAt := time.Date(2025, 5, 6, 2, 0, 0, 0, time.UTC)

	t.Run("fills the whole month", func(t *testing.T) {
		rc := testCommitment(1, startAt)

		dates := extensionDates(rc, monthStart, monthEnd, nil)

		require.Len(t, dates, 5) // Sep 2, 9, 16, 23, 30
		assert.Equal(t, time.Date(2025, 9, 2, 2, 0, 0, 0, time.UTC), dates[0])
		assert.Equal(t, time.Date(2025, 9, 30, 2, 0, 0, 0, time.UTC), dates[4])
	})

	t.Run("repeated runs are idempotent", func(t *testing.T) {
		rc := testCommitment(1, startAt)

		first := extensionDates(rc, monthStart, monthEnd, nil)
		require.NotEmpty(t, first)

		existing := make(map[int64]struct{}, len(first))
		for _, d := range first {
			existing[d.Unix()] = struct{}{}
		}

		assert.Empty(t, extensionDates(rc, monthStart, monthEnd, existing))
	})

	t.Run("partially materialized month only fills the gap", func(t *testing.T) {
		rc := testCommitment(1, startAt)

		all := extensionDates(rc, monthStart, monthEnd, nil)
		existing := map[int64]struct{}{all[0].Unix(): {}, all[1].Unix(): {}}

		dates := extensionDates(rc, monthStart, monthEnd, existing)
		require.Len(t, dates, 3)
		assert.Equal(t, all[2], dates[0])
	})

	t.Run("termination cutoff caps the month", func(t *testing.T) {
		rc := testCommitment(1, startAt)
		cutoff := time.Date(2025, 9, 16, 2, 0, 0, 0, time.UTC)
		rc.EndAt = &cutoff

		dates := extensionDates(rc, monthStart, monthEnd, nil)

		// The cutoff is exclusive: Sep 16 itself is gone.
		require.Len(t, dates, 2)
		assert.Equal(t, time.Date(2025, 9, 9, 2, 0, 0, 0, time.UTC), dates[1])
	})

	t.Run("not-yet-started commitments are skipped", func(t *testing.T) {
		rc := testCommitment(1, time.Date(2025, 9, 16, 2, 0, 0, 0, time.UTC))

		assert.Empty(t, extensionDates(rc, monthStart, monthEnd, nil))
	})

	t.Run("commitments without an instructor are skipped", func(t *testing.T) {
		rc := testCommitment(1, startAt)
		rc.InstructorID = nil

		assert.Empty(t, extensionDates(rc, monthStart, monthEnd, nil))
	})
}
