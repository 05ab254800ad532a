package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lessonloop/scheduler/internal/apperr"
	"github.com/lessonloop/scheduler/internal/localtime"
	"github.com/lessonloop/scheduler/internal/model"
)

func TestCommitmentClashes(t *testing.T) {
	loc := tokyo(t)

	// A Tuesday 11:00 JST commitment held since July, booked by customer 12.
	held := testCommitment(1, time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC))
	held.CustomerID = 12

	// The same slot, but released before August.
	ended := testCommitment(2, held.StartAt)
	cutoff := time.Date(2025, 7, 29, 2, 0, 0, 0, time.UTC)
	ended.EndAt = &cutoff

	at := localtime.At(localtime.Date(2025, 8, 4), 0, 0, loc)

	tests := []struct {
		name     string
		existing []*model.RecurringClass
		weekday  time.Weekday
		hour     int
		minute   int
		want     bool
	}{
		{
			name:     "same slot held for another customer",
			existing: []*model.RecurringClass{held},
			weekday:  time.Tuesday, hour: 11, minute: 0,
			want: true,
		},
		{
			name:     "same hour, different minute",
			existing: []*model.RecurringClass{held},
			weekday:  time.Tuesday, hour: 11, minute: 30,
			want: false,
		},
		{
			name:     "same time, different weekday",
			existing: []*model.RecurringClass{held},
			weekday:  time.Thursday, hour: 11, minute: 0,
			want: false,
		},
		{
			name:     "commitment terminated before the new start",
			existing: []*model.RecurringClass{ended},
			weekday:  time.Tuesday, hour: 11, minute: 0,
			want: false,
		},
		{
			name:    "no commitments at all",
			weekday: time.Tuesday, hour: 11, minute: 0,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commitmentClashes(tt.existing, tt.weekday, tt.hour, tt.minute, at, loc))
		})
	}
}

func TestParseCommitmentSlot(t *testing.T) {
	hour, minute, err := parseCommitmentSlot(1, "10:00", []int64{100})
	require.NoError(t, err)
	assert.Equal(t, 10, hour)
	assert.Equal(t, 0, minute)

	_, _, err = parseCommitmentSlot(7, "10:00", []int64{100})
	assert.True(t, apperr.IsValidation(err), "weekday out of range")

	_, _, err = parseCommitmentSlot(1, "ten o'clock", []int64{100})
	assert.True(t, apperr.IsValidation(err), "malformed time")

	_, _, err = parseCommitmentSlot(1, "10:00", nil)
	assert.True(t, apperr.IsValidation(err), "no children")
}

func TestReplaceRejectsShortNotice(t *testing.T) {
	loc := tokyo(t)
	svc := &CommitmentService{zone: loc, logger: zap.NewNop()}

	asOf := localtime.At(localtime.Date(2025, 7, 1), 9, 0, loc)
	in := ReplaceCommitmentInput{
		InstructorID: 7,
		Weekday:      1,
		StartTime:    "10:00",
		CustomerID:   9,
		ChildrenIDs:  []int64{100},
	}

	// Six days out: too soon.
	in.StartDate = localtime.Date(2025, 7, 7)
	_, err := svc.Replace(context.Background(), 1, in, asOf)
	require.True(t, apperr.IsConflict(err))
	assert.Equal(t, apperr.CodeTooSoon, apperr.ConflictCode(err))
}
