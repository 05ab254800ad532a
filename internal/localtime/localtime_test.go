package localtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

func TestDateOf(t *testing.T) {
	loc := tokyo(t)

	// 20:00 UTC on June 30 is already July 1 in Tokyo.
	late := time.Date(2025, 6, 30, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, Date(2025, 7, 1), DateOf(late, loc))

	// 02:00 UTC on July 1 is 11:00 JST the same day.
	morning := time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, Date(2025, 7, 1), DateOf(morning, loc))
}

func TestAt(t *testing.T) {
	loc := tokyo(t)

	// 11:00 JST = 02:00 UTC.
	got := At(Date(2025, 7, 1), 11, 0, loc)
	assert.Equal(t, time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC), got)
}

func TestDays(t *testing.T) {
	days := Days(Date(2025, 6, 25), Date(2025, 6, 28))
	require.Len(t, days, 3)
	assert.Equal(t, Date(2025, 6, 25), days[0])
	assert.Equal(t, Date(2025, 6, 27), days[2])

	assert.Empty(t, Days(Date(2025, 6, 25), Date(2025, 6, 25)))
}

func TestFirstOccurrence(t *testing.T) {
	loc := tokyo(t)
	asOf := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("advances to next matching weekday", func(t *testing.T) {
		// 2025-01-15 is a Wednesday; the next Monday is 2025-01-20.
		got := FirstOccurrence(Date(2025, 1, 15), time.Monday, 10, 0, loc, asOf)
		assert.Equal(t, time.Date(2025, 1, 20, 1, 0, 0, 0, time.UTC), got)
	})

	t.Run("same weekday with time still ahead stays on the day", func(t *testing.T) {
		nineJST := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC) // 09:00 JST
		got := FirstOccurrence(Date(2025, 1, 20), time.Monday, 10, 0, loc, nineJST)
		assert.Equal(t, time.Date(2025, 1, 20, 1, 0, 0, 0, time.UTC), got)
	})

	t.Run("same weekday with time already passed advances a full week", func(t *testing.T) {
		tenJST := time.Date(2025, 1, 20, 1, 0, 0, 0, time.UTC) // exactly 10:00 JST
		got := FirstOccurrence(Date(2025, 1, 20), time.Monday, 10, 0, loc, tenJST)
		assert.Equal(t, time.Date(2025, 1, 27, 1, 0, 0, 0, time.UTC), got)
	})
}

func TestWeekly(t *testing.T) {
	start := time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)

	dates := Weekly(start, start.AddDate(0, 0, 21))
	require.Len(t, dates, 3)
	assert.Equal(t, start, dates[0])
	assert.Equal(t, start.AddDate(0, 0, 14), dates[2])

	// End is exclusive.
	assert.Len(t, Weekly(start, start.AddDate(0, 0, 14)), 2)
	assert.Empty(t, Weekly(start, start))
}

func TestFirstWeeklyOnOrAfter(t *testing.T) {
	start := time.Date(2025, 5, 6, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, start, FirstWeeklyOnOrAfter(start, start.AddDate(0, 0, -30)))
	assert.Equal(t, start, FirstWeeklyOnOrAfter(start, start))

	// A lower bound inside the series lands on the next member.
	lower := start.AddDate(0, 0, 10)
	assert.Equal(t, start.AddDate(0, 0, 14), FirstWeeklyOnOrAfter(start, lower))

	// A lower bound exactly on a member returns that member.
	assert.Equal(t, start.AddDate(0, 0, 28), FirstWeeklyOnOrAfter(start, start.AddDate(0, 0, 28)))
}

func TestWeekIndex(t *testing.T) {
	start := time.Date(2025, 7, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, WeekIndex(start, start))
	assert.Equal(t, 3, WeekIndex(start, start.AddDate(0, 0, 21)))
}

func TestMonthWindow(t *testing.T) {
	loc := tokyo(t)

	start, end := MonthWindow(2025, time.July, loc)
	assert.Equal(t, time.Date(2025, 6, 30, 15, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 7, 31, 15, 0, 0, 0, time.UTC), end)
}

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("16:30")
	require.NoError(t, err)
	assert.Equal(t, 16, hour)
	assert.Equal(t, 30, minute)

	_, _, err = ParseClock("25:00")
	assert.Error(t, err)
	_, _, err = ParseClock("half past nine")
	assert.Error(t, err)
}
