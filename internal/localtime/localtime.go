// Package localtime holds the engine's calendar arithmetic: weekday and
// time-of-day composition in the configured timezone, half-open window
// expansion, and weekly series generation. Everything here is pure so the
// scheduling math is testable without a database.
package localtime

import (
	"fmt"
	"time"
)

// DateOf strips the time-of-day from t as observed in loc, returning the
// calendar day as UTC midnight. Date values throughout the engine are
// normalized this way so half-open interval comparisons stay exact.
func DateOf(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a normalized date value (UTC midnight) from calendar parts.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// At composes a normalized date with a local time-of-day and returns the
// UTC instant. day must be a UTC-midnight date value.
func At(day time.Time, hour, minute int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc).UTC()
}

// Days expands the half-open date window [start, end) into its calendar
// days. Both bounds must be normalized date values.
func Days(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// FirstOccurrence finds the first concrete occurrence of a weekly
// (weekday, time-of-day) slot on or after startDate: advance startDate to
// the next matching weekday and set the time-of-day; if startDate itself
// matches and that time has already passed relative to asOf, advance one
// full week. startDate must be a normalized date value. The result is UTC.
func FirstOccurrence(startDate time.Time, weekday time.Weekday, hour, minute int, loc *time.Location, asOf time.Time) time.Time {
	offset := (int(weekday) - int(startDate.Weekday()) + 7) % 7
	day := startDate.AddDate(0, 0, offset)
	at := At(day, hour, minute, loc)
	if offset == 0 && !at.After(asOf) {
		at = At(day.AddDate(0, 0, 7), hour, minute, loc)
	}
	return at
}

// Weekly generates the weekly series [start, start+7d, ...] strictly
// before end.
func Weekly(start, end time.Time) []time.Time {
	var out []time.Time
	for t := start; t.Before(end); t = t.AddDate(0, 0, 7) {
		out = append(out, t)
	}
	return out
}

// FirstWeeklyOnOrAfter returns the earliest member of the weekly series
// anchored at seriesStart that is >= lower. Returns seriesStart itself when
// lower precedes it.
func FirstWeeklyOnOrAfter(seriesStart, lower time.Time) time.Time {
	if !seriesStart.Before(lower) {
		return seriesStart
	}
	weeks := int(lower.Sub(seriesStart) / (7 * 24 * time.Hour))
	c := seriesStart.AddDate(0, 0, weeks*7)
	for c.Before(lower) {
		c = c.AddDate(0, 0, 7)
	}
	return c
}

// WeekIndex returns how many whole weeks t lies after seriesStart. Used to
// derive stable per-occurrence sequence numbers.
func WeekIndex(seriesStart, t time.Time) int {
	return int(t.Sub(seriesStart) / (7 * 24 * time.Hour))
}

// MonthWindow returns the half-open UTC window covering the given calendar
// month in loc: [first-of-month, first-of-next-month).
func MonthWindow(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 1, 0).UTC()
}

// ParseClock parses an "HH:MM" time-of-day string.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
