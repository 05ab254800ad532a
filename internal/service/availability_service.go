package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lessonloop/scheduler/internal/apperr"
	"github.com/lessonloop/scheduler/internal/localtime"
	"github.com/lessonloop/scheduler/internal/model"
	"github.com/lessonloop/scheduler/internal/repository"
)

// AvailableTime is one concrete bookable instant for an instructor.
type AvailableTime struct {
	DateTime time.Time `json:"date_time"`
}

// InstructorAvailability lists the instructors available at one instant.
type InstructorAvailability struct {
	DateTime      time.Time `json:"date_time"`
	InstructorIDs []int64   `json:"available_instructor_ids"`
}

// AvailabilityService derives concrete bookable date-times from schedule
// versions, absences, and existing bookings. Read-only.
type AvailabilityService struct {
	schedules *repository.ScheduleRepository
	absences  *repository.AbsenceRepository
	classes   *repository.ClassRepository
	zone      *time.Location
	logger    *zap.Logger
}

func NewAvailabilityService(
	schedules *repository.ScheduleRepository,
	absences *repository.AbsenceRepository,
	classes *repository.ClassRepository,
	zone *time.Location,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		schedules: schedules,
		absences:  absences,
		classes:   classes,
		zone:      zone,
		logger:    logger,
	}
}

// Resolve computes the instructor's bookable date-times over the half-open
// date window [start, end), ascending. When excludeBooked is set, instants
// already taken by a booked or rebooked lesson are dropped.
func (s *AvailabilityService) Resolve(ctx context.Context, instructorID int64, start, end time.Time, timezone string, excludeBooked bool) ([]AvailableTime, error) {
	startDay, endDay, err := s.checkWindow(start, end, timezone)
	if err != nil {
		return nil, err
	}

	times, err := s.resolveInstructor(ctx, instructorID, startDay, endDay, excludeBooked)
	if err != nil {
		return nil, err
	}

	out := make([]AvailableTime, len(times))
	for i, t := range times {
		out[i] = AvailableTime{DateTime: t}
	}
	return out, nil
}

// ResolveAll computes availability for every instructor in parallel and
// inverts the result into a per-instant mapping, ascending by date-time.
func (s *AvailabilityService) ResolveAll(ctx context.Context, start, end time.Time, timezone string) ([]InstructorAvailability, error) {
	startDay, endDay, err := s.checkWindow(start, end, timezone)
	if err != nil {
		return nil, err
	}

	instructorIDs, err := s.schedules.InstructorIDs(ctx)
	if err != nil {
		return nil, apperr.Storage("list instructors", err)
	}

	var mu sync.Mutex
	byInstant := make(map[int64][]int64)

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range instructorIDs {
		id := id
		g.Go(func() error {
			times, err := s.resolveInstructor(gctx, id, startDay, endDay, true)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, t := range times {
				byInstant[t.Unix()] = append(byInstant[t.Unix()], id)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]InstructorAvailability, 0, len(byInstant))
	for unix, ids := range byInstant {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, InstructorAvailability{
			DateTime:      time.Unix(unix, 0).UTC(),
			InstructorIDs: ids,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })

	return out, nil
}

func (s *AvailabilityService) checkWindow(start, end time.Time, timezone string) (time.Time, time.Time, error) {
	if err := checkTimezone(timezone, s.zone); err != nil {
		return time.Time{}, time.Time{}, err
	}

	startDay := localtime.DateOf(start, s.zone)
	endDay := localtime.DateOf(end, s.zone)
	if !startDay.Before(endDay) {
		return time.Time{}, time.Time{}, apperr.Validation(apperr.CodeInvalidArgument,
			"query window [%s, %s) is empty", startDay.Format("2006-01-02"), endDay.Format("2006-01-02"))
	}

	return startDay, endDay, nil
}

func (s *AvailabilityService) resolveInstructor(ctx context.Context, instructorID int64, startDay, endDay time.Time, excludeBooked bool) ([]time.Time, error) {
	versions, err := s.schedules.VersionsOverlapping(ctx, instructorID, startDay, endDay)
	if err != nil {
		return nil, apperr.Storage("get schedule versions", err)
	}
	if len(versions) == 0 {
		return nil, nil
	}

	versionIDs := make([]int64, len(versions))
	for i, v := range versions {
		versionIDs[i] = v.ID
	}
	slots, err := s.schedules.SlotsForVersions(ctx, versionIDs)
	if err != nil {
		return nil, apperr.Storage("get schedule slots", err)
	}

	windowStart := localtime.At(startDay, 0, 0, s.zone)
	windowEnd := localtime.At(endDay, 0, 0, s.zone)

	absent, err := s.absences.Between(ctx, instructorID, windowStart, windowEnd)
	if err != nil {
		return nil, apperr.Storage("get absences", err)
	}

	var booked []time.Time
	if excludeBooked {
		booked, err = s.classes.BookedBetween(ctx, instructorID, windowStart, windowEnd,
			[]model.ClassStatus{model.ClassStatusBooked, model.ClassStatusRebooked})
		if err != nil {
			return nil, apperr.Storage("get booked classes", err)
		}
	}

	return composeAvailability(startDay, endDay, versions, slots, instantSet(absent), instantSet(booked), s.zone), nil
}

// composeAvailability walks each calendar day of [startDay, endDay), finds
// the one schedule version covering it (effective_from inclusive,
// effective_to exclusive), composes the day with the matching weekday slots
// in loc, and drops instants present in the absence or booking sets.
// Pure; the resolver's entire interval/weekday logic lives here.
func composeAvailability(
	startDay, endDay time.Time,
	versions []*model.ScheduleVersion,
	slots map[int64][]*model.Slot,
	absent, booked map[int64]struct{},
	loc *time.Location,
) []time.Time {
	var out []time.Time

	for _, day := range localtime.Days(startDay, endDay) {
		var covering *model.ScheduleVersion
		for _, v := range versions {
			if v.Covers(day) {
				covering = v
				break
			}
		}
		if covering == nil {
			continue
		}

		for _, slot := range slots[covering.ID] {
			if slot.Weekday != int(day.Weekday()) {
				continue
			}
			candidate := localtime.At(day, slot.StartHour, slot.StartMinute, loc)
			if _, gone := absent[candidate.Unix()]; gone {
				continue
			}
			if _, taken := booked[candidate.Unix()]; taken {
				continue
			}
			out = append(out, candidate)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func instantSet(times []time.Time) map[int64]struct{} {
	set := make(map[int64]struct{}, len(times))
	for _, t := range times {
		set[t.Unix()] = struct{}{}
	}
	return set
}
