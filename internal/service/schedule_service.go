package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lessonloop/scheduler/internal/apperr"
	"github.com/lessonloop/scheduler/internal/localtime"
	"github.com/lessonloop/scheduler/internal/model"
	"github.com/lessonloop/scheduler/internal/repository"
	"github.com/lessonloop/scheduler/internal/repository/base"
)

// SlotInput is one weekly offering in a new schedule version.
type SlotInput struct {
	Weekday   int    // 0 = Sunday, 6 = Saturday
	StartTime string // "HH:MM", interpreted in the version's timezone
}

// ScheduleService owns versioned instructor schedules and their weekly slots.
type ScheduleService struct {
	pool      *pgxpool.Pool
	schedules *repository.ScheduleRepository
	zone      *time.Location
	logger    *zap.Logger
}

func NewScheduleService(pool *pgxpool.Pool, schedules *repository.ScheduleRepository, zone *time.Location, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		pool:      pool,
		schedules: schedules,
		zone:      zone,
		logger:    logger,
	}
}

// CreateScheduleVersion closes the instructor's currently open-ended version
// (its effective_to becomes the new version's effective_from), creates the new
// version, and bulk-inserts its slots, all in one transaction.
func (s *ScheduleService) CreateScheduleVersion(ctx context.Context, instructorID int64, effectiveFrom time.Time, timezone string, slots []SlotInput) (*model.ScheduleVersion, error) {
	if err := checkTimezone(timezone, s.zone); err != nil {
		return nil, err
	}

	parsed, err := parseSlotInputs(slots)
	if err != nil {
		return nil, err
	}

	version := &model.ScheduleVersion{
		InstructorID:  instructorID,
		EffectiveFrom: localtime.DateOf(effectiveFrom, s.zone),
		Timezone:      timezone,
	}

	err = base.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		schedules := s.schedules.WithTx(tx)

		closed, err := schedules.CloseActiveVersion(ctx, instructorID, version.EffectiveFrom)
		if err != nil {
			return err
		}
		if closed > 0 {
			s.logger.Debug("Closed previously active schedule version",
				zap.Int64("instructor_id", instructorID),
				zap.Time("effective_to", version.EffectiveFrom))
		}

		if err := schedules.CreateVersion(ctx, version); err != nil {
			return err
		}

		return schedules.InsertSlots(ctx, version.ID, parsed)
	})
	if err != nil {
		return nil, engineErr("create schedule version", err)
	}

	version.Slots = parsed

	s.logger.Info("Schedule version created",
		zap.Int64("schedule_version_id", version.ID),
		zap.Int64("instructor_id", instructorID),
		zap.Time("effective_from", version.EffectiveFrom),
		zap.Int("slots", len(parsed)),
	)

	return version, nil
}

// ActiveVersionOn returns the version whose interval contains onDate, or nil.
func (s *ScheduleService) ActiveVersionOn(ctx context.Context, instructorID int64, onDate time.Time) (*model.ScheduleVersion, error) {
	version, err := s.schedules.VersionOn(ctx, instructorID, localtime.DateOf(onDate, s.zone))
	if err != nil {
		return nil, apperr.Storage("get active schedule version", err)
	}
	if version == nil {
		return nil, nil
	}

	slots, err := s.schedules.SlotsForVersions(ctx, []int64{version.ID})
	if err != nil {
		return nil, apperr.Storage("get schedule version slots", err)
	}
	version.Slots = slots[version.ID]

	return version, nil
}

// ListVersions returns all of the instructor's versions, most recent
// effective_from first, with slots attached.
func (s *ScheduleService) ListVersions(ctx context.Context, instructorID int64) ([]*model.ScheduleVersion, error) {
	versions, err := s.schedules.ListVersions(ctx, instructorID)
	if err != nil {
		return nil, apperr.Storage("list schedule versions", err)
	}
	if len(versions) == 0 {
		return versions, nil
	}

	ids := make([]int64, len(versions))
	for i, v := range versions {
		ids[i] = v.ID
	}

	slots, err := s.schedules.SlotsForVersions(ctx, ids)
	if err != nil {
		return nil, apperr.Storage("get schedule version slots", err)
	}
	for _, v := range versions {
		v.Slots = slots[v.ID]
	}

	return versions, nil
}

func checkTimezone(requested string, supported *time.Location) error {
	if requested != supported.String() {
		return apperr.Validation(apperr.CodeUnsupportedTimezone,
			"timezone %q is not supported, only %q is configured", requested, supported.String())
	}
	return nil
}

func parseSlotInputs(inputs []SlotInput) ([]*model.Slot, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation(apperr.CodeInvalidArgument, "a schedule version needs at least one slot")
	}

	slots := make([]*model.Slot, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if in.Weekday < 0 || in.Weekday > 6 {
			return nil, apperr.Validation(apperr.CodeInvalidArgument, "weekday %d out of range 0-6", in.Weekday)
		}
		hour, minute, err := localtime.ParseClock(in.StartTime)
		if err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidArgument, "invalid slot start time %q", in.StartTime)
		}

		key := fmt.Sprintf("%d/%02d:%02d", in.Weekday, hour, minute)
		if _, dup := seen[key]; dup {
			return nil, apperr.Validation(apperr.CodeInvalidArgument, "duplicate slot %s", key)
		}
		seen[key] = struct{}{}

		slots = append(slots, &model.Slot{
			Weekday:     in.Weekday,
			StartHour:   hour,
			StartMinute: minute,
		})
	}

	return slots, nil
}
