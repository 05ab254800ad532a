package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lessonloop/scheduler/internal/localtime"
	"github.com/lessonloop/scheduler/internal/model"
	"github.com/lessonloop/scheduler/internal/repository"
	"github.com/lessonloop/scheduler/internal/repository/base"
)

// ExtensionService rolls materialization forward: for every commitment still
// active in a target month, it fills in the month's occurrences that the
// initial three-month window no longer covers.
type ExtensionService struct {
	pool         *pgxpool.Pool
	recurring    *repository.RecurringClassRepository
	classes      *repository.ClassRepository
	materializer *Materializer
	zone         *time.Location
	logger       *zap.Logger
}

func NewExtensionService(
	pool *pgxpool.Pool,
	recurring *repository.RecurringClassRepository,
	classes *repository.ClassRepository,
	materializer *Materializer,
	zone *time.Location,
	logger *zap.Logger,
) *ExtensionService {
	return &ExtensionService{
		pool:         pool,
		recurring:    recurring,
		classes:      classes,
		materializer: materializer,
		zone:         zone,
		logger:       logger,
	}
}

// ExtendMonth materializes the target month for all eligible commitments:
// still valid during the month, already started by its first day, and
// missing occurrences there. Already-materialized instants are skipped, so
// repeated runs for the same month are no-ops. Commitments are processed
// sequentially inside one transaction; any failure rolls the month back
// whole rather than leaving partial state.
func (s *ExtensionService) ExtendMonth(ctx context.Context, year int, month time.Month) ([]int64, error) {
	monthStart, monthEnd := localtime.MonthWindow(year, month, s.zone)

	var affected []int64
	err := base.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		recurring := s.recurring.WithTx(tx)
		classes := s.classes.WithTx(tx)

		commitments, err := recurring.ActiveDuring(ctx, monthStart)
		if err != nil {
			return err
		}

		for _, rc := range commitments {
			if rc.InstructorID == nil {
				s.logger.Warn("Skipping commitment with no instructor",
					zap.Int64("recurring_class_id", rc.ID))
				continue
			}

			existing, err := classes.DatesForRecurring(ctx, rc.ID, monthStart)
			if err != nil {
				return err
			}

			dates := extensionDates(rc, monthStart, monthEnd, instantSet(existing))
			if len(dates) == 0 {
				continue
			}

			children, err := recurring.AttendanceChildrenIDs(ctx, rc.ID)
			if err != nil {
				return err
			}

			if _, err := s.materializer.MaterializeDates(ctx, tx, rc, children, dates); err != nil {
				return err
			}
			affected = append(affected, rc.ID)
		}

		return nil
	})
	if err != nil {
		return nil, engineErr("extend materialization", err)
	}

	s.logger.Info("Monthly materialization extended",
		zap.Int("year", year),
		zap.String("month", month.String()),
		zap.Int("commitments_extended", len(affected)),
	)

	return affected, nil
}

// extensionDates computes the genuinely-new occurrence instants for one
// commitment within [monthStart, monthEnd). Pure. Commitments starting on or
// after monthStart are skipped: their own create call already materialized
// the initial window. Commitments with no instructor cannot produce
// occurrences and yield nothing.
func extensionDates(rc *model.RecurringClass, monthStart, monthEnd time.Time, existing map[int64]struct{}) []time.Time {
	if rc.InstructorID == nil {
		return nil
	}
	if !rc.StartAt.Before(monthStart) {
		return nil
	}

	until := monthEnd
	if rc.EndAt != nil && rc.EndAt.Before(until) {
		until = *rc.EndAt
	}

	first := localtime.FirstWeeklyOnOrAfter(rc.StartAt, monthStart)

	var out []time.Time
	for _, d := range localtime.Weekly(first, until) {
		if _, done := existing[d.Unix()]; done {
			continue
		}
		out = append(out, d)
	}
	return out
}
