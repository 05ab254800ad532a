package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/lessonloop/scheduler/internal/localtime"
	"github.com/lessonloop/scheduler/internal/model"
	"github.com/lessonloop/scheduler/internal/repository"
)

const (
	// materializationMonths is the forward window expanded when a commitment
	// is created; the monthly extension job keeps it rolling afterwards.
	materializationMonths = 3

	// rebookableDays is how long after its date an occurrence stays rebookable.
	rebookableDays = 180
)

// Materializer expands a recurring commitment into concrete Class rows,
// attaches attendance, and cancels occurrences colliding with a pre-existing
// lesson or an absence. All writes run against the caller's transaction.
type Materializer struct {
	classes  *repository.ClassRepository
	absences *repository.AbsenceRepository
	logger   *zap.Logger
}

func NewMaterializer(classes *repository.ClassRepository, absences *repository.AbsenceRepository, logger *zap.Logger) *Materializer {
	return &Materializer{
		classes:  classes,
		absences: absences,
		logger:   logger,
	}
}

// MaterializeWindow expands the weekly series [from, from+7d, ...) strictly
// before until.
func (m *Materializer) MaterializeWindow(ctx context.Context, tx pgx.Tx, rc *model.RecurringClass, childrenIDs []int64, from, until time.Time) ([]*model.Class, error) {
	return m.MaterializeDates(ctx, tx, rc, childrenIDs, localtime.Weekly(from, until))
}

// MaterializeDates creates one Class row per date plus the attendance cross
// product. Dates colliding with an existing active lesson or an absence are
// written as canceledByInstructor up front: the pre-existing lesson wins, and
// only a genuine write race ever trips the active-slot unique index (which
// then aborts the transaction with a ConflictError).
func (m *Materializer) MaterializeDates(ctx context.Context, tx pgx.Tx, rc *model.RecurringClass, childrenIDs []int64, dates []time.Time) ([]*model.Class, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	if rc.InstructorID == nil {
		return nil, fmt.Errorf("recurring class %d has no instructor", rc.ID)
	}

	classes := m.classes.WithTx(tx)
	absences := m.absences.WithTx(tx)

	conflicted, err := classes.ActiveAt(ctx, *rc.InstructorID, dates)
	if err != nil {
		return nil, err
	}

	absent, err := absences.At(ctx, *rc.InstructorID, dates)
	if err != nil {
		return nil, err
	}

	rows := planOccurrences(rc, dates, instantSet(conflicted), instantSet(absent))

	canceled := 0
	for _, row := range rows {
		if err := classes.Create(ctx, row); err != nil {
			return nil, err
		}
		if err := classes.InsertAttendance(ctx, row.ID, childrenIDs); err != nil {
			return nil, err
		}
		if row.Status == model.ClassStatusCanceledByInstructor {
			canceled++
		}
	}

	m.logger.Info("Materialized occurrences",
		zap.Int64("recurring_class_id", rc.ID),
		zap.Int("created", len(rows)),
		zap.Int("canceled", canceled),
	)

	return rows, nil
}

// planOccurrences builds the Class rows for the given occurrence instants.
// Pure: conflict and absence instants arrive as pre-resolved sets.
func planOccurrences(rc *model.RecurringClass, dates []time.Time, conflicted, absent map[int64]struct{}) []*model.Class {
	rows := make([]*model.Class, 0, len(dates))
	for _, date := range dates {
		status := model.ClassStatusBooked
		if _, clash := conflicted[date.Unix()]; clash {
			status = model.ClassStatusCanceledByInstructor
		} else if _, gone := absent[date.Unix()]; gone {
			status = model.ClassStatusCanceledByInstructor
		}

		dt := date
		rebookable := date.AddDate(0, 0, rebookableDays)
		recurringID := rc.ID

		rows = append(rows, &model.Class{
			RecurringClassID: &recurringID,
			InstructorID:     *rc.InstructorID,
			CustomerID:       rc.CustomerID,
			SubscriptionID:   rc.SubscriptionID,
			DateTime:         &dt,
			Status:           status,
			RebookableUntil:  &rebookable,
			ClassCode:        occurrenceCode(rc.ID, localtime.WeekIndex(rc.StartAt, date)),
		})
	}
	return rows
}

// occurrenceCode derives the unique human-readable tag for one occurrence.
// The sequence index counts weeks from the commitment's first occurrence, so
// initial materialization and later extension never collide.
func occurrenceCode(recurringClassID int64, seq int) string {
	return fmt.Sprintf("RC%d-%d", recurringClassID, seq)
}
