package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lessonloop/scheduler/internal/apperr"
	"github.com/lessonloop/scheduler/internal/model"
	"github.com/lessonloop/scheduler/internal/repository/base"
)

// UniqueActiveClassIndex is the partial unique index guarding the exclusivity
// invariant: one active lesson per (instructor, date_time).
const UniqueActiveClassIndex = "uniq_active_class_per_instructor_time"

// ClassRepository manages concrete lesson rows and their attendance.
type ClassRepository struct {
	db base.Querier
}

func NewClassRepository(db base.Querier) *ClassRepository {
	return &ClassRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *ClassRepository) WithTx(tx pgx.Tx) *ClassRepository {
	return &ClassRepository{db: tx}
}

// Create inserts one lesson row. A violation of the active-slot unique index
// surfaces as the authoritative ConflictError: a concurrent writer holds the
// slot even though the pre-check passed.
func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	query := `
		INSERT INTO classes (recurring_class_id, instructor_id, customer_id, subscription_id,
		                     date_time, status, rebookable_until, class_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		c.RecurringClassID, c.InstructorID, c.CustomerID, c.SubscriptionID,
		c.DateTime, c.Status, c.RebookableUntil, c.ClassCode,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	if base.IsUniqueViolation(err, UniqueActiveClassIndex) {
		return apperr.Conflict(apperr.CodeSlotAlreadyCommitted,
			"instructor %d already has an active lesson at %s", c.InstructorID, c.DateTime)
	}
	if err != nil {
		return fmt.Errorf("create class: %w", err)
	}

	return nil
}

// InsertAttendance bulk-creates attendance rows for one lesson.
func (r *ClassRepository) InsertAttendance(ctx context.Context, classID int64, childrenIDs []int64) error {
	query := `
		INSERT INTO class_attendances (class_id, children_id)
		VALUES ($1, $2)
	`

	for _, childID := range childrenIDs {
		if _, err := r.db.Exec(ctx, query, classID, childID); err != nil {
			return fmt.Errorf("insert class attendance: %w", err)
		}
	}

	return nil
}

// ActiveAt returns the instants among the given ones at which the instructor
// already has an active-status lesson.
func (r *ClassRepository) ActiveAt(ctx context.Context, instructorID int64, at []time.Time) ([]time.Time, error) {
	if len(at) == 0 {
		return nil, nil
	}

	query := `
		SELECT date_time
		FROM classes
		WHERE instructor_id = $1
		  AND date_time = ANY($2)
		  AND status = ANY($3)
	`

	rows, err := r.db.Query(ctx, query, instructorID, at, statusStrings(model.ActiveStatuses))
	if err != nil {
		return nil, fmt.Errorf("get active classes at times: %w", err)
	}
	defer rows.Close()

	return collectTimes(rows)
}

// BookedBetween returns the instants in [from, to) at which the instructor
// has a lesson with one of the given statuses.
func (r *ClassRepository) BookedBetween(ctx context.Context, instructorID int64, from, to time.Time, statuses []model.ClassStatus) ([]time.Time, error) {
	query := `
		SELECT date_time
		FROM classes
		WHERE instructor_id = $1
		  AND date_time >= $2
		  AND date_time < $3
		  AND status = ANY($4)
		ORDER BY date_time
	`

	rows, err := r.db.Query(ctx, query, instructorID, from, to, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("get booked classes between: %w", err)
	}
	defer rows.Close()

	return collectTimes(rows)
}

// DatesForRecurring returns the occurrence instants already materialized for
// the commitment at or after the given instant.
func (r *ClassRepository) DatesForRecurring(ctx context.Context, recurringClassID int64, from time.Time) ([]time.Time, error) {
	query := `
		SELECT date_time
		FROM classes
		WHERE recurring_class_id = $1
		  AND date_time >= $2
		ORDER BY date_time
	`

	rows, err := r.db.Query(ctx, query, recurringClassID, from)
	if err != nil {
		return nil, fmt.Errorf("get materialized dates for recurring class: %w", err)
	}
	defer rows.Close()

	return collectTimes(rows)
}

// ListForRecurring returns the commitment's materialized lessons, earliest first.
func (r *ClassRepository) ListForRecurring(ctx context.Context, recurringClassID int64) ([]*model.Class, error) {
	query := `
		SELECT id, recurring_class_id, instructor_id, customer_id, subscription_id,
		       date_time, status, rebookable_until, class_code, created_at, updated_at
		FROM classes
		WHERE recurring_class_id = $1
		ORDER BY date_time
	`

	rows, err := r.db.Query(ctx, query, recurringClassID)
	if err != nil {
		return nil, fmt.Errorf("list classes for recurring class: %w", err)
	}
	defer rows.Close()

	var classes []*model.Class
	for rows.Next() {
		c := &model.Class{}
		err := rows.Scan(&c.ID, &c.RecurringClassID, &c.InstructorID, &c.CustomerID, &c.SubscriptionID,
			&c.DateTime, &c.Status, &c.RebookableUntil, &c.ClassCode, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		if c.DateTime != nil {
			utc := c.DateTime.UTC()
			c.DateTime = &utc
		}
		classes = append(classes, c)
	}

	return classes, rows.Err()
}

// DeleteForRecurringFrom deletes the commitment's materialized lessons with
// date_time >= cutoff. Attendance rows cascade-delete.
func (r *ClassRepository) DeleteForRecurringFrom(ctx context.Context, recurringClassID int64, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM classes
		WHERE recurring_class_id = $1
		  AND date_time >= $2
	`

	tag, err := r.db.Exec(ctx, query, recurringClassID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete classes from cutoff: %w", err)
	}

	return tag.RowsAffected(), nil
}

func statusStrings(statuses []model.ClassStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
