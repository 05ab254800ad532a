package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lessonloop/scheduler/internal/model"
	"github.com/lessonloop/scheduler/internal/repository/base"
)

// RecurringClassRepository manages standing weekly commitments and their
// attendance rows.
type RecurringClassRepository struct {
	db base.Querier
}

func NewRecurringClassRepository(db base.Querier) *RecurringClassRepository {
	return &RecurringClassRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *RecurringClassRepository) WithTx(tx pgx.Tx) *RecurringClassRepository {
	return &RecurringClassRepository{db: tx}
}

const recurringClassColumns = `id, group_id, instructor_id, customer_id, subscription_id, start_at, end_at, created_at, updated_at`

func scanRecurringClass(row pgx.Row) (*model.RecurringClass, error) {
	rc := &model.RecurringClass{}
	err := row.Scan(&rc.ID, &rc.GroupID, &rc.InstructorID, &rc.CustomerID, &rc.SubscriptionID,
		&rc.StartAt, &rc.EndAt, &rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rc.StartAt = rc.StartAt.UTC()
	if rc.EndAt != nil {
		utc := rc.EndAt.UTC()
		rc.EndAt = &utc
	}
	return rc, nil
}

// Create inserts a new commitment row.
func (r *RecurringClassRepository) Create(ctx context.Context, rc *model.RecurringClass) error {
	query := `
		INSERT INTO recurring_classes (group_id, instructor_id, customer_id, subscription_id, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		rc.GroupID, rc.InstructorID, rc.CustomerID, rc.SubscriptionID, rc.StartAt, rc.EndAt,
	).Scan(&rc.ID, &rc.CreatedAt, &rc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create recurring class: %w", err)
	}

	return nil
}

// GetByID returns the commitment, or nil when missing.
func (r *RecurringClassRepository) GetByID(ctx context.Context, id int64) (*model.RecurringClass, error) {
	query := `SELECT ` + recurringClassColumns + ` FROM recurring_classes WHERE id = $1`

	rc, err := scanRecurringClass(r.db.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring class by id: %w", err)
	}

	return rc, nil
}

// Terminate sets the commitment's exclusive cutoff.
func (r *RecurringClassRepository) Terminate(ctx context.Context, id int64, endAt time.Time) error {
	query := `
		UPDATE recurring_classes
		SET end_at = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, endAt)
	if err != nil {
		return fmt.Errorf("terminate recurring class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("terminate recurring class %d: %w", id, pgx.ErrNoRows)
	}

	return nil
}

// ActiveForInstructor returns the instructor's commitments still in force on
// or after the given date (end_at null or end_at >= onOrAfter).
func (r *RecurringClassRepository) ActiveForInstructor(ctx context.Context, instructorID int64, onOrAfter time.Time) ([]*model.RecurringClass, error) {
	query := `
		SELECT ` + recurringClassColumns + `
		FROM recurring_classes
		WHERE instructor_id = $1
		  AND (end_at IS NULL OR end_at >= $2)
		ORDER BY start_at
	`

	rows, err := r.db.Query(ctx, query, instructorID, onOrAfter)
	if err != nil {
		return nil, fmt.Errorf("get active recurring classes for instructor: %w", err)
	}
	defer rows.Close()

	return collectRecurringClasses(rows)
}

// CountActiveForSubscription counts the subscription's commitments still in
// force on or after the given date.
func (r *RecurringClassRepository) CountActiveForSubscription(ctx context.Context, subscriptionID int64, onOrAfter time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM recurring_classes
		WHERE subscription_id = $1
		  AND (end_at IS NULL OR end_at >= $2)
	`

	var n int
	if err := r.db.QueryRow(ctx, query, subscriptionID, onOrAfter).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active recurring classes for subscription: %w", err)
	}

	return n, nil
}

// ActiveDuring returns every commitment still valid at or after the given
// instant, across all instructors. Used by the monthly extension job.
func (r *RecurringClassRepository) ActiveDuring(ctx context.Context, at time.Time) ([]*model.RecurringClass, error) {
	query := `
		SELECT ` + recurringClassColumns + `
		FROM recurring_classes
		WHERE end_at IS NULL OR end_at >= $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, at)
	if err != nil {
		return nil, fmt.Errorf("get recurring classes active during: %w", err)
	}
	defer rows.Close()

	return collectRecurringClasses(rows)
}

func collectRecurringClasses(rows pgx.Rows) ([]*model.RecurringClass, error) {
	var rcs []*model.RecurringClass
	for rows.Next() {
		rc, err := scanRecurringClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring class: %w", err)
		}
		rcs = append(rcs, rc)
	}
	return rcs, rows.Err()
}

// InsertAttendance bulk-creates the commitment's attendance rows.
func (r *RecurringClassRepository) InsertAttendance(ctx context.Context, recurringClassID int64, childrenIDs []int64) error {
	query := `
		INSERT INTO recurring_class_attendances (recurring_class_id, children_id)
		VALUES ($1, $2)
	`

	for _, childID := range childrenIDs {
		if _, err := r.db.Exec(ctx, query, recurringClassID, childID); err != nil {
			return fmt.Errorf("insert recurring class attendance: %w", err)
		}
	}

	return nil
}

// AttendanceChildrenIDs returns the ids of the children attending the commitment.
func (r *RecurringClassRepository) AttendanceChildrenIDs(ctx context.Context, recurringClassID int64) ([]int64, error) {
	query := `
		SELECT children_id
		FROM recurring_class_attendances
		WHERE recurring_class_id = $1
		ORDER BY children_id
	`

	rows, err := r.db.Query(ctx, query, recurringClassID)
	if err != nil {
		return nil, fmt.Errorf("get recurring class attendance: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan attendance child id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
