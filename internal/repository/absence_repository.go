package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lessonloop/scheduler/internal/model"
	"github.com/lessonloop/scheduler/internal/repository/base"
)

// AbsenceRepository manages one-off instructor absences.
type AbsenceRepository struct {
	db base.Querier
}

func NewAbsenceRepository(db base.Querier) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *AbsenceRepository) WithTx(tx pgx.Tx) *AbsenceRepository {
	return &AbsenceRepository{db: tx}
}

// Create records an absence. Duplicate (instructor, absent_at) pairs are
// rejected by the unique constraint.
func (r *AbsenceRepository) Create(ctx context.Context, a *model.Absence) error {
	query := `
		INSERT INTO instructor_absences (instructor_id, absent_at)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, a.InstructorID, a.AbsentAt).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create absence: %w", err)
	}

	return nil
}

// Between returns the instructor's absence instants within [from, to).
func (r *AbsenceRepository) Between(ctx context.Context, instructorID int64, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT absent_at
		FROM instructor_absences
		WHERE instructor_id = $1
		  AND absent_at >= $2
		  AND absent_at < $3
		ORDER BY absent_at
	`

	rows, err := r.db.Query(ctx, query, instructorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get absences between: %w", err)
	}
	defer rows.Close()

	return collectTimes(rows)
}

// At returns the subset of the given instants the instructor is absent for.
func (r *AbsenceRepository) At(ctx context.Context, instructorID int64, at []time.Time) ([]time.Time, error) {
	if len(at) == 0 {
		return nil, nil
	}

	query := `
		SELECT absent_at
		FROM instructor_absences
		WHERE instructor_id = $1
		  AND absent_at = ANY($2)
	`

	rows, err := r.db.Query(ctx, query, instructorID, at)
	if err != nil {
		return nil, fmt.Errorf("get absences at times: %w", err)
	}
	defer rows.Close()

	return collectTimes(rows)
}

func collectTimes(rows pgx.Rows) ([]time.Time, error) {
	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan timestamp: %w", err)
		}
		times = append(times, t.UTC())
	}
	return times, rows.Err()
}
