package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lessonloop/scheduler/internal/model"
	"github.com/lessonloop/scheduler/internal/repository/base"
)

// ScheduleRepository manages instructor schedule versions and their weekly slots.
type ScheduleRepository struct {
	db base.Querier
}

func NewScheduleRepository(db base.Querier) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// WithTx returns a copy of the repository bound to the transaction.
func (r *ScheduleRepository) WithTx(tx pgx.Tx) *ScheduleRepository {
	return &ScheduleRepository{db: tx}
}

const scheduleColumns = `id, instructor_id, effective_from, effective_to, timezone, created_at`

func scanScheduleVersion(row pgx.Row) (*model.ScheduleVersion, error) {
	v := &model.ScheduleVersion{}
	err := row.Scan(&v.ID, &v.InstructorID, &v.EffectiveFrom, &v.EffectiveTo, &v.Timezone, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateVersion inserts a new schedule version row.
func (r *ScheduleRepository) CreateVersion(ctx context.Context, v *model.ScheduleVersion) error {
	query := `
		INSERT INTO instructor_schedules (instructor_id, effective_from, effective_to, timezone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, v.InstructorID, v.EffectiveFrom, v.EffectiveTo, v.Timezone).
		Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("create schedule version: %w", err)
	}

	return nil
}

// CloseActiveVersion sets effective_to on the instructor's open-ended version,
// if one exists. Returns the number of versions closed (0 or 1).
func (r *ScheduleRepository) CloseActiveVersion(ctx context.Context, instructorID int64, effectiveTo time.Time) (int64, error) {
	query := `
		UPDATE instructor_schedules
		SET effective_to = $2
		WHERE instructor_id = $1 AND effective_to IS NULL
	`

	tag, err := r.db.Exec(ctx, query, instructorID, effectiveTo)
	if err != nil {
		return 0, fmt.Errorf("close active schedule version: %w", err)
	}

	return tag.RowsAffected(), nil
}

// VersionOn finds the version whose [effective_from, effective_to) interval
// contains the given date, or nil.
func (r *ScheduleRepository) VersionOn(ctx context.Context, instructorID int64, onDate time.Time) (*model.ScheduleVersion, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM instructor_schedules
		WHERE instructor_id = $1
		  AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to > $2)
	`

	v, err := scanScheduleVersion(r.db.QueryRow(ctx, query, instructorID, onDate))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule version on date: %w", err)
	}

	return v, nil
}

// ListVersions returns all versions for the instructor, most recent
// effective_from first.
func (r *ScheduleRepository) ListVersions(ctx context.Context, instructorID int64) ([]*model.ScheduleVersion, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM instructor_schedules
		WHERE instructor_id = $1
		ORDER BY effective_from DESC
	`

	rows, err := r.db.Query(ctx, query, instructorID)
	if err != nil {
		return nil, fmt.Errorf("list schedule versions: %w", err)
	}
	defer rows.Close()

	return collectVersions(rows)
}

// VersionsOverlapping selects the instructor's versions whose interval
// intersects the half-open window [start, end).
func (r *ScheduleRepository) VersionsOverlapping(ctx context.Context, instructorID int64, start, end time.Time) ([]*model.ScheduleVersion, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM instructor_schedules
		WHERE instructor_id = $1
		  AND effective_from < $3
		  AND (effective_to IS NULL OR effective_to > $2)
		ORDER BY effective_from
	`

	rows, err := r.db.Query(ctx, query, instructorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get overlapping schedule versions: %w", err)
	}
	defer rows.Close()

	return collectVersions(rows)
}

func collectVersions(rows pgx.Rows) ([]*model.ScheduleVersion, error) {
	var versions []*model.ScheduleVersion
	for rows.Next() {
		v, err := scanScheduleVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// InstructorIDs returns every instructor that has at least one schedule version.
func (r *ScheduleRepository) InstructorIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT DISTINCT instructor_id FROM instructor_schedules ORDER BY instructor_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list instructor ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan instructor id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// InsertSlots bulk-inserts the version's weekly slots.
func (r *ScheduleRepository) InsertSlots(ctx context.Context, versionID int64, slots []*model.Slot) error {
	query := `
		INSERT INTO schedule_slots (schedule_version_id, weekday, start_hour, start_minute)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	for _, slot := range slots {
		slot.ScheduleVersionID = versionID
		err := r.db.QueryRow(ctx, query, versionID, slot.Weekday, slot.StartHour, slot.StartMinute).
			Scan(&slot.ID)
		if err != nil {
			return fmt.Errorf("insert schedule slot: %w", err)
		}
	}

	return nil
}

// SlotsForVersions loads the slots of the given versions, keyed by version id.
func (r *ScheduleRepository) SlotsForVersions(ctx context.Context, versionIDs []int64) (map[int64][]*model.Slot, error) {
	query := `
		SELECT id, schedule_version_id, weekday, start_hour, start_minute
		FROM schedule_slots
		WHERE schedule_version_id = ANY($1)
		ORDER BY weekday, start_hour, start_minute
	`

	rows, err := r.db.Query(ctx, query, versionIDs)
	if err != nil {
		return nil, fmt.Errorf("get slots for versions: %w", err)
	}
	defer rows.Close()

	slots := make(map[int64][]*model.Slot)
	for rows.Next() {
		s := &model.Slot{}
		err := rows.Scan(&s.ID, &s.ScheduleVersionID, &s.Weekday, &s.StartHour, &s.StartMinute)
		if err != nil {
			return nil, fmt.Errorf("scan schedule slot: %w", err)
		}
		slots[s.ScheduleVersionID] = append(slots[s.ScheduleVersionID], s)
	}

	return slots, rows.Err()
}

// HasOpenSlot checks whether the instructor currently offers the
// (weekday, time) pair: the slot must belong to the open-ended version and
// that version must be effective by onDate.
func (r *ScheduleRepository) HasOpenSlot(ctx context.Context, instructorID int64, weekday, hour, minute int, onDate time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM schedule_slots s
			JOIN instructor_schedules v ON v.id = s.schedule_version_id
			WHERE v.instructor_id = $1
			  AND v.effective_to IS NULL
			  AND v.effective_from <= $2
			  AND s.weekday = $3
			  AND s.start_hour = $4
			  AND s.start_minute = $5
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, instructorID, onDate, weekday, hour, minute).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open slot: %w", err)
	}

	return exists, nil
}
