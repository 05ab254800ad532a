package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lessonloop/scheduler/internal/apperr"
	"github.com/lessonloop/scheduler/internal/localtime"
	"github.com/lessonloop/scheduler/internal/model"
	"github.com/lessonloop/scheduler/internal/repository"
	"github.com/lessonloop/scheduler/internal/repository/base"
)

// replaceNoticeDays is the minimum notice for replacing a commitment.
const replaceNoticeDays = 7

// SubscriptionDirectory is the external subscription/plan collaborator: it
// answers whether a subscription is on an active paid plan and how many
// weekly commitments the plan allows.
type SubscriptionDirectory interface {
	ActiveSubscription(ctx context.Context, subscriptionID int64) (bool, error)
	WeeklyClassCount(ctx context.Context, subscriptionID int64) (int, error)
}

// UnlimitedSubscriptions accepts every subscription with no weekly cap.
type UnlimitedSubscriptions struct{}

func (UnlimitedSubscriptions) ActiveSubscription(context.Context, int64) (bool, error) {
	return true, nil
}

// WeeklyClassCount returns 0, meaning no cap.
func (UnlimitedSubscriptions) WeeklyClassCount(context.Context, int64) (int, error) {
	return 0, nil
}

// CreateCommitmentInput describes a new standing weekly commitment.
type CreateCommitmentInput struct {
	InstructorID   int64
	Weekday        int    // 0 = Sunday, 6 = Saturday
	StartTime      string // "HH:MM" in the configured timezone
	CustomerID     int64
	ChildrenIDs    []int64
	SubscriptionID int64
	StartDate      time.Time // earliest calendar day the commitment may start
}

// ReplaceCommitmentInput describes the replacement slot; the original
// subscription and replacement chain are carried over from the old commitment.
type ReplaceCommitmentInput struct {
	InstructorID int64
	Weekday      int
	StartTime    string
	CustomerID   int64
	ChildrenIDs  []int64
	StartDate    time.Time
}

// CommitmentResult is a created commitment plus its materialized occurrences.
type CommitmentResult struct {
	Commitment  *model.RecurringClass
	Occurrences []*model.Class
}

// ReplaceResult pairs the terminated commitment with its replacement.
type ReplaceResult struct {
	OldCommitment *model.RecurringClass
	NewCommitment *model.RecurringClass
	Occurrences   []*model.Class
}

// CommitmentService creates, terminates, and replaces recurring weekly
// commitments, materializing their occurrences in the same transaction.
type CommitmentService struct {
	pool          *pgxpool.Pool
	schedules     *repository.ScheduleRepository
	recurring     *repository.RecurringClassRepository
	classes       *repository.ClassRepository
	materializer  *Materializer
	subscriptions SubscriptionDirectory
	zone          *time.Location
	logger        *zap.Logger
}

func NewCommitmentService(
	pool *pgxpool.Pool,
	schedules *repository.ScheduleRepository,
	recurring *repository.RecurringClassRepository,
	classes *repository.ClassRepository,
	materializer *Materializer,
	subscriptions SubscriptionDirectory,
	zone *time.Location,
	logger *zap.Logger,
) *CommitmentService {
	return &CommitmentService{
		pool:          pool,
		schedules:     schedules,
		recurring:     recurring,
		classes:       classes,
		materializer:  materializer,
		subscriptions: subscriptions,
		zone:          zone,
		logger:        logger,
	}
}

// Create validates the requested slot against the instructor's open-ended
// schedule version and existing commitments, computes the first occurrence,
// creates the commitment with its attendance, and materializes three months
// of occurrences. Everything runs in one transaction.
func (s *CommitmentService) Create(ctx context.Context, in CreateCommitmentInput, asOf time.Time) (*CommitmentResult, error) {
	hour, minute, err := parseCommitmentSlot(in.Weekday, in.StartTime, in.ChildrenIDs)
	if err != nil {
		return nil, err
	}

	active, err := s.subscriptions.ActiveSubscription(ctx, in.SubscriptionID)
	if err != nil {
		return nil, apperr.Storage("check subscription", err)
	}
	if !active {
		return nil, apperr.NotFound("subscription", in.SubscriptionID)
	}

	var result *CommitmentResult
	err = base.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		result, err = s.createInTx(ctx, tx, commitmentSpec{
			instructorID:   in.InstructorID,
			weekday:        time.Weekday(in.Weekday),
			hour:           hour,
			minute:         minute,
			customerID:     in.CustomerID,
			childrenIDs:    in.ChildrenIDs,
			subscriptionID: in.SubscriptionID,
			startDate:      localtime.DateOf(in.StartDate, s.zone),
			groupID:        uuid.New(),
		}, asOf)
		return err
	})
	if err != nil {
		return nil, engineErr("create commitment", err)
	}

	s.logger.Info("Commitment created",
		zap.Int64("recurring_class_id", result.Commitment.ID),
		zap.Int64("instructor_id", in.InstructorID),
		zap.Time("start_at", result.Commitment.StartAt),
		zap.Int("occurrences", len(result.Occurrences)),
	)

	return result, nil
}

// Terminate sets the commitment's exclusive cutoff and deletes every
// materialized occurrence at or after it; attendance rows cascade-delete.
func (s *CommitmentService) Terminate(ctx context.Context, recurringClassID int64, cutoff time.Time) (*model.RecurringClass, error) {
	rc, err := s.recurring.GetByID(ctx, recurringClassID)
	if err != nil {
		return nil, apperr.Storage("get commitment", err)
	}
	if rc == nil {
		return nil, apperr.NotFound("recurring class", recurringClassID)
	}

	err = base.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		return s.terminateInTx(ctx, tx, rc.ID, cutoff)
	})
	if err != nil {
		return nil, engineErr("terminate commitment", err)
	}

	cut := cutoff.UTC()
	rc.EndAt = &cut
	return rc, nil
}

// Replace terminates one commitment exactly at the replacement's first
// occurrence and creates the replacement in the same transaction, reusing the
// original subscription and replacement chain. The new start date must be at
// least seven days out.
func (s *CommitmentService) Replace(ctx context.Context, recurringClassID int64, in ReplaceCommitmentInput, asOf time.Time) (*ReplaceResult, error) {
	hour, minute, err := parseCommitmentSlot(in.Weekday, in.StartTime, in.ChildrenIDs)
	if err != nil {
		return nil, err
	}

	startDate := localtime.DateOf(in.StartDate, s.zone)
	earliest := localtime.DateOf(asOf, s.zone).AddDate(0, 0, replaceNoticeDays)
	if startDate.Before(earliest) {
		return nil, apperr.Conflict(apperr.CodeTooSoon,
			"replacement must start at least %d days out, %s is too soon",
			replaceNoticeDays, startDate.Format("2006-01-02"))
	}

	old, err := s.recurring.GetByID(ctx, recurringClassID)
	if err != nil {
		return nil, apperr.Storage("get commitment", err)
	}
	if old == nil {
		return nil, apperr.NotFound("recurring class", recurringClassID)
	}

	firstOccurrence := localtime.FirstOccurrence(startDate, time.Weekday(in.Weekday), hour, minute, s.zone, asOf)

	var created *CommitmentResult
	err = base.WithinTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.terminateInTx(ctx, tx, old.ID, firstOccurrence); err != nil {
			return err
		}

		created, err = s.createInTx(ctx, tx, commitmentSpec{
			instructorID:   in.InstructorID,
			weekday:        time.Weekday(in.Weekday),
			hour:           hour,
			minute:         minute,
			customerID:     in.CustomerID,
			childrenIDs:    in.ChildrenIDs,
			subscriptionID: old.SubscriptionID,
			startDate:      startDate,
			groupID:        old.GroupID,
		}, asOf)
		return err
	})
	if err != nil {
		return nil, engineErr("replace commitment", err)
	}

	old.EndAt = &firstOccurrence

	s.logger.Info("Commitment replaced",
		zap.Int64("old_recurring_class_id", old.ID),
		zap.Int64("new_recurring_class_id", created.Commitment.ID),
		zap.Time("cutover", firstOccurrence),
	)

	return &ReplaceResult{
		OldCommitment: old,
		NewCommitment: created.Commitment,
		Occurrences:   created.Occurrences,
	}, nil
}

// commitmentSpec is a validated create request, internal to the service.
type commitmentSpec struct {
	instructorID   int64
	weekday        time.Weekday
	hour, minute   int
	customerID     int64
	childrenIDs    []int64
	subscriptionID int64
	startDate      time.Time // normalized date
	groupID        uuid.UUID
}

func (s *CommitmentService) createInTx(ctx context.Context, tx pgx.Tx, req commitmentSpec, asOf time.Time) (*CommitmentResult, error) {
	schedules := s.schedules.WithTx(tx)
	recurring := s.recurring.WithTx(tx)

	offered, err := schedules.HasOpenSlot(ctx, req.instructorID, int(req.weekday), req.hour, req.minute, req.startDate)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, apperr.Conflict(apperr.CodeSlotNotOffered,
			"instructor %d does not offer %s %02d:%02d", req.instructorID, req.weekday, req.hour, req.minute)
	}

	startInstant := localtime.At(req.startDate, 0, 0, s.zone)

	active, err := recurring.ActiveForInstructor(ctx, req.instructorID, startInstant)
	if err != nil {
		return nil, err
	}
	if commitmentClashes(active, req.weekday, req.hour, req.minute, startInstant, s.zone) {
		return nil, apperr.Conflict(apperr.CodeSlotAlreadyCommitted,
			"instructor %d already has a standing commitment at %s %02d:%02d",
			req.instructorID, req.weekday, req.hour, req.minute)
	}

	limit, err := s.subscriptions.WeeklyClassCount(ctx, req.subscriptionID)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		held, err := recurring.CountActiveForSubscription(ctx, req.subscriptionID, startInstant)
		if err != nil {
			return nil, err
		}
		if held >= limit {
			return nil, apperr.Conflict(apperr.CodeWeeklyLimitReached,
				"subscription %d already holds %d of %d weekly commitments", req.subscriptionID, held, limit)
		}
	}

	firstOccurrence := localtime.FirstOccurrence(req.startDate, req.weekday, req.hour, req.minute, s.zone, asOf)

	rc := &model.RecurringClass{
		GroupID:        req.groupID,
		InstructorID:   &req.instructorID,
		CustomerID:     req.customerID,
		SubscriptionID: req.subscriptionID,
		StartAt:        firstOccurrence,
	}
	if err := recurring.Create(ctx, rc); err != nil {
		return nil, err
	}
	if err := recurring.InsertAttendance(ctx, rc.ID, req.childrenIDs); err != nil {
		return nil, err
	}

	occurrences, err := s.materializer.MaterializeWindow(ctx, tx, rc, req.childrenIDs,
		firstOccurrence, firstOccurrence.AddDate(0, materializationMonths, 0))
	if err != nil {
		return nil, err
	}

	return &CommitmentResult{Commitment: rc, Occurrences: occurrences}, nil
}

func (s *CommitmentService) terminateInTx(ctx context.Context, tx pgx.Tx, recurringClassID int64, cutoff time.Time) error {
	if err := s.recurring.WithTx(tx).Terminate(ctx, recurringClassID, cutoff); err != nil {
		return err
	}

	deleted, err := s.classes.WithTx(tx).DeleteForRecurringFrom(ctx, recurringClassID, cutoff)
	if err != nil {
		return err
	}

	s.logger.Info("Commitment terminated",
		zap.Int64("recurring_class_id", recurringClassID),
		zap.Time("cutoff", cutoff),
		zap.Int64("occurrences_deleted", deleted),
	)

	return nil
}

// commitmentClashes reports whether any commitment still active at the given
// instant occupies the requested weekly slot. Each commitment's StartAt is
// projected into loc; the match is on local weekday, hour and minute.
func commitmentClashes(existing []*model.RecurringClass, weekday time.Weekday, hour, minute int, at time.Time, loc *time.Location) bool {
	for _, other := range existing {
		if !other.ActiveAt(at) {
			continue
		}
		local := other.StartAt.In(loc)
		if local.Weekday() == weekday && local.Hour() == hour && local.Minute() == minute {
			return true
		}
	}
	return false
}

func parseCommitmentSlot(weekday int, startTime string, childrenIDs []int64) (hour, minute int, err error) {
	if weekday < 0 || weekday > 6 {
		return 0, 0, apperr.Validation(apperr.CodeInvalidArgument, "weekday %d out of range 0-6", weekday)
	}
	hour, minute, perr := localtime.ParseClock(startTime)
	if perr != nil {
		return 0, 0, apperr.Validation(apperr.CodeInvalidArgument, "invalid start time %q", startTime)
	}
	if len(childrenIDs) == 0 {
		return 0, 0, apperr.Validation(apperr.CodeInvalidArgument, "at least one attending child is required")
	}
	return hour, minute, nil
}
