package service

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lessonloop/scheduler/internal/repository"
)

// Engine bundles the scheduling engine's operations: the schedule store,
// the availability resolver, the commitment manager, and the rolling
// extension. Surrounding flows (HTTP handlers, admin tooling) consume these
// services directly; the engine has no wire protocol of its own.
type Engine struct {
	Schedules    *ScheduleService
	Availability *AvailabilityService
	Commitments  *CommitmentService
	Extension    *ExtensionService
}

func NewEngine(pool *pgxpool.Pool, subscriptions SubscriptionDirectory, zone *time.Location, logger *zap.Logger) *Engine {
	scheduleRepo := repository.NewScheduleRepository(pool)
	absenceRepo := repository.NewAbsenceRepository(pool)
	recurringRepo := repository.NewRecurringClassRepository(pool)
	classRepo := repository.NewClassRepository(pool)

	materializer := NewMaterializer(classRepo, absenceRepo, logger)

	return &Engine{
		Schedules:    NewScheduleService(pool, scheduleRepo, zone, logger),
		Availability: NewAvailabilityService(scheduleRepo, absenceRepo, classRepo, zone, logger),
		Commitments: NewCommitmentService(pool, scheduleRepo, recurringRepo, classRepo,
			materializer, subscriptions, zone, logger),
		Extension: NewExtensionService(pool, recurringRepo, classRepo, materializer, zone, logger),
	}
}
