package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/lessonloop/scheduler/internal/apperr"
	"github.com/lessonloop/scheduler/internal/service"
)

// extensionCronSpec fires at 03:00 on the first of every month, in the
// configured scheduling timezone.
const extensionCronSpec = "0 3 1 * *"

// Scheduler drives the rolling extension job: once a month it extends
// materialization for all still-active commitments into the newly-opened
// month. Transient storage failures are retried with backoff; the job is
// idempotent, so a retry never duplicates occurrences.
type Scheduler struct {
	cron      *cron.Cron
	extension *service.ExtensionService
	zone      *time.Location
	logger    *zap.Logger
}

func NewScheduler(extension *service.ExtensionService, zone *time.Location, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(zone)),
		extension: extension,
		zone:      zone,
		logger:    logger,
	}
}

// Start registers the monthly job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(extensionCronSpec, func() {
		now := time.Now().In(s.zone)
		s.RunOnce(ctx, now.Year(), now.Month())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Monthly extension scheduler started", zap.String("cron", extensionCronSpec))
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Monthly extension scheduler stopped")
}

// RunOnce extends the given month, retrying transient storage failures.
func (s *Scheduler) RunOnce(ctx context.Context, year int, month time.Month) {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(2*time.Second))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		affected, err := s.extension.ExtendMonth(ctx, year, month)
		if err != nil {
			if apperr.IsStorage(err) {
				return retry.RetryableError(err)
			}
			return err
		}

		s.logger.Info("Extension run completed",
			zap.Int("year", year),
			zap.String("month", month.String()),
			zap.Int("commitments_extended", len(affected)),
		)
		return nil
	})
	if err != nil {
		s.logger.Error("Extension run failed",
			zap.Int("year", year),
			zap.String("month", month.String()),
			zap.Error(err),
		)
	}
}
