/**
 * @description
 * Cron scheduler setup for the in-process payout run job.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/retreatbase/payout-service/internal/domain"
	"github.com/robfig/cron/v3"
)

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	service *Service
	logger  *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(service *Service, logger *slog.Logger) *Jobs {
	return &Jobs{service: service, logger: logger}
}

// ProcessDuePayouts runs all payouts due as of now. Scheduled in-process and
// also reachable through the external cron trigger endpoint.
func (j *Jobs) ProcessDuePayouts() {
	j.logger.Info("starting payout run job")
	ctx := context.Background()

	summary, err := j.service.RunPayouts(ctx, domain.PayoutRunRequest{ProcessAllDue: true})
	if err != nil {
		j.logger.Error("payout run job failed", "error", err)
		return
	}

	j.logger.Info("payout run job finished",
		"run_id", summary.RunID,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"total", summary.Total,
	)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	jobs     *Jobs
	logger   *slog.Logger
	schedule string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		jobs:     jobs,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.jobs.ProcessDuePayouts); err != nil {
		s.logger.Error("failed to schedule payout run job", "error", err)
	} else {
		s.logger.Info("scheduled payout run job", "schedule", s.schedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
