// Package sched runs pipeline sessions on a cron schedule.
package sched

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	apperrors "bess-trader/internal/errors"
	"bess-trader/internal/logging"
)

// Scheduler manages scheduled pipeline runs.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// New creates a scheduler. Schedules use the six-field cron format with
// a leading seconds field.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logging.WithComponent(logger, "scheduler"),
	}
}

// AddJob registers fn under the given cron spec.
func (s *Scheduler) AddJob(spec, name string, fn func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Debug().Str("job", name).Msg("Job started")
		fn()
		s.logger.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("Job finished")
	})
	if err != nil {
		return apperrors.Wrapf(err, "adding job %s", name)
	}

	s.logger.Info().Str("job", name).Str("schedule", spec).Msg("Job registered")
	return nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// JobCount returns the number of registered jobs.
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
