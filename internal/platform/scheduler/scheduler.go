// Package scheduler runs the recurring background work: the daily reminder
// dispatch, clinic summary emails, overdue follow-up sweeps and log cleanup.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// jobTimeout bounds a single job run so a stuck provider cannot hold a
// cron slot forever.
const jobTimeout = 10 * time.Minute

// Scheduler wraps a cron runner with per-job logging and timeouts.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Add registers a job under a standard five-field cron spec.
func (s *Scheduler) Add(spec, name string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("scheduled job failed")
			return
		}
		s.logger.Info().
			Str("job", name).
			Dur("elapsed", time.Since(start)).
			Msg("scheduled job completed")
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop halts scheduling and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
