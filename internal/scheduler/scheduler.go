package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/thesishub/thesishub-api/internal/service"
)

// Scheduler drives the periodic fine enforcement sweep.
type Scheduler struct {
	cron   *cron.Cron
	fines  service.FineEnforcementService
	logger zerolog.Logger
}

// New constructs a scheduler around the fine enforcement service.
func New(fines service.FineEnforcementService, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		fines:  fines,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the sweep on the given cron schedule and begins running it.
// Every run observes a single instant so all projects in a sweep are judged
// against the same clock reading.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		observedAt := time.Now().UTC()

		result, err := s.fines.Sweep(ctx, observedAt)
		if err != nil {
			s.logger.Error().Err(err).Msg("fine sweep run failed")
			return
		}

		s.logger.Info().
			Time("observed_at", result.ObservedAt).
			Int("scanned", result.ProjectsScanned).
			Int("fines_applied", result.FinesApplied).
			Msg("fine sweep run finished")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("fine sweep scheduled")
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
