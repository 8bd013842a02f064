// Package scheduler runs the periodic maintenance jobs: deferred
// notification replay, the missed check sweep and retention pruning.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"disco-backend/internal/config"
)

// Jobs are the periodic tasks wired in from the service layer.
type Jobs struct {
	ReplayQueue       func(ctx context.Context) error
	SweepMissedChecks func(ctx context.Context) error
	PruneLocations    func(ctx context.Context, cutoff time.Time) error
	PruneRateLimits   func(ctx context.Context, cutoff time.Time) error
}

// Scheduler owns the cron runner. Panicking jobs are recovered, never fatal.
type Scheduler struct {
	c         *cron.Cron
	cfg       config.SchedulerConfig
	jobs      Jobs
	retention time.Duration
}

func New(cfg config.SchedulerConfig, jobs Jobs) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	return &Scheduler{
		c:         c,
		cfg:       cfg,
		jobs:      jobs,
		retention: time.Duration(cfg.RetentionHours) * time.Hour,
	}
}

// Start registers all jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.c.AddFunc(s.cfg.QueueReplaySpec, s.runReplay); err != nil {
		return err
	}
	if _, err := s.c.AddFunc(s.cfg.MissedCheckSpec, s.runSweep); err != nil {
		return err
	}
	if _, err := s.c.AddFunc(s.cfg.RetentionSpec, s.runRetention); err != nil {
		return err
	}
	s.c.Start()
	log.Info().
		Str("queueReplay", s.cfg.QueueReplaySpec).
		Str("missedChecks", s.cfg.MissedCheckSpec).
		Str("retention", s.cfg.RetentionSpec).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.c.Stop()
	<-ctx.Done()
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runReplay() {
	if err := s.jobs.ReplayQueue(context.Background()); err != nil {
		log.Error().Err(err).Msg("Deferred notification replay failed")
	}
}

func (s *Scheduler) runSweep() {
	if err := s.jobs.SweepMissedChecks(context.Background()); err != nil {
		log.Error().Err(err).Msg("Missed check sweep failed")
	}
}

func (s *Scheduler) runRetention() {
	cutoff := time.Now().Add(-s.retention)
	if err := s.jobs.PruneLocations(context.Background(), cutoff); err != nil {
		log.Error().Err(err).Msg("Location retention prune failed")
	}
	if err := s.jobs.PruneRateLimits(context.Background(), cutoff); err != nil {
		log.Error().Err(err).Msg("Rate limit prune failed")
	}
}
