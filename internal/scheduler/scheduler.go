// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

// Package scheduler runs persisted maintenance jobs on a single cooperative
// loop. One goroutine polls for due jobs on a fixed interval, executes them
// in next-run order, and advances each job's schedule; out-of-schedule runs
// requested via ForceRun join a FIFO queue that the same loop drains. With
// exactly one executor there is never more than one job in flight, so
// handlers need no internal locking against each other.
//
// The scheduler integrates with the supervisor tree for lifecycle
// management.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yomistats/yomistats/internal/config"
	"github.com/yomistats/yomistats/internal/logging"
	"github.com/yomistats/yomistats/internal/metrics"
	"github.com/yomistats/yomistats/internal/models"
)

// Store defines the database operations required by the scheduler. Forced
// runs are validated against the registered handler map, not the store, so
// the loop only ever reads due jobs and writes run results.
type Store interface {
	GetDueJobs(ctx context.Context, now time.Time) ([]models.Job, error)
	UpdateJobRun(ctx context.Context, name string, lastRun time.Time, nextRun *time.Time, enabled bool) error
}

// JobFunc is the body of a job. A returned error marks the run failed; the
// job's schedule is not advanced, so it stays due and is retried on the
// next polling pass.
type JobFunc func(ctx context.Context) error

// Scheduler executes registered jobs according to their persisted schedule.
type Scheduler struct {
	store  Store
	cfg    config.SchedulerConfig
	loc    *time.Location
	logger zerolog.Logger

	// now is the clock. Overridable in tests.
	now func() time.Time

	jobs map[string]JobFunc

	// Runtime state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// pending is the FIFO queue of forced runs, deduplicated by name.
	// wakeCh nudges the loop when the queue becomes non-empty.
	pending    []string
	pendingSet map[string]struct{}
	wakeCh     chan struct{}

	// passMu makes a polling pass single-flight.
	passMu sync.Mutex
}

// New creates a scheduler. Jobs must be registered before Start. A nil
// location defaults to time.Local.
func New(store Store, cfg config.SchedulerConfig, loc *time.Location) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		store:      store,
		cfg:        cfg,
		loc:        loc,
		logger:     logging.With().Str("component", "scheduler").Logger(),
		now:        time.Now,
		jobs:       map[string]JobFunc{},
		pendingSet: map[string]struct{}{},
		wakeCh:     make(chan struct{}, 1),
	}
}

// Register binds a handler to a persisted job name. Registering while the
// scheduler is running is an error; the loop reads the map without locks.
func (s *Scheduler) Register(name string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("cannot register job %q: scheduler already running", name)
	}
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	s.jobs[name] = fn
	return nil
}

// ForceRun queues an immediate out-of-schedule execution of the named job.
// The run bypasses the due check and does not advance the job's schedule.
// Queueing is idempotent: a job already waiting in the queue is not queued
// twice.
func (s *Scheduler) ForceRun(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	if _, queued := s.pendingSet[name]; queued {
		return nil
	}
	s.pending = append(s.pending, name)
	s.pendingSet[name] = struct{}{}
	metrics.RecordForcedRun(name)

	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.cfg.Enabled {
		s.logger.Info().Msg("Scheduler disabled")
		go func() {
			defer close(s.doneCh)
			<-s.stopCh
		}()
		return nil
	}

	s.logger.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Int("jobs", len(s.jobs)).
		Msg("Starting scheduler")

	go s.run(ctx)
	return nil
}

// Stop stops the scheduler loop and waits for any in-flight pass to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping scheduler...")
	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.pass(ctx)

	for {
		select {
		case <-ticker.C:
			s.pass(ctx)
		case <-s.wakeCh:
			s.pass(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// pass executes one scheduling pass: first every queued forced run in FIFO
// order, then every due job in next-run order. Passes are single-flight.
func (s *Scheduler) pass(ctx context.Context) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	metrics.SchedulerPassesTotal.Inc()
	now := s.now()

	for _, name := range s.takePending() {
		s.logger.Info().Str("job", name).Msg("Running forced job")
		s.execute(ctx, name)
	}

	jobs, err := s.store.GetDueJobs(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get due jobs")
		return
	}

	for _, job := range jobs {
		if _, ok := s.jobs[job.Name]; !ok {
			s.logger.Warn().Str("job", job.Name).Msg("Due job has no registered handler")
			continue
		}
		if err := s.execute(ctx, job.Name); err != nil {
			// The schedule was not advanced; the job stays due and is
			// retried on the next pass.
			continue
		}
		s.advance(ctx, job, now)
	}
}

// takePending snapshots and clears the forced-run queue.
func (s *Scheduler) takePending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.pending
	s.pending = nil
	s.pendingSet = map[string]struct{}{}
	return pending
}

// execute runs one job body and records the outcome.
func (s *Scheduler) execute(ctx context.Context, name string) error {
	fn := s.jobs[name]
	started := time.Now()
	err := fn(ctx)
	metrics.RecordJobRun(name, time.Since(started), err)

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("job", name).
			Dur("duration", time.Since(started)).
			Msg("Job failed")
		return err
	}
	s.logger.Debug().
		Str("job", name).
		Dur("duration", time.Since(started)).
		Msg("Job completed")
	return nil
}

// advance persists a successful run: last_run becomes now and next_run
// follows the job's schedule kind. A "once" job is disabled instead; that
// state is terminal.
func (s *Scheduler) advance(ctx context.Context, job models.Job, now time.Time) {
	nextRun, enabled := s.nextRun(job.ScheduleKind, now)
	if err := s.store.UpdateJobRun(ctx, job.Name, now, nextRun, enabled); err != nil {
		s.logger.Error().Err(err).Str("job", job.Name).Msg("Failed to update job schedule")
	}
}

// nextRun computes the next execution time for a schedule kind.
//
//	once               -> never again (job disabled)
//	minutely / hourly  -> one unit after the run
//	daily              -> one minute past the next local midnight
//	weekly / monthly / yearly -> 7 / 30 / 365 days ahead, at the
//	                      configured local hour
func (s *Scheduler) nextRun(kind models.ScheduleKind, now time.Time) (*time.Time, bool) {
	local := now.In(s.loc)
	var next time.Time

	switch kind {
	case models.ScheduleOnce:
		return nil, false
	case models.ScheduleMinutely:
		next = now.Add(time.Minute)
	case models.ScheduleHourly:
		next = now.Add(time.Hour)
	case models.ScheduleDaily:
		midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
		next = midnight.Add(time.Minute)
	case models.ScheduleWeekly:
		next = s.atRunHour(local.AddDate(0, 0, 7))
	case models.ScheduleMonthly:
		next = s.atRunHour(local.AddDate(0, 0, 30))
	case models.ScheduleYearly:
		next = s.atRunHour(local.AddDate(0, 0, 365))
	default:
		// Unknown kinds cannot recur; treat like once.
		s.logger.Error().Str("kind", string(kind)).Msg("Unknown schedule kind, disabling job")
		return nil, false
	}
	return &next, true
}

func (s *Scheduler) atRunHour(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.cfg.RunAtHour, 0, 0, 0, s.loc)
}
