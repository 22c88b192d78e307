// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

// Package main is the entry point for the Yomistats server.
//
// Yomistats tracks reading activity events (lines of text captured from
// visual novels, books, and other reading material) and turns them into
// per-day statistics: active reading time, speed, session shape, kanji
// frequency, and per-title breakdowns.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables and config file (Koanf v2)
//  2. Database: DuckDB with the events, rollups, and jobs tables
//  3. Statistics engine: rollup building and range queries
//  4. Job scheduler: daily rollup and database maintenance jobs
//  5. Supervisor tree: suture-managed lifecycle for the above
//
// On startup the engine backfills rollups for any past days that have
// events but no stored rollup, so statistics are complete even after
// downtime.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. See config.example.yaml for every key.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the scheduler
// finishes any in-flight job pass, the database checkpoints its WAL, and
// the process exits.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yomistats/yomistats/internal/config"
	"github.com/yomistats/yomistats/internal/database"
	"github.com/yomistats/yomistats/internal/logging"
	"github.com/yomistats/yomistats/internal/models"
	"github.com/yomistats/yomistats/internal/scheduler"
	"github.com/yomistats/yomistats/internal/stats"
	"github.com/yomistats/yomistats/internal/supervisor"
	"github.com/yomistats/yomistats/internal/supervisor/services"
)

const (
	jobDailyRollup  = "daily-rollup"
	jobDBCheckpoint = "db-checkpoint"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Float64("afk_gap_secs", cfg.Stats.AFKGapSeconds).
		Float64("session_gap_secs", cfg.Stats.SessionGapSeconds).
		Msg("Starting Yomistats")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := stats.New(db, cfg.Stats, time.Local)

	// Catch up on rollups missed while the process was down. Per-date
	// failures are logged inside the pass; an error here means the pass
	// was aborted by a store failure.
	if built, err := engine.BackfillRollups(ctx); err != nil {
		logging.Warn().Err(err).Int("built", built).Msg("Rollup backfill aborted")
	} else if built > 0 {
		logging.Info().Int("built", built).Msg("Rollup backfill complete")
	}

	sched, err := setupScheduler(ctx, db, engine, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to set up scheduler")
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddJobService(services.NewSchedulerService(sched))
	logging.Info().Msg("Scheduler added to supervisor tree")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// setupScheduler seeds the persisted jobs and binds their handlers.
//
// Both jobs are seeded due-now: the first pass runs them immediately and
// then advances each onto its regular schedule.
func setupScheduler(ctx context.Context, db *database.DB, engine *stats.Engine, cfg *config.Config) (*scheduler.Scheduler, error) {
	now := time.Now()
	seeds := []models.Job{
		{Name: jobDailyRollup, ScheduleKind: models.ScheduleDaily, Enabled: true, NextRun: &now},
		{Name: jobDBCheckpoint, ScheduleKind: models.ScheduleHourly, Enabled: true, NextRun: &now},
	}
	for _, job := range seeds {
		if err := db.EnsureJob(ctx, job); err != nil {
			return nil, err
		}
	}

	sched := scheduler.New(db, cfg.Scheduler, time.Local)

	// The daily pass completes even when single dates fail to build; only
	// a store-level abort leaves the job due for retry.
	if err := sched.Register(jobDailyRollup, func(ctx context.Context) error {
		_, err := engine.BackfillRollups(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	if err := sched.Register(jobDBCheckpoint, db.Checkpoint); err != nil {
		return nil, err
	}

	return sched, nil
}
