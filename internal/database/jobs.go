// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yomistats/yomistats/internal/metrics"
	"github.com/yomistats/yomistats/internal/models"
)

// EnsureJob seeds a job row if it does not exist yet. An existing row keeps
// its schedule state untouched, so restarting the server never resets
// last_run/next_run or re-enables a finished "once" job.
func (db *DB) EnsureJob(ctx context.Context, job models.Job) (err error) {
	if !job.ScheduleKind.Valid() {
		return fmt.Errorf("job %s: unknown schedule kind %q", job.Name, job.ScheduleKind)
	}
	started := time.Now()
	defer func() { metrics.RecordDBQuery("ensure", "jobs", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO jobs (name, schedule_kind, enabled, last_run, next_run)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		job.Name, string(job.ScheduleKind), job.Enabled,
		nullableTime(job.LastRun), nullableTime(job.NextRun))
	if err != nil {
		return fmt.Errorf("failed to ensure job %s: %w", job.Name, err)
	}
	return nil
}

// GetJob returns one job by name, or ErrNotFound.
func (db *DB) GetJob(ctx context.Context, name string) (_ *models.Job, err error) {
	started := time.Now()
	defer func() { metrics.RecordDBQuery("select", "jobs", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT name, schedule_kind, enabled, last_run, next_run
		FROM jobs WHERE name = ?`, name)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job %s: %w", name, err)
	}
	return job, nil
}

// GetDueJobs returns the enabled jobs whose next_run is at or before now,
// ordered by next_run ascending. Disabled jobs never appear, even with a
// next_run in the past.
func (db *DB) GetDueJobs(ctx context.Context, now time.Time) (_ []models.Job, err error) {
	started := time.Now()
	defer func() { metrics.RecordDBQuery("select_due", "jobs", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT name, schedule_kind, enabled, last_run, next_run
		FROM jobs
		WHERE enabled AND next_run IS NOT NULL AND next_run <= ?
		ORDER BY next_run ASC`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query due jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}

// UpdateJobRun records an execution: last_run, the recomputed next_run
// (nil for terminal jobs), and the enabled flag.
func (db *DB) UpdateJobRun(ctx context.Context, name string, lastRun time.Time, nextRun *time.Time, enabled bool) (err error) {
	started := time.Now()
	defer func() { metrics.RecordDBQuery("update_run", "jobs", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE jobs SET last_run = ?, next_run = ?, enabled = ? WHERE name = ?`,
		lastRun.UTC(), nullableTime(nextRun), enabled, name)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", name, ErrNotFound)
	}
	return nil
}

// SetJobEnabled toggles a job without touching its schedule state.
func (db *DB) SetJobEnabled(ctx context.Context, name string, enabled bool) (err error) {
	started := time.Now()
	defer func() { metrics.RecordDBQuery("set_enabled", "jobs", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE jobs SET enabled = ? WHERE name = ?`, enabled, name)
	if err != nil {
		return fmt.Errorf("failed to set job %s enabled: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", name, ErrNotFound)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*models.Job, error) {
	var (
		job     models.Job
		kind    string
		lastRun sql.NullTime
		nextRun sql.NullTime
	)
	if err := s.Scan(&job.Name, &kind, &job.Enabled, &lastRun, &nextRun); err != nil {
		return nil, err
	}
	job.ScheduleKind = models.ScheduleKind(kind)
	if lastRun.Valid {
		t := lastRun.Time
		job.LastRun = &t
	}
	if nextRun.Valid {
		t := nextRun.Time
		job.NextRun = &t
	}
	return &job, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
