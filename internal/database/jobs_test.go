// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yomistats/yomistats/internal/models"
)

var jobsNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestEnsureJobSeedsOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	due := jobsNow.Add(-time.Hour)
	if err := db.EnsureJob(ctx, models.Job{
		Name: "daily-rollup", ScheduleKind: models.ScheduleDaily, Enabled: true, NextRun: &due,
	}); err != nil {
		t.Fatalf("EnsureJob failed: %v", err)
	}

	// Simulate a completed run, then a process restart re-running EnsureJob.
	next := jobsNow.Add(12 * time.Hour)
	if err := db.UpdateJobRun(ctx, "daily-rollup", jobsNow, &next, true); err != nil {
		t.Fatalf("UpdateJobRun failed: %v", err)
	}
	if err := db.EnsureJob(ctx, models.Job{
		Name: "daily-rollup", ScheduleKind: models.ScheduleDaily, Enabled: true, NextRun: &due,
	}); err != nil {
		t.Fatalf("Second EnsureJob failed: %v", err)
	}

	job, err := db.GetJob(ctx, "daily-rollup")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.NextRun == nil || !job.NextRun.Equal(next) {
		t.Errorf("EnsureJob clobbered schedule state: next_run = %v, want %v", job.NextRun, next)
	}
	if job.LastRun == nil || !job.LastRun.Equal(jobsNow) {
		t.Errorf("last_run = %v, want %v", job.LastRun, jobsNow)
	}
}

func TestEnsureJobRejectsUnknownKind(t *testing.T) {
	db := newTestDB(t)
	err := db.EnsureJob(context.Background(), models.Job{Name: "bad", ScheduleKind: "fortnightly"})
	if err == nil {
		t.Error("Expected error for unknown schedule kind")
	}
}

func TestGetJobNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetJob(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetDueJobsFiltersAndOrders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	older := jobsNow.Add(-2 * time.Hour)
	newer := jobsNow.Add(-time.Hour)
	future := jobsNow.Add(time.Hour)

	seeds := []models.Job{
		{Name: "newer", ScheduleKind: models.ScheduleHourly, Enabled: true, NextRun: &newer},
		{Name: "older", ScheduleKind: models.ScheduleHourly, Enabled: true, NextRun: &older},
		{Name: "future", ScheduleKind: models.ScheduleHourly, Enabled: true, NextRun: &future},
		{Name: "disabled", ScheduleKind: models.ScheduleHourly, Enabled: false, NextRun: &older},
		{Name: "no-next-run", ScheduleKind: models.ScheduleOnce, Enabled: true},
	}
	for _, job := range seeds {
		if err := db.EnsureJob(ctx, job); err != nil {
			t.Fatalf("EnsureJob(%s) failed: %v", job.Name, err)
		}
	}

	due, err := db.GetDueJobs(ctx, jobsNow)
	if err != nil {
		t.Fatalf("GetDueJobs failed: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("Got %d due jobs, want 2: %+v", len(due), due)
	}
	if due[0].Name != "older" || due[1].Name != "newer" {
		t.Errorf("Due jobs not ordered by next_run: %s, %s", due[0].Name, due[1].Name)
	}
}

func TestUpdateJobRunTerminal(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	due := jobsNow.Add(-time.Minute)
	if err := db.EnsureJob(ctx, models.Job{
		Name: "one-shot", ScheduleKind: models.ScheduleOnce, Enabled: true, NextRun: &due,
	}); err != nil {
		t.Fatalf("EnsureJob failed: %v", err)
	}

	// A "once" job finishes with no next run and disabled.
	if err := db.UpdateJobRun(ctx, "one-shot", jobsNow, nil, false); err != nil {
		t.Fatalf("UpdateJobRun failed: %v", err)
	}

	job, err := db.GetJob(ctx, "one-shot")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Enabled {
		t.Error("Job still enabled after terminal update")
	}
	if job.NextRun != nil {
		t.Errorf("next_run = %v, want nil", job.NextRun)
	}

	due2, err := db.GetDueJobs(ctx, jobsNow.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("GetDueJobs failed: %v", err)
	}
	if len(due2) != 0 {
		t.Errorf("Terminal job still due: %+v", due2)
	}
}

func TestUpdateJobRunNotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.UpdateJobRun(context.Background(), "missing", jobsNow, nil, false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSetJobEnabled(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	due := jobsNow.Add(-time.Minute)
	if err := db.EnsureJob(ctx, models.Job{
		Name: "toggle", ScheduleKind: models.ScheduleHourly, Enabled: true, NextRun: &due,
	}); err != nil {
		t.Fatalf("EnsureJob failed: %v", err)
	}

	if err := db.SetJobEnabled(ctx, "toggle", false); err != nil {
		t.Fatalf("SetJobEnabled failed: %v", err)
	}
	job, err := db.GetJob(ctx, "toggle")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Enabled {
		t.Error("Job still enabled after SetJobEnabled(false)")
	}
	if job.NextRun == nil || !job.NextRun.Equal(due) {
		t.Errorf("SetJobEnabled touched next_run: %v", job.NextRun)
	}

	if err := db.SetJobEnabled(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
