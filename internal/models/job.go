// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package models

import "time"

// ScheduleKind selects the next-run rule for a job.
type ScheduleKind string

const (
	ScheduleOnce     ScheduleKind = "once"
	ScheduleMinutely ScheduleKind = "minutely"
	ScheduleHourly   ScheduleKind = "hourly"
	ScheduleDaily    ScheduleKind = "daily"
	ScheduleWeekly   ScheduleKind = "weekly"
	ScheduleMonthly  ScheduleKind = "monthly"
	ScheduleYearly   ScheduleKind = "yearly"
)

// Valid reports whether k is a known schedule kind.
func (k ScheduleKind) Valid() bool {
	switch k {
	case ScheduleOnce, ScheduleMinutely, ScheduleHourly, ScheduleDaily,
		ScheduleWeekly, ScheduleMonthly, ScheduleYearly:
		return true
	}
	return false
}

// Job is a persisted scheduler entry. Jobs are created at setup time and
// mutated only by the scheduler after an execution. A "once" job disables
// itself after running; that state is terminal.
type Job struct {
	Name         string       `json:"name"`
	ScheduleKind ScheduleKind `json:"schedule_kind"`
	Enabled      bool         `json:"enabled"`
	LastRun      *time.Time   `json:"last_run,omitempty"`
	NextRun      *time.Time   `json:"next_run,omitempty"`
}

// Due reports whether the job should run at the given instant. Disabled
// jobs are never due, regardless of next_run.
func (j Job) Due(now time.Time) bool {
	if !j.Enabled || j.NextRun == nil {
		return false
	}
	return !now.Before(*j.NextRun)
}
