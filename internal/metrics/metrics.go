// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration
// This package provides instrumentation for:
// - Rollup builds and failures
// - Live aggregate computation latency
// - Scheduler passes and forced runs
// - Database query performance (DuckDB)

var (
	// Rollup Metrics
	RollupBuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yomistats_rollup_builds_total",
			Help: "Total number of daily rollup builds",
		},
	)

	RollupBuildFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yomistats_rollup_build_failures_total",
			Help: "Total number of failed daily rollup builds",
		},
	)

	RollupBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yomistats_rollup_build_duration_seconds",
			Help:    "Duration of daily rollup builds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Live Aggregate Metrics
	LiveComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "yomistats_live_compute_duration_seconds",
			Help:    "Duration of live (today) aggregate computation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RollupDecodeWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yomistats_rollup_decode_warnings_total",
			Help: "Total number of rollup collection fields that failed to decode",
		},
		[]string{"field"},
	)

	// Scheduler Metrics
	SchedulerPassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yomistats_scheduler_passes_total",
			Help: "Total number of scheduler polling passes",
		},
	)

	SchedulerJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yomistats_scheduler_job_runs_total",
			Help: "Total number of scheduled job executions",
		},
		[]string{"job", "outcome"}, // outcome: "success", "failure"
	)

	SchedulerForcedRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yomistats_scheduler_forced_runs_total",
			Help: "Total number of forced (out-of-schedule) job executions",
		},
		[]string{"job"},
	)

	SchedulerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yomistats_scheduler_job_duration_seconds",
			Help:    "Duration of scheduled job executions in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yomistats_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yomistats_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)
)

// RecordRollupBuild records a daily rollup build result.
func RecordRollupBuild(duration time.Duration, err error) {
	RollupBuildsTotal.Inc()
	RollupBuildDuration.Observe(duration.Seconds())
	if err != nil {
		RollupBuildFailures.Inc()
	}
}

// RecordLiveCompute records a live aggregate computation.
func RecordLiveCompute(duration time.Duration) {
	LiveComputeDuration.Observe(duration.Seconds())
}

// RecordDecodeWarning records a rollup collection field that failed to decode.
func RecordDecodeWarning(field string) {
	RollupDecodeWarnings.WithLabelValues(field).Inc()
}

// RecordJobRun records a scheduled job execution result.
func RecordJobRun(job string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	SchedulerJobRuns.WithLabelValues(job, outcome).Inc()
	SchedulerJobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordForcedRun records a forced job execution request.
func RecordForcedRun(job string) {
	SchedulerForcedRuns.WithLabelValues(job).Inc()
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
