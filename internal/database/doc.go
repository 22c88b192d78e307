// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

// Package database provides DuckDB-backed persistence for the statistics
// engine: the append-only reading-event log, the per-day rollup table, and
// the scheduler's job registry.
//
// The store never computes statistics. Callers hand it fully-formed
// DailyStats records; range reads return them in date order. Collection
// fields are serialized as JSON text columns; a corrupt stored collection
// degrades to its identity value with an out-of-band FieldWarning instead
// of failing the whole read.
package database
