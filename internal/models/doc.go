// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

// Package models defines the shared data types of the statistics engine:
// raw reading events, per-day aggregate records, and scheduler jobs.
//
// The types here carry no behavior beyond trivial accessors. All
// aggregation logic lives in internal/analyzer and internal/aggregate.
package models
