// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package database

import "fmt"

// createTables creates the schema if it does not exist yet. All statements
// are idempotent; opening the same file twice is safe.
func (db *DB) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reading_events (
			id VARCHAR PRIMARY KEY,
			entity_id VARCHAR,
			entity_title VARCHAR,
			text VARCHAR NOT NULL,
			ts BIGINT NOT NULL,
			has_screenshot BOOLEAN NOT NULL DEFAULT FALSE,
			has_audio BOOLEAN NOT NULL DEFAULT FALSE,
			has_translation BOOLEAN NOT NULL DEFAULT FALSE,
			card_created BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reading_events_ts ON reading_events(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_reading_events_entity ON reading_events(entity_id, ts)`,

		// One row per local calendar date. Scalar fields are columns;
		// collection fields are JSON text decoded on read.
		`CREATE TABLE IF NOT EXISTS daily_rollups (
			date VARCHAR PRIMARY KEY,
			total_lines BIGINT NOT NULL DEFAULT 0,
			total_chars BIGINT NOT NULL DEFAULT 0,
			total_sessions BIGINT NOT NULL DEFAULT 0,
			sessions_started BIGINT NOT NULL DEFAULT 0,
			sessions_completed BIGINT NOT NULL DEFAULT 0,
			screenshot_count BIGINT NOT NULL DEFAULT 0,
			audio_count BIGINT NOT NULL DEFAULT 0,
			translation_count BIGINT NOT NULL DEFAULT 0,
			cards_created BIGINT NOT NULL DEFAULT 0,
			longest_session_secs DOUBLE NOT NULL DEFAULT 0,
			shortest_session_secs DOUBLE NOT NULL DEFAULT 0,
			peak_hourly_speed DOUBLE NOT NULL DEFAULT 0,
			max_session_chars BIGINT NOT NULL DEFAULT 0,
			max_session_secs DOUBLE NOT NULL DEFAULT 0,
			active_secs DOUBLE NOT NULL DEFAULT 0,
			avg_speed DOUBLE NOT NULL DEFAULT 0,
			avg_session_secs DOUBLE NOT NULL DEFAULT 0,
			entities VARCHAR NOT NULL DEFAULT '[]',
			kanji_freq VARCHAR NOT NULL DEFAULT '{}',
			hourly_chars VARCHAR NOT NULL DEFAULT '{}',
			hourly_speed VARCHAR NOT NULL DEFAULT '{}',
			entity_stats VARCHAR NOT NULL DEFAULT '{}',
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jobs (
			name VARCHAR PRIMARY KEY,
			schedule_kind VARCHAR NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			last_run TIMESTAMP,
			next_run TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
