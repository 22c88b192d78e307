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

	json "github.com/goccy/go-json"

	"github.com/yomistats/yomistats/internal/logging"
	"github.com/yomistats/yomistats/internal/metrics"
	"github.com/yomistats/yomistats/internal/models"
)

// UpsertRollup stores the DailyStats record for a date, replacing any
// existing row. The operation is idempotent: recomputing and overwriting a
// date with unchanged inputs stores an identical row. The store never
// computes; the caller supplies a fully-formed record.
func (db *DB) UpsertRollup(ctx context.Context, date string, stats models.DailyStats) (err error) {
	if _, err := time.Parse(models.DateFormat, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	started := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "daily_rollups", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	entities, err := json.Marshal(stats.Entities)
	if err != nil {
		return fmt.Errorf("failed to encode entities: %w", err)
	}
	kanjiFreq, err := json.Marshal(stats.KanjiFreq)
	if err != nil {
		return fmt.Errorf("failed to encode kanji_freq: %w", err)
	}
	hourlyChars, err := json.Marshal(stats.HourlyChars)
	if err != nil {
		return fmt.Errorf("failed to encode hourly_chars: %w", err)
	}
	hourlySpeed, err := json.Marshal(stats.HourlySpeed)
	if err != nil {
		return fmt.Errorf("failed to encode hourly_speed: %w", err)
	}
	entityStats, err := json.Marshal(stats.EntityStats)
	if err != nil {
		return fmt.Errorf("failed to encode entity_stats: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO daily_rollups (
			date,
			total_lines, total_chars, total_sessions,
			sessions_started, sessions_completed,
			screenshot_count, audio_count, translation_count, cards_created,
			longest_session_secs, shortest_session_secs, peak_hourly_speed,
			max_session_chars, max_session_secs,
			active_secs, avg_speed, avg_session_secs,
			entities, kanji_freq, hourly_chars, hourly_speed, entity_stats,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		date,
		stats.TotalLines, stats.TotalChars, stats.TotalSessions,
		stats.SessionsStarted, stats.SessionsCompleted,
		stats.ScreenshotCount, stats.AudioCount, stats.TranslationCount, stats.CardsCreated,
		stats.LongestSessionSecs, stats.ShortestSessionSecs, stats.PeakHourlySpeed,
		stats.MaxSessionChars, stats.MaxSessionSecs,
		stats.ActiveSecs, stats.AvgSpeed, stats.AvgSessionSecs,
		string(entities), string(kanjiFreq), string(hourlyChars), string(hourlySpeed), string(entityStats),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rollup for %s: %w", date, err)
	}
	return nil
}

// GetRollup returns the stored record for one date, or ErrNotFound.
func (db *DB) GetRollup(ctx context.Context, date string) (*models.DailyStats, []models.FieldWarning, error) {
	stats, warnings, err := db.GetRollupRange(ctx, date, date)
	if err != nil {
		return nil, nil, err
	}
	if len(stats) == 0 {
		return nil, nil, fmt.Errorf("rollup for %s: %w", date, ErrNotFound)
	}
	return &stats[0], warnings, nil
}

// GetRollupRange returns the stored records with startDate <= date <=
// endDate, ordered by date.
//
// Corrupt collection columns degrade rather than fail: the affected field
// becomes its identity value (empty map or set) and a FieldWarning is
// returned alongside, while the row's scalar fields still merge normally.
func (db *DB) GetRollupRange(ctx context.Context, startDate, endDate string) (_ []models.DailyStats, _ []models.FieldWarning, err error) {
	if _, err := time.Parse(models.DateFormat, startDate); err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidDate, startDate)
	}
	if _, err := time.Parse(models.DateFormat, endDate); err != nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidDate, endDate)
	}
	if startDate > endDate {
		return nil, nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, startDate, endDate)
	}
	started := time.Now()
	defer func() { metrics.RecordDBQuery("select_range", "daily_rollups", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT date,
		       total_lines, total_chars, total_sessions,
		       sessions_started, sessions_completed,
		       screenshot_count, audio_count, translation_count, cards_created,
		       longest_session_secs, shortest_session_secs, peak_hourly_speed,
		       max_session_chars, max_session_secs,
		       active_secs, avg_speed, avg_session_secs,
		       entities, kanji_freq, hourly_chars, hourly_speed, entity_stats
		FROM daily_rollups
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`, startDate, endDate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query rollups: %w", err)
	}
	defer rows.Close()

	var (
		out      []models.DailyStats
		warnings []models.FieldWarning
	)
	for rows.Next() {
		var (
			d       models.DailyStats
			rawCols rollupCollections
		)
		if err := rows.Scan(&d.Date,
			&d.TotalLines, &d.TotalChars, &d.TotalSessions,
			&d.SessionsStarted, &d.SessionsCompleted,
			&d.ScreenshotCount, &d.AudioCount, &d.TranslationCount, &d.CardsCreated,
			&d.LongestSessionSecs, &d.ShortestSessionSecs, &d.PeakHourlySpeed,
			&d.MaxSessionChars, &d.MaxSessionSecs,
			&d.ActiveSecs, &d.AvgSpeed, &d.AvgSessionSecs,
			&rawCols.entities, &rawCols.kanjiFreq, &rawCols.hourlyChars,
			&rawCols.hourlySpeed, &rawCols.entityStats,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan rollup: %w", err)
		}
		warnings = append(warnings, decodeCollections(&d, rawCols)...)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rollups: %w", err)
	}
	return out, warnings, nil
}

// RollupExists reports whether a rollup row exists for the date.
func (db *DB) RollupExists(ctx context.Context, date string) (_ bool, err error) {
	started := time.Now()
	defer func() { metrics.RecordDBQuery("exists", "daily_rollups", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_rollups WHERE date = ?`, date).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check rollup existence: %w", err)
	}
	return n > 0, nil
}

// FirstRollupDate returns the earliest rollup date, or ErrNotFound when no
// rollups exist yet.
func (db *DB) FirstRollupDate(ctx context.Context) (string, error) {
	return db.boundaryRollupDate(ctx, "MIN")
}

// LastRollupDate returns the latest rollup date, or ErrNotFound when no
// rollups exist yet.
func (db *DB) LastRollupDate(ctx context.Context) (string, error) {
	return db.boundaryRollupDate(ctx, "MAX")
}

func (db *DB) boundaryRollupDate(ctx context.Context, fn string) (_ string, err error) {
	started := time.Now()
	defer func() { metrics.RecordDBQuery("boundary", "daily_rollups", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var date sql.NullString
	query := fmt.Sprintf(`SELECT %s(date) FROM daily_rollups`, fn)
	if err := db.conn.QueryRowContext(ctx, query).Scan(&date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to query rollup boundary: %w", err)
	}
	if !date.Valid {
		return "", ErrNotFound
	}
	return date.String, nil
}

// rollupCollections holds the raw JSON text of a row's collection columns.
type rollupCollections struct {
	entities    string
	kanjiFreq   string
	hourlyChars string
	hourlySpeed string
	entityStats string
}

// decodeCollections unmarshals the collection columns into d. Each field
// decodes independently; a failure leaves that field at its identity value
// and produces a warning, so one corrupt column never poisons the row.
func decodeCollections(d *models.DailyStats, raw rollupCollections) []models.FieldWarning {
	var warnings []models.FieldWarning

	warn := func(field string, err error) {
		logging.Warn().
			Str("date", d.Date).
			Str("field", field).
			Err(err).
			Msg("Corrupt rollup collection field, using identity value")
		metrics.RecordDecodeWarning(field)
		warnings = append(warnings, models.FieldWarning{
			Date: d.Date, Field: field, Cause: err.Error(),
		})
	}

	d.Entities = []string{}
	if err := json.Unmarshal([]byte(raw.entities), &d.Entities); err != nil {
		d.Entities = []string{}
		warn("entities", err)
	}

	d.KanjiFreq = map[string]int64{}
	if err := json.Unmarshal([]byte(raw.kanjiFreq), &d.KanjiFreq); err != nil {
		d.KanjiFreq = map[string]int64{}
		warn("kanji_freq", err)
	}

	d.HourlyChars = map[int]int64{}
	if err := json.Unmarshal([]byte(raw.hourlyChars), &d.HourlyChars); err != nil {
		d.HourlyChars = map[int]int64{}
		warn("hourly_chars", err)
	}

	d.HourlySpeed = map[int]float64{}
	if err := json.Unmarshal([]byte(raw.hourlySpeed), &d.HourlySpeed); err != nil {
		d.HourlySpeed = map[int]float64{}
		warn("hourly_speed", err)
	}

	d.EntityStats = map[string]models.EntityActivity{}
	if err := json.Unmarshal([]byte(raw.entityStats), &d.EntityStats); err != nil {
		d.EntityStats = map[string]models.EntityActivity{}
		warn("entity_stats", err)
	}

	return warnings
}
