// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yomistats/yomistats/internal/metrics"
	"github.com/yomistats/yomistats/internal/models"
)

// InsertEvents appends a batch of reading events. Events without an id are
// assigned one. The event log is append-only; rows are never updated.
func (db *DB) InsertEvents(ctx context.Context, events []models.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	started := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "reading_events", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reading_events
			(id, entity_id, entity_title, text, ts,
			 has_screenshot, has_audio, has_translation, card_created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		id := ev.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx,
			id, nullable(ev.EntityID), nullable(ev.EntityTitle), ev.Text, ev.Timestamp,
			ev.HasScreenshot, ev.HasAudio, ev.HasTranslation, ev.CardCreated,
		); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event batch: %w", err)
	}
	return nil
}

// GetEventsRange returns events with startTS <= ts < endTS, ordered by
// timestamp. An empty entityID matches all entities.
func (db *DB) GetEventsRange(ctx context.Context, entityID string, startTS, endTS int64) (_ []models.Event, err error) {
	started := time.Now()
	defer func() { metrics.RecordDBQuery("select_range", "reading_events", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
	SELECT id, entity_id, entity_title, text, ts,
	       has_screenshot, has_audio, has_translation, card_created
	FROM reading_events
	WHERE ts >= ? AND ts < ?`
	args := []any{startTS, endTS}
	if entityID != "" {
		query += ` AND entity_id = ?`
		args = append(args, entityID)
	}
	query += ` ORDER BY ts ASC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var ev models.Event
		var entityID, entityTitle sql.NullString
		if err := rows.Scan(&ev.ID, &entityID, &entityTitle, &ev.Text, &ev.Timestamp,
			&ev.HasScreenshot, &ev.HasAudio, &ev.HasTranslation, &ev.CardCreated); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.EntityID = entityID.String
		ev.EntityTitle = entityTitle.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// DistinctDates returns every local calendar date that has at least one
// event, in ascending order. Bucketing happens in Go because the local day
// boundary belongs to the process, not to the database session.
func (db *DB) DistinctDates(ctx context.Context, loc *time.Location) (_ []string, err error) {
	started := time.Now()
	defer func() { metrics.RecordDBQuery("distinct_dates", "reading_events", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT ts FROM reading_events ORDER BY ts ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query event timestamps: %w", err)
	}
	defer rows.Close()

	if loc == nil {
		loc = time.Local
	}

	dates := []string{}
	last := ""
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		d := time.Unix(ts, 0).In(loc).Format(models.DateFormat)
		if d != last {
			dates = append(dates, d)
			last = d
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timestamps: %w", err)
	}
	return dates, nil
}

// CountEvents returns the total number of stored events.
func (db *DB) CountEvents(ctx context.Context) (_ int64, err error) {
	started := time.Now()
	defer func() { metrics.RecordDBQuery("count", "reading_events", time.Since(started), err) }()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM reading_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
