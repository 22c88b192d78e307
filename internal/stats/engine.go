// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

// Package stats exposes the query surface of the statistics engine. It
// answers range queries by folding persisted daily rollups together with a
// live aggregate of today's events, and it owns the (re)building of those
// rollups from raw events.
//
// The split keeps queries cheap: completed days are read back as single
// rows, and only the current day is ever recomputed from events.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yomistats/yomistats/internal/aggregate"
	"github.com/yomistats/yomistats/internal/analyzer"
	"github.com/yomistats/yomistats/internal/config"
	"github.com/yomistats/yomistats/internal/database"
	"github.com/yomistats/yomistats/internal/logging"
	"github.com/yomistats/yomistats/internal/metrics"
	"github.com/yomistats/yomistats/internal/models"
)

// Summary is the answer to a range query. Stats is a merged aggregate, not
// a stored record: for multi-day ranges its Date field is empty.
type Summary struct {
	Stats models.DailyStats `json:"stats"`

	// Days is the number of day records folded into Stats, including the
	// live record when the range covers today.
	Days int `json:"days"`

	// Live reports whether today's in-progress record is included.
	Live bool `json:"live"`

	// Warnings lists stored collection fields that failed to decode and
	// were replaced by their identity value.
	Warnings []models.FieldWarning `json:"warnings,omitempty"`
}

// Engine computes aggregates over the rollup store and the event log.
// It is safe for concurrent use.
type Engine struct {
	db  *database.DB
	cfg config.StatsConfig
	loc *time.Location
	log zerolog.Logger

	// now is the clock. Overridable in tests.
	now func() time.Time

	// rebuild builds one date's rollup during a backfill pass. Points at
	// RebuildRollup; overridable in tests.
	rebuild func(ctx context.Context, date string) error

	// buildLocks serializes rollup builds per date key so concurrent
	// rebuilds of the same day cannot interleave their read-analyze-write.
	buildLocks sync.Map
}

// New creates a statistics engine. A nil location defaults to time.Local.
func New(db *database.DB, cfg config.StatsConfig, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{
		db:  db,
		cfg: cfg,
		loc: loc,
		log: logging.With().Str("component", "stats").Logger(),
		now: time.Now,
	}
	e.rebuild = e.RebuildRollup
	return e
}

// GetAggregate merges all day records in the inclusive date range
// [startDate, endDate]. Completed days come from the rollup store; if the
// range covers today, a live record is computed from today's events and
// folded in. Today's record is never persisted by this path.
func (e *Engine) GetAggregate(ctx context.Context, startDate, endDate string) (*Summary, error) {
	if _, err := e.parseDate(startDate); err != nil {
		return nil, err
	}
	if _, err := e.parseDate(endDate); err != nil {
		return nil, err
	}
	if startDate > endDate {
		return nil, fmt.Errorf("%w: start %s after end %s", database.ErrInvalidRange, startDate, endDate)
	}

	now := e.now().In(e.loc)
	today := now.Format(models.DateFormat)

	result := aggregate.Identity()
	summary := &Summary{}

	// Persisted portion: everything before today.
	persistedEnd := endDate
	if persistedEnd >= today {
		persistedEnd = previousDate(today)
	}
	if startDate <= persistedEnd {
		rollups, warnings, err := e.db.GetRollupRange(ctx, startDate, persistedEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to read rollup range: %w", err)
		}
		summary.Warnings = warnings
		for i := range rollups {
			result = aggregate.Merge(result, aggregate.FromDaily(rollups[i]))
		}
	}

	// Live portion: today, recomputed on every call.
	if startDate <= today && today <= endDate {
		live, err := e.LiveStats(ctx, now)
		if err != nil {
			return nil, err
		}
		if !live.IsZero() {
			result = aggregate.Merge(result, aggregate.FromDaily(live))
		}
		summary.Live = true
	}

	summary.Stats = result.DailyStats
	summary.Days = result.Days
	return summary, nil
}

// LiveStats computes the aggregate for the local calendar day containing
// now, straight from the event log. The result is derived and is never
// written to the rollup store.
func (e *Engine) LiveStats(ctx context.Context, now time.Time) (models.DailyStats, error) {
	started := time.Now()
	date := now.In(e.loc).Format(models.DateFormat)

	stats, err := e.analyzeDay(ctx, date)
	if err != nil {
		return models.DailyStats{}, fmt.Errorf("failed to compute live stats for %s: %w", date, err)
	}
	metrics.RecordLiveCompute(time.Since(started))
	return stats, nil
}

// RebuildRollup recomputes the rollup for one completed day from raw events
// and upserts it. The date must be strictly in the past; today's record is
// live-only. Rebuilding is idempotent, and concurrent rebuilds of the same
// date are serialized.
func (e *Engine) RebuildRollup(ctx context.Context, date string) error {
	if _, err := e.parseDate(date); err != nil {
		return err
	}
	today := e.now().In(e.loc).Format(models.DateFormat)
	if date >= today {
		return fmt.Errorf("%w: %s is not a completed day", database.ErrInvalidDate, date)
	}

	muInterface, _ := e.buildLocks.LoadOrStore(date, &sync.Mutex{})
	mu := muInterface.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	started := time.Now()
	err := e.rebuildLocked(ctx, date)
	metrics.RecordRollupBuild(time.Since(started), err)
	if err != nil {
		return err
	}

	e.log.Debug().Str("date", date).Msg("Rebuilt daily rollup")
	return nil
}

func (e *Engine) rebuildLocked(ctx context.Context, date string) error {
	stats, err := e.analyzeDay(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to rebuild rollup for %s: %w", date, err)
	}
	if err := e.db.UpsertRollup(ctx, date, stats); err != nil {
		return fmt.Errorf("failed to store rollup for %s: %w", date, err)
	}
	return nil
}

// BackfillRollups builds rollups for every past day that has events but no
// stored rollup. Yesterday is rebuilt unconditionally: its stored record
// may predate the day's final events. Per-date build failures are logged
// and skipped, and do not fail the pass: a day that persistently fails to
// build must not keep the daily job due forever. It returns the number of
// rollups built; a non-nil error means the pass itself was aborted by a
// store failure.
func (e *Engine) BackfillRollups(ctx context.Context) (int, error) {
	dates, err := e.db.DistinctDates(ctx, e.loc)
	if err != nil {
		return 0, fmt.Errorf("failed to list event dates: %w", err)
	}

	today := e.now().In(e.loc).Format(models.DateFormat)
	yesterday := previousDate(today)

	built := 0
	failed := 0
	for _, date := range dates {
		if date >= today {
			continue
		}
		if date != yesterday {
			exists, err := e.db.RollupExists(ctx, date)
			if err != nil {
				return built, fmt.Errorf("failed to check rollup for %s: %w", date, err)
			}
			if exists {
				continue
			}
		}
		if err := e.rebuild(ctx, date); err != nil {
			e.log.Error().Err(err).Str("date", date).Msg("Failed to backfill rollup")
			failed++
			continue
		}
		built++
	}

	if failed > 0 {
		e.log.Warn().Int("built", built).Int("failed", failed).Msg("Rollup backfill incomplete")
	} else if built > 0 {
		e.log.Info().Int("built", built).Msg("Backfilled daily rollups")
	}
	return built, nil
}

// analyzeDay runs the activity analyzer over one local calendar day of
// events. The returned record always carries the date key, even when the
// day is empty.
func (e *Engine) analyzeDay(ctx context.Context, date string) (models.DailyStats, error) {
	day, err := e.parseDate(date)
	if err != nil {
		return models.DailyStats{}, err
	}
	startTS := day.Unix()
	endTS := day.AddDate(0, 0, 1).Unix()

	events, err := e.db.GetEventsRange(ctx, "", startTS, endTS)
	if err != nil {
		return models.DailyStats{}, err
	}

	stats := analyzer.Analyze(events, analyzer.Options{
		AFKGapSecs:     e.cfg.AFKGapSeconds,
		SessionGapSecs: e.cfg.SessionGapSeconds,
		Location:       e.loc,
	})
	stats.Date = date
	return stats, nil
}

// parseDate validates a date key strictly: it must parse as local
// YYYY-MM-DD and round-trip unchanged, which rejects normalized
// out-of-range days like 2025-06-31.
func (e *Engine) parseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(models.DateFormat, date, e.loc)
	if err != nil || t.Format(models.DateFormat) != date {
		return time.Time{}, fmt.Errorf("%w: %q", database.ErrInvalidDate, date)
	}
	return t, nil
}

// previousDate returns the date key of the day before the given key. The
// input must be a valid date key.
func previousDate(date string) string {
	t, _ := time.Parse(models.DateFormat, date)
	return t.AddDate(0, 0, -1).Format(models.DateFormat)
}
