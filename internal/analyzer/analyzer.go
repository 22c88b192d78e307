// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

// Package analyzer turns the raw timestamped events of one calendar day
// into a fixed-shape DailyStats record.
//
// Analyze is a pure function: no storage, no clocks, no side effects.
// Callers are responsible for handing it exactly the events of one
// date-bounded window; the rollup builder and the live calculator both do.
package analyzer

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/yomistats/yomistats/internal/models"
)

// Options are the tunables of the session model.
type Options struct {
	// AFKGapSecs caps the contribution of a single inter-event gap to
	// active reading time. Gaps longer than this still count, but only
	// this many seconds of them.
	AFKGapSecs float64

	// SessionGapSecs is the inter-event gap beyond which a new session
	// starts. Such a gap contributes nothing to active time.
	SessionGapSecs float64

	// Location resolves local calendar boundaries for hour-of-day
	// bucketing and date keys. Defaults to time.Local.
	Location *time.Location
}

// DefaultOptions returns the stock session model tunables.
func DefaultOptions() Options {
	return Options{
		AFKGapSecs:     120,
		SessionGapSecs: 600,
		Location:       time.Local,
	}
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

// Analyze computes the DailyStats record for the given events.
//
// The input need not be sorted. An empty input yields the identity
// element. A window with exactly one event yields zero active time but
// still attributes the event's character count to MaxSessionChars.
func Analyze(events []models.Event, opts Options) models.DailyStats {
	loc := opts.location()
	stats := models.NewDailyStats("")
	if len(events) == 0 {
		return stats
	}

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	stats.Date = sorted[0].Time(loc).Format(models.DateFormat)

	for _, ev := range sorted {
		chars := int64(utf8.RuneCountInString(ev.Text))
		stats.TotalLines++
		stats.TotalChars += chars
		if ev.HasScreenshot {
			stats.ScreenshotCount++
		}
		if ev.HasAudio {
			stats.AudioCount++
		}
		if ev.HasTranslation {
			stats.TranslationCount++
		}
		if ev.CardCreated {
			stats.CardsCreated++
		}
		countIdeographs(ev.Text, stats.KanjiFreq)
	}

	analyzeSessions(sorted, opts, &stats)
	analyzeHourly(sorted, opts, loc, &stats)
	analyzeEntities(sorted, opts, &stats)

	if stats.ActiveSecs > 0 {
		stats.AvgSpeed = float64(stats.TotalChars) / stats.ActiveSecs * 3600
	}
	if stats.TotalSessions > 0 {
		stats.AvgSessionSecs = stats.ActiveSecs / float64(stats.TotalSessions)
	}

	return stats
}

// analyzeHourly buckets events by local hour of day and computes per-bucket
// character totals and reading speed. Each bucket's active time is derived
// from that bucket's own timestamps under the same capped-gap rule used for
// sessions, so a bucket interrupted by a long break is not inflated.
func analyzeHourly(sorted []models.Event, opts Options, loc *time.Location, stats *models.DailyStats) {
	hourTS := make(map[int][]int64)
	for _, ev := range sorted {
		h := ev.Time(loc).Hour()
		stats.HourlyChars[h] += int64(utf8.RuneCountInString(ev.Text))
		hourTS[h] = append(hourTS[h], ev.Timestamp)
	}

	for h, chars := range stats.HourlyChars {
		active := activeSeconds(hourTS[h], opts)
		speed := 0.0
		if active > 0 {
			speed = float64(chars) / active * 3600
		}
		stats.HourlySpeed[h] = speed
		if speed > stats.PeakHourlySpeed {
			stats.PeakHourlySpeed = speed
		}
	}
}

// analyzeEntities groups events by entity id and computes the per-entity
// chars/lines/time triple. Time uses the capped-gap rule over the entity's
// own timestamps, not the global session boundaries, so interleaved reading
// of two titles is attributed to each independently.
func analyzeEntities(sorted []models.Event, opts Options, stats *models.DailyStats) {
	type group struct {
		act models.EntityActivity
		ts  []int64
	}
	groups := make(map[string]*group)

	for _, ev := range sorted {
		if ev.EntityID == "" {
			continue
		}
		g, ok := groups[ev.EntityID]
		if !ok {
			g = &group{}
			groups[ev.EntityID] = g
		}
		g.act.Chars += int64(utf8.RuneCountInString(ev.Text))
		g.act.Lines++
		if ev.EntityTitle != "" {
			g.act.Title = ev.EntityTitle
		}
		g.ts = append(g.ts, ev.Timestamp)
	}

	ids := make([]string, 0, len(groups))
	for id, g := range groups {
		g.act.TimeSecs = activeSeconds(g.ts, opts)
		stats.EntityStats[id] = g.act
		ids = append(ids, id)
	}
	sort.Strings(ids)
	stats.Entities = ids
}
