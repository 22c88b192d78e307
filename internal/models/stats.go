// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package models

// DateFormat is the canonical layout for rollup date keys (local day boundary).
const DateFormat = "2006-01-02"

// EntityActivity is the per-title slice of a day's reading activity.
type EntityActivity struct {
	Title    string  `json:"title,omitempty"`
	Chars    int64   `json:"chars"`
	Lines    int64   `json:"lines"`
	TimeSecs float64 `json:"time_secs"`
}

// DailyStats is the fixed-shape aggregate record for one calendar date.
//
// Every field belongs to one of four classes with a defined merge rule:
// additive counters, extremal values, weighted rates, and collections.
// A DailyStats is a pure function of the events inside its date boundary;
// rebuilding it from the same events yields the same value. The zero value
// (with initialized maps) is the identity element of the merge algebra.
type DailyStats struct {
	// Date is the YYYY-MM-DD key of the record. Empty on merged aggregates
	// that span more than one day.
	Date string `json:"date,omitempty"`

	// Additive counters.
	TotalLines        int64 `json:"total_lines"`
	TotalChars        int64 `json:"total_chars"`
	TotalSessions     int64 `json:"total_sessions"`
	SessionsStarted   int64 `json:"sessions_started"`
	SessionsCompleted int64 `json:"sessions_completed"`
	ScreenshotCount   int64 `json:"screenshot_count"`
	AudioCount        int64 `json:"audio_count"`
	TranslationCount  int64 `json:"translation_count"`
	CardsCreated      int64 `json:"cards_created"`

	// Extremal values.
	LongestSessionSecs  float64 `json:"longest_session_secs"`
	ShortestSessionSecs float64 `json:"shortest_session_secs"` // min over non-zero durations
	PeakHourlySpeed     float64 `json:"peak_hourly_speed"`     // chars/hour
	MaxSessionChars     int64   `json:"max_session_chars"`
	MaxSessionSecs      float64 `json:"max_session_secs"`

	// Weighted rates and their weights. ActiveSecs weights AvgSpeed;
	// TotalSessions weights AvgSessionSecs.
	ActiveSecs     float64 `json:"active_secs"`
	AvgSpeed       float64 `json:"avg_speed"` // chars/hour
	AvgSessionSecs float64 `json:"avg_session_secs"`

	// Collections.
	Entities    []string                  `json:"entities,omitempty"`     // distinct entity ids, sorted
	KanjiFreq   map[string]int64          `json:"kanji_freq,omitempty"`   // ideograph -> occurrences
	HourlyChars map[int]int64             `json:"hourly_chars,omitempty"` // hour of day 0-23 -> chars
	HourlySpeed map[int]float64           `json:"hourly_speed,omitempty"` // hour of day 0-23 -> chars/hour
	EntityStats map[string]EntityActivity `json:"entity_stats,omitempty"`
}

// NewDailyStats returns the identity element: all counters zero, all
// collections empty but non-nil.
func NewDailyStats(date string) DailyStats {
	return DailyStats{
		Date:        date,
		Entities:    []string{},
		KanjiFreq:   map[string]int64{},
		HourlyChars: map[int]int64{},
		HourlySpeed: map[int]float64{},
		EntityStats: map[string]EntityActivity{},
	}
}

// IsZero reports whether the record carries no activity at all.
func (d DailyStats) IsZero() bool {
	return d.TotalLines == 0 && d.TotalChars == 0 && d.TotalSessions == 0 &&
		len(d.Entities) == 0 && len(d.KanjiFreq) == 0 &&
		len(d.HourlyChars) == 0 && len(d.EntityStats) == 0
}

// FieldWarning reports a stored collection field that failed to decode and
// was replaced by its identity value during a merge. A statistics query
// never fails outright because of one bad historical field; warnings travel
// out of band alongside the merged result.
type FieldWarning struct {
	Date  string `json:"date"`
	Field string `json:"field"`
	Cause string `json:"cause"`
}
