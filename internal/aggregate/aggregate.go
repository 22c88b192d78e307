// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

// Package aggregate implements the commutative merge algebra that combines
// any number of daily rollups (and the in-progress "today" record) into a
// single summary without re-reading raw events.
//
// Field classes and their combination rules:
//
//   - additive counters: a + b
//   - extremal (max): max(a, b)
//   - extremal (min): smaller non-zero value; zero only if both are zero
//   - weighted rates: (a.rate*a.weight + b.rate*b.weight) / (a.weight + b.weight)
//   - entity-id set: union
//   - frequency and per-hour char maps: key-wise sum
//   - per-hour speed map: key-wise average of non-zero day values
//   - per-entity map: key-wise addition of the chars/lines/time triple
//
// Merge is associative and commutative (up to floating-point rounding), so
// callers may fold in any grouping or order. The non-zero hourly-speed
// average stays associative because Result carries a per-hour sample count
// alongside the averaged value.
package aggregate

import (
	"sort"

	"github.com/yomistats/yomistats/internal/models"
)

// Result is a merged aggregate. It has the shape of a DailyStats plus the
// bookkeeping that keeps repeated merging exact. Results are derived values:
// they are never persisted, and callers must treat them as immutable.
type Result struct {
	models.DailyStats

	// Days is the number of day records folded into this result.
	Days int

	// speedSamples counts, per hour of day, how many merged days had a
	// non-zero reading speed in that hour. It is the weight behind the
	// non-zero average in HourlySpeed.
	speedSamples map[int]int64
}

// Identity returns the neutral element of the algebra: merging it with any
// result yields that result unchanged.
func Identity() *Result {
	return &Result{DailyStats: models.NewDailyStats(""), speedSamples: map[int]int64{}}
}

// FromDaily lifts one day record into a mergeable Result. Collections are
// deep-copied so later merges never alias the caller's maps.
func FromDaily(d models.DailyStats) *Result {
	r := &Result{DailyStats: cloneStats(d), Days: 1, speedSamples: map[int]int64{}}
	for h, speed := range d.HourlySpeed {
		if speed > 0 {
			r.speedSamples[h] = 1
		} else {
			delete(r.HourlySpeed, h)
		}
	}
	return r
}

// Merge combines two results. Either side may be nil: Merge(nil, b) == b,
// Merge(a, nil) == a, Merge(nil, nil) == Identity(). This lets a partial
// "today" aggregate merge with zero, one, or many historical rollups
// uniformly.
func Merge(a, b *Result) *Result {
	if a == nil && b == nil {
		return Identity()
	}
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	m := Identity()
	m.Days = a.Days + b.Days
	m.Date = mergedDate(a, b)

	// Additive counters.
	m.TotalLines = a.TotalLines + b.TotalLines
	m.TotalChars = a.TotalChars + b.TotalChars
	m.TotalSessions = a.TotalSessions + b.TotalSessions
	m.SessionsStarted = a.SessionsStarted + b.SessionsStarted
	m.SessionsCompleted = a.SessionsCompleted + b.SessionsCompleted
	m.ScreenshotCount = a.ScreenshotCount + b.ScreenshotCount
	m.AudioCount = a.AudioCount + b.AudioCount
	m.TranslationCount = a.TranslationCount + b.TranslationCount
	m.CardsCreated = a.CardsCreated + b.CardsCreated

	// Extremal values.
	m.LongestSessionSecs = maxF(a.LongestSessionSecs, b.LongestSessionSecs)
	m.MaxSessionSecs = maxF(a.MaxSessionSecs, b.MaxSessionSecs)
	m.PeakHourlySpeed = maxF(a.PeakHourlySpeed, b.PeakHourlySpeed)
	m.MaxSessionChars = maxI(a.MaxSessionChars, b.MaxSessionChars)
	m.ShortestSessionSecs = minNonZero(a.ShortestSessionSecs, b.ShortestSessionSecs)

	// Weighted rates: combine the rates first, then sum the weights.
	m.AvgSpeed = weightedRate(a.AvgSpeed, a.ActiveSecs, b.AvgSpeed, b.ActiveSecs)
	m.AvgSessionSecs = weightedRate(
		a.AvgSessionSecs, float64(a.TotalSessions),
		b.AvgSessionSecs, float64(b.TotalSessions))
	m.ActiveSecs = a.ActiveSecs + b.ActiveSecs

	// Collections.
	m.Entities = unionSorted(a.Entities, b.Entities)
	for k, v := range a.KanjiFreq {
		m.KanjiFreq[k] += v
	}
	for k, v := range b.KanjiFreq {
		m.KanjiFreq[k] += v
	}
	for h, v := range a.HourlyChars {
		m.HourlyChars[h] += v
	}
	for h, v := range b.HourlyChars {
		m.HourlyChars[h] += v
	}
	mergeHourlySpeed(m, a, b)
	mergeEntityStats(m.EntityStats, a.EntityStats)
	mergeEntityStats(m.EntityStats, b.EntityStats)

	return m
}

// MergeAll folds a list of day records into one result. An empty list
// yields the identity element.
func MergeAll(days []models.DailyStats) *Result {
	acc := Identity()
	for _, d := range days {
		acc = Merge(acc, FromDaily(d))
	}
	return acc
}

// mergeHourlySpeed computes the sample-weighted average of the two speed
// maps. Hours with zero samples on both sides are omitted.
func mergeHourlySpeed(m, a, b *Result) {
	hours := map[int]struct{}{}
	for h := range a.speedSamples {
		hours[h] = struct{}{}
	}
	for h := range b.speedSamples {
		hours[h] = struct{}{}
	}
	for h := range hours {
		na, nb := a.speedSamples[h], b.speedSamples[h]
		total := na + nb
		if total == 0 {
			continue
		}
		m.HourlySpeed[h] = (a.HourlySpeed[h]*float64(na) + b.HourlySpeed[h]*float64(nb)) / float64(total)
		m.speedSamples[h] = total
	}
}

// mergeEntityStats adds src's per-entity triples into dst. The title is
// taken from whichever side has a non-empty value; an existing title wins.
func mergeEntityStats(dst map[string]models.EntityActivity, src map[string]models.EntityActivity) {
	for id, s := range src {
		d := dst[id]
		d.Chars += s.Chars
		d.Lines += s.Lines
		d.TimeSecs += s.TimeSecs
		if d.Title == "" {
			d.Title = s.Title
		}
		dst[id] = d
	}
}

// mergedDate keeps a date key only while the merge still describes a single
// calendar date.
func mergedDate(a, b *Result) string {
	switch {
	case a.Days == 0:
		return b.Date
	case b.Days == 0:
		return a.Date
	case a.Date == b.Date:
		return a.Date
	default:
		return ""
	}
}

// weightedRate merges two rates by their weights. A zero total weight
// yields zero, never a division error.
func weightedRate(rateA, weightA, rateB, weightB float64) float64 {
	total := weightA + weightB
	if total <= 0 {
		return 0
	}
	return (rateA*weightA + rateB*weightB) / total
}

// minNonZero returns the smaller of two values ignoring zeros; zero means
// "no sample", not "instant session".
func minNonZero(a, b float64) float64 {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxI(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// unionSorted merges two sorted-or-not string sets into a sorted slice.
func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// cloneStats deep-copies a day record's collections.
func cloneStats(d models.DailyStats) models.DailyStats {
	c := d
	c.Entities = append([]string{}, d.Entities...)
	c.KanjiFreq = make(map[string]int64, len(d.KanjiFreq))
	for k, v := range d.KanjiFreq {
		c.KanjiFreq[k] = v
	}
	c.HourlyChars = make(map[int]int64, len(d.HourlyChars))
	for k, v := range d.HourlyChars {
		c.HourlyChars[k] = v
	}
	c.HourlySpeed = make(map[int]float64, len(d.HourlySpeed))
	for k, v := range d.HourlySpeed {
		c.HourlySpeed[k] = v
	}
	c.EntityStats = make(map[string]models.EntityActivity, len(d.EntityStats))
	for k, v := range d.EntityStats {
		c.EntityStats[k] = v
	}
	return c
}
