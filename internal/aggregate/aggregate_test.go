// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package aggregate

import (
	"math"
	"reflect"
	"testing"

	"github.com/yomistats/yomistats/internal/models"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// day builds a minimal day record with the given chars and active seconds.
func day(date string, chars int64, activeSecs float64) models.DailyStats {
	d := models.NewDailyStats(date)
	d.TotalChars = chars
	d.TotalLines = chars / 10
	d.ActiveSecs = activeSecs
	if activeSecs > 0 {
		d.AvgSpeed = float64(chars) / activeSecs * 3600
	}
	return d
}

func TestMergeIdentity(t *testing.T) {
	d := day("2025-01-01", 500, 1800)
	d.Entities = []string{"vn-1"}
	d.KanjiFreq = map[string]int64{"日": 4}
	d.HourlySpeed = map[int]float64{9: 1000}
	d.HourlyChars = map[int]int64{9: 500}
	d.EntityStats = map[string]models.EntityActivity{
		"vn-1": {Title: "Clannad", Chars: 500, Lines: 50, TimeSecs: 1800},
	}
	d.ShortestSessionSecs = 60
	d.LongestSessionSecs = 1800

	a := FromDaily(d)
	merged := Merge(a, Identity())

	if !reflect.DeepEqual(merged.DailyStats, a.DailyStats) {
		t.Errorf("merge with identity changed the value:\n got %+v\nwant %+v",
			merged.DailyStats, a.DailyStats)
	}
	if merged.Days != 1 {
		t.Errorf("days = %d, want 1", merged.Days)
	}
}

func TestMergeNilHandling(t *testing.T) {
	if got := Merge(nil, nil); !got.IsZero() || got.Days != 0 {
		t.Errorf("Merge(nil, nil) should be identity, got %+v", got)
	}

	a := FromDaily(day("2025-01-01", 100, 60))
	if got := Merge(nil, a); got != a {
		t.Error("Merge(nil, a) should return a")
	}
	if got := Merge(a, nil); got != a {
		t.Error("Merge(a, nil) should return a")
	}
}

func TestMergeAdditiveCounters(t *testing.T) {
	a := day("2025-01-01", 500, 3600)
	b := day("2025-01-02", 700, 1800)

	m := Merge(FromDaily(a), FromDaily(b))

	if m.TotalChars != 1200 {
		t.Errorf("total chars = %d, want 1200", m.TotalChars)
	}
	if !approxEqual(m.ActiveSecs, 5400) {
		t.Errorf("active secs = %v, want 5400", m.ActiveSecs)
	}
	if m.Date != "" {
		t.Errorf("multi-day merge should drop the date key, got %q", m.Date)
	}
}

func TestMergeWeightedSpeed(t *testing.T) {
	// Day A: 100 chars/hr over 2 active hours. Day B: 400 chars/hr over 1.
	// Weighted merge: (100*2 + 400*1) / 3 = 200, not the arithmetic mean 250.
	a := models.NewDailyStats("2025-01-01")
	a.AvgSpeed = 100
	a.ActiveSecs = 2 * 3600
	b := models.NewDailyStats("2025-01-02")
	b.AvgSpeed = 400
	b.ActiveSecs = 1 * 3600

	m := Merge(FromDaily(a), FromDaily(b))

	if !approxEqual(m.AvgSpeed, 200) {
		t.Errorf("merged speed = %v, want 200", m.AvgSpeed)
	}
}

func TestMergeWeightedSessionDuration(t *testing.T) {
	a := models.NewDailyStats("2025-01-01")
	a.AvgSessionSecs = 600
	a.TotalSessions = 3
	b := models.NewDailyStats("2025-01-02")
	b.AvgSessionSecs = 1200
	b.TotalSessions = 1

	m := Merge(FromDaily(a), FromDaily(b))

	want := (600.0*3 + 1200.0*1) / 4
	if !approxEqual(m.AvgSessionSecs, want) {
		t.Errorf("merged session duration = %v, want %v", m.AvgSessionSecs, want)
	}
	if m.TotalSessions != 4 {
		t.Errorf("total sessions = %d, want 4", m.TotalSessions)
	}
}

func TestMergeZeroWeightYieldsZeroRate(t *testing.T) {
	a := models.NewDailyStats("2025-01-01")
	b := models.NewDailyStats("2025-01-02")

	m := Merge(FromDaily(a), FromDaily(b))

	if m.AvgSpeed != 0 || m.AvgSessionSecs != 0 {
		t.Errorf("zero-weight rates should be zero, got speed %v session %v",
			m.AvgSpeed, m.AvgSessionSecs)
	}
}

func TestMergeShortestSessionIgnoresZero(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"both non-zero", 120, 60, 60},
		{"one zero", 0, 45, 45},
		{"other zero", 45, 0, 45},
		{"both zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := models.NewDailyStats("2025-01-01")
			a.ShortestSessionSecs = tt.a
			b := models.NewDailyStats("2025-01-02")
			b.ShortestSessionSecs = tt.b

			m := Merge(FromDaily(a), FromDaily(b))
			if m.ShortestSessionSecs != tt.want {
				t.Errorf("shortest = %v, want %v", m.ShortestSessionSecs, tt.want)
			}
		})
	}
}

func TestMergeExtremalMax(t *testing.T) {
	a := models.NewDailyStats("2025-01-01")
	a.LongestSessionSecs = 3000
	a.MaxSessionChars = 4000
	a.PeakHourlySpeed = 9000
	b := models.NewDailyStats("2025-01-02")
	b.LongestSessionSecs = 4500
	b.MaxSessionChars = 2500
	b.PeakHourlySpeed = 11000

	m := Merge(FromDaily(a), FromDaily(b))

	if m.LongestSessionSecs != 4500 || m.MaxSessionChars != 4000 || m.PeakHourlySpeed != 11000 {
		t.Errorf("extremal merge = %v/%d/%v, want 4500/4000/11000",
			m.LongestSessionSecs, m.MaxSessionChars, m.PeakHourlySpeed)
	}
}

func TestMergeCollections(t *testing.T) {
	a := models.NewDailyStats("2025-01-01")
	a.Entities = []string{"vn-1", "vn-2"}
	a.KanjiFreq = map[string]int64{"日": 3, "本": 1}
	a.HourlyChars = map[int]int64{9: 100, 10: 50}
	a.EntityStats = map[string]models.EntityActivity{
		"vn-1": {Chars: 100, Lines: 10, TimeSecs: 300},
	}

	b := models.NewDailyStats("2025-01-02")
	b.Entities = []string{"vn-2", "vn-3"}
	b.KanjiFreq = map[string]int64{"日": 2, "語": 5}
	b.HourlyChars = map[int]int64{10: 25}
	b.EntityStats = map[string]models.EntityActivity{
		"vn-1": {Title: "Clannad", Chars: 40, Lines: 4, TimeSecs: 100},
		"vn-3": {Chars: 9, Lines: 1},
	}

	m := Merge(FromDaily(a), FromDaily(b))

	if !reflect.DeepEqual(m.Entities, []string{"vn-1", "vn-2", "vn-3"}) {
		t.Errorf("entity union = %v", m.Entities)
	}
	if !reflect.DeepEqual(m.KanjiFreq, map[string]int64{"日": 5, "本": 1, "語": 5}) {
		t.Errorf("kanji merge = %v", m.KanjiFreq)
	}
	if !reflect.DeepEqual(m.HourlyChars, map[int]int64{9: 100, 10: 75}) {
		t.Errorf("hourly chars merge = %v", m.HourlyChars)
	}

	vn1 := m.EntityStats["vn-1"]
	if vn1.Chars != 140 || vn1.Lines != 14 || !approxEqual(vn1.TimeSecs, 400) {
		t.Errorf("vn-1 merge = %+v", vn1)
	}
	if vn1.Title != "Clannad" {
		t.Errorf("title should come from the non-empty side, got %q", vn1.Title)
	}
}

func TestMergeHourlySpeedAveragesNonZero(t *testing.T) {
	// Speeds are rates: two days reading in hour 9 average, they do not sum.
	a := models.NewDailyStats("2025-01-01")
	a.HourlySpeed = map[int]float64{9: 1000, 10: 0}
	b := models.NewDailyStats("2025-01-02")
	b.HourlySpeed = map[int]float64{9: 3000, 11: 500}

	m := Merge(FromDaily(a), FromDaily(b))

	if !approxEqual(m.HourlySpeed[9], 2000) {
		t.Errorf("hour 9 speed = %v, want average 2000", m.HourlySpeed[9])
	}
	if !approxEqual(m.HourlySpeed[11], 500) {
		t.Errorf("hour 11 speed = %v, want 500", m.HourlySpeed[11])
	}
	if _, ok := m.HourlySpeed[10]; ok {
		t.Error("zero-speed hours must not appear in the merged map")
	}
}

func TestMergeThreeDayHourlySpeedStaysAnAverage(t *testing.T) {
	// Mean of 600, 1200, 1800 is 1200 regardless of fold order; a naive
	// pairwise average-of-averages would give 1350 for ((600+1200)/2+1800)/2.
	mk := func(date string, speed float64) models.DailyStats {
		d := models.NewDailyStats(date)
		d.HourlySpeed = map[int]float64{20: speed}
		return d
	}
	days := []models.DailyStats{
		mk("2025-01-01", 600), mk("2025-01-02", 1200), mk("2025-01-03", 1800),
	}

	m := MergeAll(days)

	if !approxEqual(m.HourlySpeed[20], 1200) {
		t.Errorf("three-day speed = %v, want 1200", m.HourlySpeed[20])
	}
}

func TestMergeCommutativeAssociative(t *testing.T) {
	a := day("2025-01-01", 500, 3600)
	a.KanjiFreq = map[string]int64{"日": 1}
	a.HourlySpeed = map[int]float64{9: 500}
	a.ShortestSessionSecs = 30
	b := day("2025-01-02", 700, 1200)
	b.KanjiFreq = map[string]int64{"日": 2, "語": 1}
	b.HourlySpeed = map[int]float64{9: 1500, 10: 800}
	b.ShortestSessionSecs = 0
	c := day("2025-01-03", 50, 600)
	c.HourlySpeed = map[int]float64{10: 400}
	c.ShortestSessionSecs = 90

	perms := [][]models.DailyStats{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}

	base := MergeAll(perms[0])
	for i, p := range perms[1:] {
		got := MergeAll(p)
		if !resultsEquivalent(base, got) {
			t.Errorf("permutation %d differs:\n got %+v\nwant %+v",
				i+1, got.DailyStats, base.DailyStats)
		}
	}

	// Grouping: (a+b)+c vs a+(b+c).
	left := Merge(Merge(FromDaily(a), FromDaily(b)), FromDaily(c))
	right := Merge(FromDaily(a), Merge(FromDaily(b), FromDaily(c)))
	if !resultsEquivalent(left, right) {
		t.Errorf("grouping changed the result:\n got %+v\nwant %+v",
			right.DailyStats, left.DailyStats)
	}
}

// resultsEquivalent compares two results with float tolerance.
func resultsEquivalent(a, b *Result) bool {
	if a.Days != b.Days ||
		a.TotalChars != b.TotalChars ||
		a.TotalLines != b.TotalLines ||
		a.TotalSessions != b.TotalSessions ||
		a.MaxSessionChars != b.MaxSessionChars ||
		!approxEqual(a.ActiveSecs, b.ActiveSecs) ||
		!approxEqual(a.AvgSpeed, b.AvgSpeed) ||
		!approxEqual(a.AvgSessionSecs, b.AvgSessionSecs) ||
		!approxEqual(a.ShortestSessionSecs, b.ShortestSessionSecs) ||
		!approxEqual(a.LongestSessionSecs, b.LongestSessionSecs) ||
		!approxEqual(a.PeakHourlySpeed, b.PeakHourlySpeed) {
		return false
	}
	if !reflect.DeepEqual(a.Entities, b.Entities) ||
		!reflect.DeepEqual(a.KanjiFreq, b.KanjiFreq) ||
		!reflect.DeepEqual(a.HourlyChars, b.HourlyChars) {
		return false
	}
	if len(a.HourlySpeed) != len(b.HourlySpeed) {
		return false
	}
	for h, v := range a.HourlySpeed {
		if !approxEqual(v, b.HourlySpeed[h]) {
			return false
		}
	}
	if len(a.EntityStats) != len(b.EntityStats) {
		return false
	}
	for id, ea := range a.EntityStats {
		eb := b.EntityStats[id]
		if ea.Chars != eb.Chars || ea.Lines != eb.Lines ||
			ea.Title != eb.Title || !approxEqual(ea.TimeSecs, eb.TimeSecs) {
			return false
		}
	}
	return true
}
