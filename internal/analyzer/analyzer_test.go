// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package analyzer

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/yomistats/yomistats/internal/models"
)

// base is 2025-06-15 10:00:00 UTC; tests bucket hours in UTC for determinism.
var base = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC).Unix()

func testOptions() Options {
	return Options{
		AFKGapSecs:     60,
		SessionGapSecs: 2000,
		Location:       time.UTC,
	}
}

func ev(offset int64, text string) models.Event {
	return models.Event{Text: text, Timestamp: base + offset}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeEmptyWindowIsIdentity(t *testing.T) {
	got := Analyze(nil, testOptions())

	if !got.IsZero() {
		t.Errorf("empty window should yield the identity element, got %+v", got)
	}
	if got.KanjiFreq == nil || got.HourlyChars == nil || got.EntityStats == nil {
		t.Error("identity element must have initialized maps")
	}
}

func TestAnalyzeCappedGapActiveTime(t *testing.T) {
	// Gaps of 10s and 990s; the second is capped at the 60s AFK threshold.
	events := []models.Event{ev(0, "a"), ev(10, "b"), ev(1000, "c")}

	got := Analyze(events, testOptions())

	if !approxEqual(got.ActiveSecs, 70) {
		t.Errorf("active time = %v, want 70 (10 + capped 60)", got.ActiveSecs)
	}
	if got.TotalSessions != 1 {
		t.Errorf("sessions = %d, want 1", got.TotalSessions)
	}
}

func TestAnalyzeSingleEvent(t *testing.T) {
	got := Analyze([]models.Event{ev(0, "こんにちは")}, testOptions())

	if got.ActiveSecs != 0 {
		t.Errorf("single event active time = %v, want 0", got.ActiveSecs)
	}
	if got.MaxSessionChars != 5 {
		t.Errorf("max session chars = %d, want 5", got.MaxSessionChars)
	}
	if got.TotalSessions != 1 || got.SessionsCompleted != 0 {
		t.Errorf("sessions = %d completed = %d, want 1 and 0",
			got.TotalSessions, got.SessionsCompleted)
	}
	if got.ShortestSessionSecs != 0 {
		t.Errorf("zero-duration session must not set the minimum, got %v",
			got.ShortestSessionSecs)
	}
}

func TestAnalyzeSessionSegmentation(t *testing.T) {
	// Two sessions: {0, 30, 60} and {5000, 5010}. Gap 4940 > 2000 splits.
	events := []models.Event{
		ev(0, "aaaa"), ev(30, "bb"), ev(60, "cc"),
		ev(5000, "ddddddddd"), ev(5010, "e"),
	}

	got := Analyze(events, testOptions())

	if got.TotalSessions != 2 {
		t.Fatalf("sessions = %d, want 2", got.TotalSessions)
	}
	if !approxEqual(got.LongestSessionSecs, 60) {
		t.Errorf("longest = %v, want 60", got.LongestSessionSecs)
	}
	if !approxEqual(got.ShortestSessionSecs, 10) {
		t.Errorf("shortest = %v, want 10", got.ShortestSessionSecs)
	}
	if got.MaxSessionChars != 10 {
		t.Errorf("max session chars = %d, want 10", got.MaxSessionChars)
	}
	if !approxEqual(got.ActiveSecs, 70) {
		t.Errorf("active = %v, want 70", got.ActiveSecs)
	}
	if !approxEqual(got.AvgSessionSecs, 35) {
		t.Errorf("avg session = %v, want 35", got.AvgSessionSecs)
	}
	if got.SessionsCompleted != 2 {
		t.Errorf("completed = %d, want 2", got.SessionsCompleted)
	}
}

func TestAnalyzeAverageSpeed(t *testing.T) {
	// 100 chars over 50 active seconds: 100/50*3600 = 7200 chars/hour.
	events := []models.Event{
		{Text: repeatRune('あ', 40), Timestamp: base},
		{Text: repeatRune('い', 60), Timestamp: base + 50},
	}

	got := Analyze(events, testOptions())

	if got.TotalChars != 100 {
		t.Fatalf("total chars = %d, want 100", got.TotalChars)
	}
	if !approxEqual(got.AvgSpeed, 7200) {
		t.Errorf("avg speed = %v, want 7200", got.AvgSpeed)
	}
}

func TestAnalyzeHourlyBuckets(t *testing.T) {
	// Two events in hour 10 (50s apart), one event in hour 11.
	events := []models.Event{
		ev(0, repeatRune('a', 30)),
		ev(50, repeatRune('b', 70)),
		ev(3600, repeatRune('c', 20)),
	}

	got := Analyze(events, testOptions())

	if got.HourlyChars[10] != 100 || got.HourlyChars[11] != 20 {
		t.Errorf("hourly chars = %v, want 100 at 10 and 20 at 11", got.HourlyChars)
	}
	if !approxEqual(got.HourlySpeed[10], 7200) {
		t.Errorf("hour 10 speed = %v, want 7200", got.HourlySpeed[10])
	}
	if got.HourlySpeed[11] != 0 {
		t.Errorf("single-event bucket speed = %v, want 0", got.HourlySpeed[11])
	}
	if !approxEqual(got.PeakHourlySpeed, 7200) {
		t.Errorf("peak = %v, want 7200", got.PeakHourlySpeed)
	}
}

func TestAnalyzeKanjiFrequency(t *testing.T) {
	events := []models.Event{
		ev(0, "日本語の日"),
		ev(10, "語り部、ひらがなとカタカナは数えない"),
	}

	got := Analyze(events, testOptions())

	want := map[string]int64{"日": 2, "本": 1, "語": 2, "数": 1, "部": 1}
	if !reflect.DeepEqual(got.KanjiFreq, want) {
		t.Errorf("kanji freq = %v, want %v", got.KanjiFreq, want)
	}
}

func TestAnalyzePerEntity(t *testing.T) {
	// Interleaved reading of two titles. Entity times come from each
	// entity's own timestamps, not the global session.
	events := []models.Event{
		{EntityID: "vn-1", EntityTitle: "Clannad", Text: "ああああ", Timestamp: base},
		{EntityID: "vn-2", EntityTitle: "Steins;Gate", Text: "いい", Timestamp: base + 10},
		{EntityID: "vn-1", Text: "うう", Timestamp: base + 30},
		{EntityID: "", Text: "unattributed", Timestamp: base + 40},
	}

	got := Analyze(events, testOptions())

	if !reflect.DeepEqual(got.Entities, []string{"vn-1", "vn-2"}) {
		t.Fatalf("entities = %v, want [vn-1 vn-2]", got.Entities)
	}

	vn1 := got.EntityStats["vn-1"]
	if vn1.Chars != 6 || vn1.Lines != 2 || !approxEqual(vn1.TimeSecs, 30) {
		t.Errorf("vn-1 = %+v, want chars 6 lines 2 time 30", vn1)
	}
	if vn1.Title != "Clannad" {
		t.Errorf("vn-1 title = %q, want Clannad", vn1.Title)
	}

	vn2 := got.EntityStats["vn-2"]
	if vn2.Chars != 2 || vn2.Lines != 1 || vn2.TimeSecs != 0 {
		t.Errorf("vn-2 = %+v, want chars 2 lines 1 time 0", vn2)
	}
}

func TestAnalyzeAttachmentCounters(t *testing.T) {
	events := []models.Event{
		{Text: "a", Timestamp: base, HasScreenshot: true, HasAudio: true},
		{Text: "b", Timestamp: base + 1, HasTranslation: true, CardCreated: true},
		{Text: "c", Timestamp: base + 2, CardCreated: true},
	}

	got := Analyze(events, testOptions())

	if got.ScreenshotCount != 1 || got.AudioCount != 1 ||
		got.TranslationCount != 1 || got.CardsCreated != 2 {
		t.Errorf("attachment counters = %d/%d/%d/%d, want 1/1/1/2",
			got.ScreenshotCount, got.AudioCount, got.TranslationCount, got.CardsCreated)
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	events := []models.Event{
		{EntityID: "vn-1", Text: "日本語テキスト", Timestamp: base + 90},
		{EntityID: "vn-1", Text: "もっと読む", Timestamp: base},
		{EntityID: "vn-2", Text: "別の作品", Timestamp: base + 30},
	}

	a := Analyze(events, testOptions())
	b := Analyze(events, testOptions())

	if !reflect.DeepEqual(a, b) {
		t.Errorf("Analyze is not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestAnalyzeUnsortedInput(t *testing.T) {
	sorted := []models.Event{ev(0, "a"), ev(10, "b"), ev(1000, "c")}
	shuffled := []models.Event{sorted[2], sorted[0], sorted[1]}

	if !reflect.DeepEqual(Analyze(sorted, testOptions()), Analyze(shuffled, testOptions())) {
		t.Error("input order must not affect the result")
	}
}

func repeatRune(r rune, n int) string {
	rs := make([]rune, n)
	for i := range rs {
		rs[i] = r
	}
	return string(rs)
}
