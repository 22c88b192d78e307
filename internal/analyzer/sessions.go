// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package analyzer

import (
	"unicode/utf8"

	"github.com/yomistats/yomistats/internal/models"
)

// session is one contiguous run of events separated from its neighbors by
// gaps larger than the session-gap threshold.
type session struct {
	durationSecs float64
	chars        int64
	events       int
}

// segmentSessions walks the sorted events and splits them into sessions.
// Within a session every inter-event gap is capped at the AFK threshold
// before it is added to the session duration; idle stretches are discounted
// without discarding the session itself.
func segmentSessions(sorted []models.Event, opts Options) []session {
	if len(sorted) == 0 {
		return nil
	}

	var sessions []session
	cur := session{}
	prevTS := sorted[0].Timestamp

	for i, ev := range sorted {
		if i > 0 {
			gap := float64(ev.Timestamp - prevTS)
			if gap > opts.SessionGapSecs {
				sessions = append(sessions, cur)
				cur = session{}
			} else {
				cur.durationSecs += capGap(gap, opts.AFKGapSecs)
			}
		}
		cur.chars += int64(utf8.RuneCountInString(ev.Text))
		cur.events++
		prevTS = ev.Timestamp
	}
	return append(sessions, cur)
}

// analyzeSessions fills the session-derived fields of stats.
func analyzeSessions(sorted []models.Event, opts Options, stats *models.DailyStats) {
	sessions := segmentSessions(sorted, opts)

	for _, s := range sessions {
		stats.TotalSessions++
		stats.SessionsStarted++
		if s.events > 1 {
			stats.SessionsCompleted++
		}
		stats.ActiveSecs += s.durationSecs

		if s.durationSecs > stats.LongestSessionSecs {
			stats.LongestSessionSecs = s.durationSecs
		}
		if s.durationSecs > stats.MaxSessionSecs {
			stats.MaxSessionSecs = s.durationSecs
		}
		// Zero-duration (single-event) sessions are ignored for the
		// minimum; see the merge rule for ShortestSessionSecs.
		if s.durationSecs > 0 &&
			(stats.ShortestSessionSecs == 0 || s.durationSecs < stats.ShortestSessionSecs) {
			stats.ShortestSessionSecs = s.durationSecs
		}
		if s.chars > stats.MaxSessionChars {
			stats.MaxSessionChars = s.chars
		}
	}
}

// activeSeconds applies the capped-gap rule to a sorted timestamp slice:
// gaps beyond the session threshold contribute nothing, all other gaps
// contribute at most the AFK threshold.
func activeSeconds(ts []int64, opts Options) float64 {
	var total float64
	for i := 1; i < len(ts); i++ {
		gap := float64(ts[i] - ts[i-1])
		if gap > opts.SessionGapSecs {
			continue
		}
		total += capGap(gap, opts.AFKGapSecs)
	}
	return total
}

func capGap(gap, afk float64) float64 {
	if gap > afk {
		return afk
	}
	return gap
}
