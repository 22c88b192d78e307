// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package analyzer

// CJK Unified Ideographs plus Extension A. Kana, punctuation, and
// full-width Latin are deliberately excluded: the frequency map tracks
// ideograph exposure, not raw character exposure.
const (
	cjkUnifiedStart = 0x4E00
	cjkUnifiedEnd   = 0x9FFF
	cjkExtAStart    = 0x3400
	cjkExtAEnd      = 0x4DBF
)

// isIdeograph reports whether r falls in the counted CJK blocks.
func isIdeograph(r rune) bool {
	return (r >= cjkUnifiedStart && r <= cjkUnifiedEnd) ||
		(r >= cjkExtAStart && r <= cjkExtAEnd)
}

// countIdeographs adds the ideograph occurrences of text into freq.
func countIdeographs(text string, freq map[string]int64) {
	for _, r := range text {
		if isIdeograph(r) {
			freq[string(r)]++
		}
	}
}
