// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

package models

import "time"

// Event is a single line of text the user read, as captured by the
// ingest pipeline. Events are immutable once written.
type Event struct {
	ID       string `json:"id"`
	EntityID string `json:"entity_id,omitempty"` // empty when the line is not attributed to a title
	// EntityTitle is the display name of the entity as known to the capture
	// side at event time. Informational only; never used as a grouping key.
	EntityTitle string `json:"entity_title,omitempty"`
	Text        string `json:"text"`
	// Timestamp is seconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`

	// Attachment flags recorded by the capture side. The analyzer only
	// counts them; it never inspects the attachments themselves.
	HasScreenshot  bool `json:"has_screenshot,omitempty"`
	HasAudio       bool `json:"has_audio,omitempty"`
	HasTranslation bool `json:"has_translation,omitempty"`
	CardCreated    bool `json:"card_created,omitempty"`
}

// Time returns the event timestamp as a time.Time in the given location.
func (e Event) Time(loc *time.Location) time.Time {
	return time.Unix(e.Timestamp, 0).In(loc)
}
