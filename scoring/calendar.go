// SPDX-License-Identifier: GPL-3.0-or-later
package scoring

import (
	"regexp"
	"strings"
	"time"

	"github.com/mailsweep/mailsweep/domain"
)

const (
	weightCalendarKeyword = 3
	weightIcsAttachment   = 4
	weightMeetingPlatform = 2
	weightParseableDate   = 2
	weightLocationKeyword = 1

	calendarEventThreshold = 5

	// a detected event without an explicit end spans one hour
	defaultEventDuration = time.Hour
)

var calendarKeywords = []string{
	"meeting", "invite", "invitation", "appointment", "call", "webinar",
	"termin", "einladung", "besprechung", "conference", "sync", "review",
}

var meetingPlatforms = []string{
	"teams", "zoom", "meet.google", "webex", "gotomeeting", "skype",
}

var locationKeywords = []string{
	"room", "location", "office", "raum", "building", "floor", "address",
}

// datePatterns cover the explicit forms worth extracting from a subject or
// preview; anything else falls back to the message receive time.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})[T ](\d{2}):(\d{2})\b`),
	regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`),
	regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
}

var dateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2.1.2006",
	"2006-01-02",
}

// DetectCalendarEvents scans the cache for meeting-like messages.
func DetectCalendarEvents(cache *domain.Cache) []*domain.CalendarEvent {
	events := []*domain.CalendarEvent{}
	for _, bucket := range cache.Buckets {
		for _, m := range bucket.Messages {
			if event := ScoreCalendar(m); event != nil {
				events = append(events, event)
			}
		}
	}
	return events
}

// ScoreCalendar scores one message; nil when it does not reach the event
// threshold.
func ScoreCalendar(m *domain.CachedMessage) *domain.CalendarEvent {
	score := 0
	reasons := []string{}
	text := strings.ToLower(m.Subject + " " + m.BodyPreview)

	if containsAny(text, calendarKeywords) {
		score += weightCalendarKeyword
		reasons = append(reasons, "subject mentions a meeting")
	}

	for _, name := range m.AttachmentNames {
		if strings.HasSuffix(strings.ToLower(name), ".ics") {
			score += weightIcsAttachment
			reasons = append(reasons, "carries a calendar attachment")
			break
		}
	}

	if containsAny(text, meetingPlatforms) {
		score += weightMeetingPlatform
		reasons = append(reasons, "mentions an online meeting platform")
	}

	start, found := extractDate(m.Subject + " " + m.BodyPreview)
	if found {
		score += weightParseableDate
		reasons = append(reasons, "contains an explicit date")
	} else {
		start = m.ReceivedAt
	}

	if containsAny(text, locationKeywords) {
		score += weightLocationKeyword
		reasons = append(reasons, "mentions a location")
	}

	if score < calendarEventThreshold {
		return nil
	}

	organizer := m.SenderEmail
	if organizer == "" {
		organizer = m.SenderName
	}

	return &domain.CalendarEvent{
		Message:   m,
		Score:     score,
		Reasons:   reasons,
		Start:     start,
		End:       start.Add(defaultEventDuration),
		Summary:   m.Subject,
		Organizer: organizer,
	}
}

func extractDate(text string) (time.Time, bool) {
	for _, pattern := range datePatterns {
		match := pattern.FindString(text)
		if match == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, match); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
