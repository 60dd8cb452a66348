// SPDX-License-Identifier: GPL-3.0-or-later
package scoring

import (
	"testing"
	"time"

	"github.com/mailsweep/mailsweep/domain"

	"github.com/stretchr/testify/assert"
)

func calMsg(subject string) *domain.CachedMessage {
	return &domain.CachedMessage{
		ID:          "1",
		Subject:     subject,
		SenderEmail: "organizer@example.com",
		ReceivedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestScoreCalendarBelowThreshold(t *testing.T) {
	assert.Nil(t, ScoreCalendar(calMsg("Invoice 42")))
	// keyword alone (3) is not enough
	assert.Nil(t, ScoreCalendar(calMsg("Team meeting")))
}

func TestScoreCalendarKeywordPlusDate(t *testing.T) {
	event := ScoreCalendar(calMsg("Team meeting 2024-06-12T14:30"))
	assert.NotNil(t, event)
	assert.Equal(t, 5, event.Score)
	assert.Equal(t, time.Date(2024, 6, 12, 14, 30, 0, 0, time.UTC), event.Start)
	assert.Equal(t, event.Start.Add(time.Hour), event.End, "default span is one hour")
	assert.Equal(t, "organizer@example.com", event.Organizer)
}

func TestScoreCalendarIcsAttachment(t *testing.T) {
	m := calMsg("Quarterly review")
	m.HasAttachments = true
	m.AttachmentNames = []string{"agenda.pdf", "invite.ICS"}

	event := ScoreCalendar(m)
	assert.NotNil(t, event)
	// keyword (review) + ics attachment
	assert.Equal(t, 7, event.Score)
	assert.Equal(t, m.ReceivedAt, event.Start, "no explicit date falls back to receive time")
}

func TestScoreCalendarPlatformAndLocation(t *testing.T) {
	m := calMsg("Sync about the launch")
	m.BodyPreview = "Join via zoom, or room 4.01 on the 4th floor"

	event := ScoreCalendar(m)
	assert.NotNil(t, event)
	// keyword (sync) + platform + location
	assert.Equal(t, 6, event.Score)
}

func TestScoreCalendarGermanDate(t *testing.T) {
	event := ScoreCalendar(calMsg("Termin: Besprechung am 12.6.2024"))
	assert.NotNil(t, event)
	assert.Equal(t, 5, event.Score)
	assert.Equal(t, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), event.Start)
}

func TestDetectCalendarEvents(t *testing.T) {
	cache := domain.NewCache("user@example.com")
	hit := calMsg("Team meeting 2024-06-12 14:30")
	miss := calMsg("Re: your invoice")
	cache.Buckets["example.com"] = &domain.DomainBucket{
		Domain:   "example.com",
		Messages: []*domain.CachedMessage{hit, miss},
		Count:    2,
	}

	events := DetectCalendarEvents(cache)
	assert.Len(t, events, 1)
	assert.Equal(t, "Team meeting 2024-06-12 14:30", events[0].Summary)
}
