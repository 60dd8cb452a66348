// SPDX-License-Identifier: GPL-3.0-or-later
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailsweep/mailsweep/domain"
)

const icsTimeLayout = "20060102T150405Z"

// WriteIcs renders the detected events as one VCALENDAR. Lines are
// CRLF-terminated as RFC 5545 demands.
func WriteIcs(w io.Writer, events []*domain.CalendarEvent) error {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//mailsweep//EN",
	}

	for _, event := range events {
		lines = append(lines, eventLines(event)...)
	}

	lines = append(lines, "END:VCALENDAR")

	_, err := io.WriteString(w, strings.Join(lines, "\r\n")+"\r\n")
	if err != nil {
		return fmt.Errorf("could not write calendar: %w", err)
	}
	return nil
}

func eventLines(event *domain.CalendarEvent) []string {
	lines := []string{
		"BEGIN:VEVENT",
		"UID:" + escapeText(event.Message.ID) + "@mailsweep",
		"DTSTAMP:" + timeOrNow(event.Message.ReceivedAt).UTC().Format(icsTimeLayout),
		"DTSTART:" + event.Start.UTC().Format(icsTimeLayout),
		"DTEND:" + event.End.UTC().Format(icsTimeLayout),
		"SUMMARY:" + escapeText(event.Summary),
	}
	// ORGANIZER needs a mailto target; a display name alone is not enough
	if event.Organizer != "" && event.Message.SenderEmail != "" {
		lines = append(lines, "ORGANIZER;CN="+escapeText(event.Organizer)+":mailto:"+event.Message.SenderEmail)
	}
	lines = append(lines, "END:VEVENT")
	return lines
}

// escapeText escapes the characters RFC 5545 reserves in text values.
func escapeText(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
		"\r", "",
	)
	return r.Replace(s)
}

// timeOrNow guards against zero DTSTAMP values from messages that carried no
// date header.
func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
