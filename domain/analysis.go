// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

// DuplicateGroup is a derived set of messages sharing one fingerprint.
// Keep is the most recently received member, Deletable the rest.
type DuplicateGroup struct {
	Fingerprint string
	Keep        *CachedMessage
	Deletable   []*CachedMessage
}

// NewsletterOpportunity flags a sender domain as a likely bulk/marketing
// source.
type NewsletterOpportunity struct {
	Domain       string
	MessageCount int
	Score        int
	Reasons      []string
	SampleSender string
}

type ThreatSeverity string

const (
	SeverityNone   = ThreatSeverity("none")
	SeverityLow    = ThreatSeverity("low")
	SeverityMedium = ThreatSeverity("medium")
	SeverityHigh   = ThreatSeverity("high")
)

type ThreatAssessment struct {
	Message  *CachedMessage
	Score    int
	Severity ThreatSeverity
	Reasons  []string
}

type HealthGrade string

const (
	GradeA = HealthGrade("A")
	GradeB = HealthGrade("B")
	GradeC = HealthGrade("C")
	GradeD = HealthGrade("D")
	GradeF = HealthGrade("F")
)

type HealthReport struct {
	Score      int
	Grade      HealthGrade
	Deductions []string
}

// CalendarEvent is a meeting-like mail with the fields a VEVENT needs.
type CalendarEvent struct {
	Message   *CachedMessage
	Score     int
	Reasons   []string
	Start     time.Time
	End       time.Time
	Summary   string
	Organizer string
}

type SenderVolume struct {
	Domain       string
	MessageCount int
	StorageMB    float64
}

type MonthBucket struct {
	Month        string // YYYY-MM
	MessageCount int
	StorageMB    float64
}

type MailboxOverview struct {
	TotalMessages    int
	TotalDomains     int
	TotalMB          float64
	AverageMB        float64
	WithAttachments  int
	UnreadCount      int
	EstimatedLegacy  int // messages whose size had to be estimated
	OldestReceivedAt time.Time
	NewestReceivedAt time.Time
}
