// SPDX-License-Identifier: GPL-3.0-or-later
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/mail"

	"github.com/agnivade/levenshtein"
)

const (
	weightPhishingKeyword = 3
	weightSenderMismatch  = 2
	weightTyposquat       = 4
	weightAuthFailure     = 3

	typosquatMaxDistance = 2

	threatLowThreshold    = 3
	threatMediumThreshold = 5
	threatHighThreshold   = 8
)

var phishingKeywords = []string{
	"verify your account", "password expired", "suspended", "urgent action",
	"confirm your identity", "unusual activity", "click here immediately",
	"konto gesperrt", "verifizieren", "wire transfer", "gift card",
	"invoice overdue", "security alert",
}

// authFailureMarkers are category labels a provider attaches when SPF/DKIM/
// DMARC evaluation failed.
var authFailureMarkers = []string{
	"spf-fail", "dkim-fail", "dmarc-fail", "auth-failed", "spoof",
}

// ScoreThreat assesses one message against the known-good domain list.
func ScoreThreat(m *domain.CachedMessage, knownDomains []string) *domain.ThreatAssessment {
	score := 0
	reasons := []string{}

	subject := strings.ToLower(m.Subject)
	if containsAny(subject, phishingKeywords) {
		score += weightPhishingKeyword
		reasons = append(reasons, "subject contains phishing wording")
	}

	senderDomain := mail.AddressDomain(m.SenderEmail)
	if nameDomain := displayNameDomain(m.SenderName); nameDomain != "" && senderDomain != "" && nameDomain != senderDomain {
		score += weightSenderMismatch
		reasons = append(reasons, fmt.Sprintf("display name claims %s but address is %s", nameDomain, senderDomain))
	}

	if senderDomain != "" {
		for _, known := range knownDomains {
			known = strings.ToLower(known)
			if senderDomain == known {
				break
			}
			d := levenshtein.ComputeDistance(senderDomain, known)
			if d > 0 && d <= typosquatMaxDistance {
				score += weightTyposquat
				reasons = append(reasons, fmt.Sprintf("%s is suspiciously close to %s", senderDomain, known))
				break
			}
		}
	}

	for _, c := range m.Categories {
		if containsAny(strings.ToLower(c), authFailureMarkers) {
			score += weightAuthFailure
			reasons = append(reasons, "message failed sender authentication")
			break
		}
	}

	return &domain.ThreatAssessment{
		Message:  m,
		Score:    score,
		Severity: severityFor(score),
		Reasons:  reasons,
	}
}

// ScanThreats runs the threat scorer over the whole cache and returns only
// messages with at least low severity, most severe first.
func ScanThreats(cache *domain.Cache, knownDomains []string) []*domain.ThreatAssessment {
	threats := []*domain.ThreatAssessment{}
	for _, bucket := range cache.Buckets {
		for _, m := range bucket.Messages {
			assessment := ScoreThreat(m, knownDomains)
			if assessment.Severity != domain.SeverityNone {
				threats = append(threats, assessment)
			}
		}
	}

	sort.SliceStable(threats, func(i, j int) bool { return threats[i].Score > threats[j].Score })
	return threats
}

func severityFor(score int) domain.ThreatSeverity {
	switch {
	case score >= threatHighThreshold:
		return domain.SeverityHigh
	case score >= threatMediumThreshold:
		return domain.SeverityMedium
	case score >= threatLowThreshold:
		return domain.SeverityLow
	}
	return domain.SeverityNone
}

// displayNameDomain extracts a domain-looking token from a display name,
// e.g. `"paypal.com Support" <x@evil.example>`.
func displayNameDomain(name string) string {
	for _, field := range strings.Fields(strings.ToLower(name)) {
		field = strings.Trim(field, "\"'<>()[],;")
		dot := strings.LastIndexByte(field, '.')
		if dot <= 0 || dot == len(field)-1 || strings.ContainsAny(field, "@:/") {
			continue
		}
		tld := field[dot+1:]
		if len(tld) >= 2 && isAlpha(tld) && !strings.ContainsAny(field, " ") {
			return field
		}
	}
	return ""
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
