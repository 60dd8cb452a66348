// SPDX-License-Identifier: GPL-3.0-or-later

// Package scoring holds the weighted-signal engines: each engine accumulates
// independent signals with fixed weights, sums them and compares against a
// threshold. The weights are configuration defaults, not tuned constants.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mailsweep/mailsweep/domain"
)

const (
	// DefaultNewsletterMinCount is the minimum bucket size a domain needs
	// before it is scored at all.
	DefaultNewsletterMinCount = 5

	NewsletterOpportunityThreshold = 3

	weightDomainKeyword    = 2
	weightSubjectKeywords  = 3
	weightHighVolume       = 2
	weightAutomatedSender  = 3
	highVolumeCount        = 20
	subjectKeywordMinShare = 0.30
)

// newsletterKeywords is a fixed multilingual marker list for bulk/marketing
// senders.
var newsletterKeywords = []string{
	"newsletter", "news", "marketing", "promo", "angebot", "rabatt", "sale",
	"deal", "offer", "update", "digest", "bulletin", "aktion", "nieuwsbrief",
	"boletin", "infolettre",
}

var automatedSenderPatterns = []string{
	"no-reply", "noreply", "no_reply", "donotreply", "do-not-reply",
	"newsletter", "mailer", "notification", "automated",
}

// ScoreNewsletter evaluates one domain bucket. The caller is responsible for
// the minimum-count gate; the function itself scores any bucket.
func ScoreNewsletter(bucket *domain.DomainBucket) (int, []string) {
	score := 0
	reasons := []string{}

	if containsAny(strings.ToLower(bucket.Domain), newsletterKeywords) {
		score += weightDomainKeyword
		reasons = append(reasons, "domain name contains a newsletter keyword")
	}

	keyworded := 0
	for _, m := range bucket.Messages {
		if containsAny(strings.ToLower(m.Subject), newsletterKeywords) {
			keyworded++
		}
	}
	if len(bucket.Messages) > 0 && float64(keyworded)/float64(len(bucket.Messages)) >= subjectKeywordMinShare {
		score += weightSubjectKeywords
		reasons = append(reasons, fmt.Sprintf("%d of %d subjects look like newsletters", keyworded, len(bucket.Messages)))
	}

	if bucket.Count > highVolumeCount {
		score += weightHighVolume
		reasons = append(reasons, fmt.Sprintf("high volume sender (%d messages)", bucket.Count))
	}

	// only the local part is checked, the domain already had its own signal
	if local := localPart(sampleSender(bucket)); local != "" && containsAny(strings.ToLower(local), automatedSenderPatterns) {
		score += weightAutomatedSender
		reasons = append(reasons, "sender address looks automated")
	}

	return score, reasons
}

// NewsletterOpportunities scores every sufficiently large bucket and returns
// the domains at or above the opportunity threshold, sorted by score, then
// message count, both descending.
func NewsletterOpportunities(cache *domain.Cache, minCount int) []*domain.NewsletterOpportunity {
	if minCount < 1 {
		minCount = DefaultNewsletterMinCount
	}

	opportunities := []*domain.NewsletterOpportunity{}
	for _, bucket := range cache.Buckets {
		if bucket.Count < minCount {
			continue
		}

		score, reasons := ScoreNewsletter(bucket)
		if score < NewsletterOpportunityThreshold {
			continue
		}

		opportunities = append(opportunities, &domain.NewsletterOpportunity{
			Domain:       bucket.Domain,
			MessageCount: bucket.Count,
			Score:        score,
			Reasons:      reasons,
			SampleSender: sampleSender(bucket),
		})
	}

	sort.Slice(opportunities, func(i, j int) bool {
		if opportunities[i].Score != opportunities[j].Score {
			return opportunities[i].Score > opportunities[j].Score
		}
		if opportunities[i].MessageCount != opportunities[j].MessageCount {
			return opportunities[i].MessageCount > opportunities[j].MessageCount
		}
		return opportunities[i].Domain < opportunities[j].Domain
	})

	return opportunities
}

func sampleSender(bucket *domain.DomainBucket) string {
	for _, m := range bucket.Messages {
		if m.SenderEmail != "" {
			return m.SenderEmail
		}
	}
	return ""
}

func localPart(address string) string {
	if at := strings.LastIndexByte(address, '@'); at > -1 {
		return address[:at]
	}
	return address
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
