// SPDX-License-Identifier: GPL-3.0-or-later
package scoring

import (
	"fmt"
	"time"

	"github.com/mailsweep/mailsweep/domain"
)

const (
	healthStorageSoftMB   = 1024.0
	healthStorageHardMB   = 5 * 1024.0
	healthUnreadSoftRatio = 0.30
	healthUnreadHardRatio = 0.50
	healthMaxAverageAge   = 365 * 24 * time.Hour
	healthDomainDominance = 0.40
	healthAttachmentShare = 0.50

	deductStorageSoft   = 10
	deductStorageHard   = 15
	deductUnreadSoft    = 10
	deductUnreadHard    = 15
	deductAverageAge    = 10
	deductDominance     = 10
	deductAttachments   = 5
	estimatedMessageKiB = 1024 // display-only fallback for unknown sizes
)

// ScoreHealth grades the mailbox: start at 100 and apply fixed deductions
// for each unhealthy trait. Unknown message sizes use the fixed per-message
// estimate; the cache itself is never touched.
func ScoreHealth(cache *domain.Cache, now time.Time) *domain.HealthReport {
	score := 100
	deductions := []string{}

	total := cache.TotalMessages()
	if total == 0 {
		return &domain.HealthReport{Score: score, Grade: gradeFor(score)}
	}

	var totalBytes int64
	unread, withAttachments := 0, 0
	var ageSum time.Duration
	largestBucket := 0
	largestDomain := ""
	for _, bucket := range cache.Buckets {
		if bucket.Count > largestBucket {
			largestBucket = bucket.Count
			largestDomain = bucket.Domain
		}
		for _, m := range bucket.Messages {
			if m.SizeBytes != nil {
				totalBytes += *m.SizeBytes
			} else {
				totalBytes += estimatedMessageKiB * 1024
			}
			if !m.IsRead {
				unread++
			}
			if m.HasAttachments {
				withAttachments++
			}
			if m.ReceivedAt.Before(now) {
				ageSum += now.Sub(m.ReceivedAt)
			}
		}
	}

	totalMB := float64(totalBytes) / (1024 * 1024)
	switch {
	case totalMB > healthStorageHardMB:
		score -= deductStorageHard
		deductions = append(deductions, fmt.Sprintf("mailbox uses %.0f MB", totalMB))
	case totalMB > healthStorageSoftMB:
		score -= deductStorageSoft
		deductions = append(deductions, fmt.Sprintf("mailbox uses %.0f MB", totalMB))
	}

	unreadRatio := float64(unread) / float64(total)
	switch {
	case unreadRatio > healthUnreadHardRatio:
		score -= deductUnreadHard
		deductions = append(deductions, fmt.Sprintf("%.0f%% of messages are unread", unreadRatio*100))
	case unreadRatio > healthUnreadSoftRatio:
		score -= deductUnreadSoft
		deductions = append(deductions, fmt.Sprintf("%.0f%% of messages are unread", unreadRatio*100))
	}

	if avgAge := ageSum / time.Duration(total); avgAge > healthMaxAverageAge {
		score -= deductAverageAge
		deductions = append(deductions, fmt.Sprintf("average message age is %d days", int(avgAge.Hours()/24)))
	}

	if float64(largestBucket)/float64(total) > healthDomainDominance {
		score -= deductDominance
		deductions = append(deductions, fmt.Sprintf("%s alone accounts for %d of %d messages", largestDomain, largestBucket, total))
	}

	if float64(withAttachments)/float64(total) > healthAttachmentShare {
		score -= deductAttachments
		deductions = append(deductions, fmt.Sprintf("%d messages carry attachments", withAttachments))
	}

	if score < 0 {
		score = 0
	}

	return &domain.HealthReport{
		Score:      score,
		Grade:      gradeFor(score),
		Deductions: deductions,
	}
}

func gradeFor(score int) domain.HealthGrade {
	switch {
	case score >= 90:
		return domain.GradeA
	case score >= 75:
		return domain.GradeB
	case score >= 60:
		return domain.GradeC
	case score >= 40:
		return domain.GradeD
	}
	return domain.GradeF
}
