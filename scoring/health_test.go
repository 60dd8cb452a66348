// SPDX-License-Identifier: GPL-3.0-or-later
package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/mailsweep/mailsweep/domain"

	"github.com/stretchr/testify/assert"
)

func healthCache(count int, mutate func(i int, m *domain.CachedMessage)) *domain.Cache {
	cache := domain.NewCache("user@example.com")
	bucket := &domain.DomainBucket{Domain: "a.com"}
	for i := 0; i < count; i++ {
		size := int64(10 * 1024) // 10 KiB keeps storage signals quiet
		m := &domain.CachedMessage{
			ID:          fmt.Sprintf("%d", i),
			Subject:     "hello",
			SenderEmail: "a@a.com",
			SizeBytes:   &size,
			IsRead:      true,
			ReceivedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		}
		if mutate != nil {
			mutate(i, m)
		}
		bucket.Messages = append(bucket.Messages, m)
	}
	bucket.Count = len(bucket.Messages)
	cache.Buckets["a.com"] = bucket

	// second domain avoids the single-domain dominance deduction
	other := &domain.DomainBucket{Domain: "b.com"}
	for i := 0; i < count*2; i++ {
		size := int64(10 * 1024)
		other.Messages = append(other.Messages, &domain.CachedMessage{
			ID:          fmt.Sprintf("b%d", i),
			SenderEmail: "b@b.com",
			SizeBytes:   &size,
			IsRead:      true,
			ReceivedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		})
	}
	other.Count = len(other.Messages)
	cache.Buckets["b.com"] = other
	return cache
}

func TestScoreHealthEmptyCache(t *testing.T) {
	report := ScoreHealth(domain.NewCache("user@example.com"), time.Now())
	assert.Equal(t, 100, report.Score)
	assert.Equal(t, domain.GradeA, report.Grade)
}

func TestScoreHealthCleanMailbox(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	report := ScoreHealth(healthCache(10, nil), now)

	// b.com holds 2/3 of the mail, dominance is the only deduction
	assert.Equal(t, 90, report.Score)
	assert.Equal(t, domain.GradeA, report.Grade)
	assert.Len(t, report.Deductions, 1)
}

func TestScoreHealthUnreadRatio(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	cache := healthCache(10, func(i int, m *domain.CachedMessage) {
		m.IsRead = false // 10 of 30 unread = 33%
	})
	report := ScoreHealth(cache, now)
	assert.Equal(t, 80, report.Score, "soft unread deduction on top of dominance")

	cache = healthCache(10, nil)
	for _, m := range cache.Buckets["b.com"].Messages {
		m.IsRead = false // 20 of 30 unread = 67%
	}
	report = ScoreHealth(cache, now)
	assert.Equal(t, 75, report.Score, "hard unread deduction on top of dominance")
	assert.Equal(t, domain.GradeB, report.Grade)
}

func TestScoreHealthOldMailbox(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) // everything ~2 years old
	report := ScoreHealth(healthCache(10, nil), now)
	assert.Equal(t, 80, report.Score)
}

func TestScoreHealthStorage(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cache := healthCache(10, func(i int, m *domain.CachedMessage) {
		size := int64(200 * 1024 * 1024) // 2 GB total in a.com
		m.SizeBytes = &size
	})

	report := ScoreHealth(cache, now)
	assert.Equal(t, 80, report.Score, "soft storage deduction on top of dominance")
}

func TestScoreHealthUnknownSizesUseEstimate(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cache := healthCache(10, func(i int, m *domain.CachedMessage) {
		m.SizeBytes = nil
	})

	report := ScoreHealth(cache, now)
	// 10 estimated messages at 1 MB each stay far below the storage limits
	assert.Equal(t, 90, report.Score)
	for _, m := range cache.Buckets["a.com"].Messages {
		assert.Nil(t, m.SizeBytes, "estimates must never be written back")
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score    int
		expected domain.HealthGrade
	}{
		{100, domain.GradeA}, {90, domain.GradeA},
		{89, domain.GradeB}, {75, domain.GradeB},
		{74, domain.GradeC}, {60, domain.GradeC},
		{59, domain.GradeD}, {40, domain.GradeD},
		{39, domain.GradeF}, {0, domain.GradeF},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, gradeFor(tc.score), "score %d", tc.score)
	}
}
