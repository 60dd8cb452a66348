// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailstats computes display aggregations by streaming the cache.
// All functions are pure readers; unknown message sizes are resolved through
// a fallback chain that never writes back into the cache.
package mailstats

import (
	"math"
	"sort"
	"time"

	"github.com/mailsweep/mailsweep/domain"
)

// DefaultSizeMB is the per-message placeholder when no size can be resolved
// at all. The exact value is a display heuristic, not a measurement.
const DefaultSizeMB = 1.0

// SizeResolver turns a cached message into a byte size for statistics.
// Resolved sizes may be estimates and must never feed back into the cache.
type SizeResolver func(m *domain.CachedMessage) int64

// CachedSizeResolver resolves from the cached field alone, falling back to
// the fixed estimate.
func CachedSizeResolver(m *domain.CachedMessage) int64 {
	if m.SizeBytes != nil {
		return *m.SizeBytes
	}
	return int64(DefaultSizeMB * 1024 * 1024)
}

// RemoteSizeResolver consults the remote size property for unknown sizes
// before falling back to summed attachment sizes and finally the estimate.
func RemoteSizeResolver(mailService domain.MailService) SizeResolver {
	return func(m *domain.CachedMessage) int64 {
		if m.SizeBytes != nil {
			return *m.SizeBytes
		}

		if remote, err := mailService.GetMessage(m.ID); err == nil && remote != nil && remote.SizeBytes != nil {
			return *remote.SizeBytes
		}

		if m.HasAttachments {
			var sum int64
			for _, name := range m.AttachmentNames {
				data, err := mailService.GetAttachment(m.ID, name)
				if err != nil {
					sum = 0
					break
				}
				sum += int64(len(data))
			}
			if sum > 0 {
				return sum
			}
		}

		return int64(DefaultSizeMB * 1024 * 1024)
	}
}

// RoundMB rounds a MB figure half away from zero to two decimals.
func RoundMB(mb float64) float64 {
	return math.Round(mb*100) / 100
}

func toMB(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}

// Overview aggregates the headline numbers of the whole cache.
func Overview(cache *domain.Cache, resolve SizeResolver) *domain.MailboxOverview {
	overview := &domain.MailboxOverview{TotalDomains: len(cache.Buckets)}

	var totalBytes int64
	for _, bucket := range cache.Buckets {
		for _, m := range bucket.Messages {
			overview.TotalMessages++
			totalBytes += resolve(m)
			if m.SizeBytes == nil {
				overview.EstimatedLegacy++
			}
			if m.HasAttachments {
				overview.WithAttachments++
			}
			if !m.IsRead {
				overview.UnreadCount++
			}
			if overview.OldestReceivedAt.IsZero() || m.ReceivedAt.Before(overview.OldestReceivedAt) {
				overview.OldestReceivedAt = m.ReceivedAt
			}
			if m.ReceivedAt.After(overview.NewestReceivedAt) {
				overview.NewestReceivedAt = m.ReceivedAt
			}
		}
	}

	overview.TotalMB = RoundMB(toMB(totalBytes))
	if overview.TotalMessages > 0 {
		overview.AverageMB = RoundMB(toMB(totalBytes) / float64(overview.TotalMessages))
	}
	return overview
}

// TopSendersByCount returns the n busiest domains.
func TopSendersByCount(cache *domain.Cache, n int) []*domain.SenderVolume {
	return topSenders(cache, n, CachedSizeResolver, func(a, b *domain.SenderVolume) bool {
		if a.MessageCount != b.MessageCount {
			return a.MessageCount > b.MessageCount
		}
		return a.Domain < b.Domain
	})
}

// TopSendersByStorage returns the n domains using the most storage.
func TopSendersByStorage(cache *domain.Cache, n int, resolve SizeResolver) []*domain.SenderVolume {
	return topSenders(cache, n, resolve, func(a, b *domain.SenderVolume) bool {
		if a.StorageMB != b.StorageMB {
			return a.StorageMB > b.StorageMB
		}
		return a.Domain < b.Domain
	})
}

func topSenders(cache *domain.Cache, n int, resolve SizeResolver, less func(a, b *domain.SenderVolume) bool) []*domain.SenderVolume {
	volumes := StorageByDomain(cache, resolve)
	sort.Slice(volumes, func(i, j int) bool { return less(volumes[i], volumes[j]) })
	if n > 0 && len(volumes) > n {
		volumes = volumes[:n]
	}
	return volumes
}

// StorageByDomain computes per-domain message and storage totals, unsorted.
func StorageByDomain(cache *domain.Cache, resolve SizeResolver) []*domain.SenderVolume {
	volumes := []*domain.SenderVolume{}
	for _, bucket := range cache.Buckets {
		var bytes int64
		for _, m := range bucket.Messages {
			bytes += resolve(m)
		}
		volumes = append(volumes, &domain.SenderVolume{
			Domain:       bucket.Domain,
			MessageCount: bucket.Count,
			StorageMB:    RoundMB(toMB(bytes)),
		})
	}
	return volumes
}

// MonthlyTrend buckets the cache by calendar month of receipt, oldest first.
func MonthlyTrend(cache *domain.Cache, resolve SizeResolver) []*domain.MonthBucket {
	byMonth := map[string]*domain.MonthBucket{}
	bytesByMonth := map[string]int64{}
	for _, bucket := range cache.Buckets {
		for _, m := range bucket.Messages {
			month := m.ReceivedAt.UTC().Format("2006-01")
			entry, ok := byMonth[month]
			if !ok {
				entry = &domain.MonthBucket{Month: month}
				byMonth[month] = entry
			}
			entry.MessageCount++
			bytesByMonth[month] += resolve(m)
		}
	}

	months := []*domain.MonthBucket{}
	for month, entry := range byMonth {
		entry.StorageMB = RoundMB(toMB(bytesByMonth[month]))
		months = append(months, entry)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months
}

// LargeMessages lists all messages with attachments of at least minBytes
// resolved size, largest first.
func LargeMessages(cache *domain.Cache, minBytes int64, resolve SizeResolver) []*domain.CachedMessage {
	large := []*domain.CachedMessage{}
	sizes := map[string]int64{}
	for _, bucket := range cache.Buckets {
		for _, m := range bucket.Messages {
			if !m.HasAttachments {
				continue
			}
			size := resolve(m)
			if size >= minBytes {
				large = append(large, m)
				sizes[m.ID] = size
			}
		}
	}
	sort.SliceStable(large, func(i, j int) bool { return sizes[large[i].ID] > sizes[large[j].ID] })
	return large
}

// ArchiveCandidates lists domains whose newest message is older than the
// cutoff, i.e. senders the user no longer hears from.
func ArchiveCandidates(cache *domain.Cache, olderThan time.Time) []*domain.SenderVolume {
	candidates := []*domain.SenderVolume{}
	for _, bucket := range cache.Buckets {
		newest := time.Time{}
		var bytes int64
		for _, m := range bucket.Messages {
			if m.ReceivedAt.After(newest) {
				newest = m.ReceivedAt
			}
			bytes += CachedSizeResolver(m)
		}
		if newest.Before(olderThan) {
			candidates = append(candidates, &domain.SenderVolume{
				Domain:       bucket.Domain,
				MessageCount: bucket.Count,
				StorageMB:    RoundMB(toMB(bytes)),
			})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].MessageCount > candidates[j].MessageCount })
	return candidates
}
