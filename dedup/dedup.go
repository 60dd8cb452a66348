// SPDX-License-Identifier: GPL-3.0-or-later

// Package dedup finds redundant message copies via deterministic
// fingerprints over normalized subject, sender and minute-truncated
// receive time.
package dedup

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mailsweep/mailsweep/domain"
)

type Mode int

const (
	Quick Mode = iota
	// Deep additionally mixes in the start of the body preview.
	Deep
)

// replyPrefixes are reply/forward markers stripped from subjects before
// fingerprinting, including localized variants.
var replyPrefixes = []string{
	"re", "fw", "fwd", "aw", "wg", "sv", "vs", "tr", "rv", "odp", "antw",
}

const deepPreviewLen = 100

// NormalizeSubject strips leading reply/forward markers (repeatedly, so
// "Re: Fwd: x" collapses) and squeezes whitespace.
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		stripped := false
		lower := strings.ToLower(s)
		for _, p := range replyPrefixes {
			if strings.HasPrefix(lower, p+":") {
				s = strings.TrimSpace(s[len(p)+1:])
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// Fingerprint derives the duplicate-detection hash for a message. Messages
// with neither subject nor sender cannot be fingerprinted; ok is false and
// the message is skipped from grouping.
func Fingerprint(m *domain.CachedMessage, mode Mode) (fingerprint string, ok bool) {
	subject := NormalizeSubject(m.Subject)
	sender := strings.ToLower(strings.TrimSpace(m.SenderEmail))
	if subject == "" && sender == "" {
		return "", false
	}

	minute := m.ReceivedAt.UTC().Truncate(time.Minute).Format("2006-01-02T15:04")
	payload := subject + "|" + sender + "|" + minute
	if mode == Deep {
		preview := m.BodyPreview
		if len(preview) > deepPreviewLen {
			preview = preview[:deepPreviewLen]
		}
		payload += "|" + preview
	}

	return fmt.Sprintf("%x", sha256.Sum256([]byte(payload))), true
}

// FindDuplicates groups all cached messages by fingerprint and keeps only
// groups with at least two members. Within a group the most recently
// received message is the keeper; ties preserve cache order, so the result
// is stable across runs.
func FindDuplicates(cache *domain.Cache, mode Mode) []*domain.DuplicateGroup {
	byFingerprint := map[string][]*domain.CachedMessage{}
	order := []string{}
	for _, bucket := range cache.Buckets {
		for _, m := range bucket.Messages {
			fp, ok := Fingerprint(m, mode)
			if !ok {
				continue
			}
			if _, seen := byFingerprint[fp]; !seen {
				order = append(order, fp)
			}
			byFingerprint[fp] = append(byFingerprint[fp], m)
		}
	}
	sort.Strings(order)

	groups := []*domain.DuplicateGroup{}
	for _, fp := range order {
		members := byFingerprint[fp]
		if len(members) < 2 {
			continue
		}

		keep, deletable := Partition(members)
		groups = append(groups, &domain.DuplicateGroup{
			Fingerprint: fp,
			Keep:        keep,
			Deletable:   deletable,
		})
	}

	return groups
}

// Partition splits a duplicate group into the message to keep (the newest;
// stable on timestamp ties) and the deletion candidates.
func Partition(members []*domain.CachedMessage) (*domain.CachedMessage, []*domain.CachedMessage) {
	keep := members[0]
	for _, m := range members[1:] {
		if m.ReceivedAt.After(keep.ReceivedAt) {
			keep = m
		}
	}

	deletable := []*domain.CachedMessage{}
	for _, m := range members {
		if m != keep {
			deletable = append(deletable, m)
		}
	}
	return keep, deletable
}
