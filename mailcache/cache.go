// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailcache owns the local per-domain message index: building it up
// during an index run, mutating it after confirmed remote operations and
// persisting it as a snapshot. All mutation of a cache goes through this
// package so the bucket invariants (unique ids, Count == len(Messages), no
// empty buckets) hold at every exit point.
package mailcache

import (
	"strings"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/log"
	"github.com/mailsweep/mailsweep/mail"

	"github.com/sirupsen/logrus"
)

// BucketDomain decides the bucket for a sender address.
func BucketDomain(senderEmail string) string {
	d := mail.AddressDomain(senderEmail)
	if d == "" {
		return domain.UnknownDomain
	}
	return d
}

// Add appends a message to the bucket of its sender domain, creating the
// bucket on first use. A message id already present in the bucket is refused.
func Add(c *domain.Cache, m *domain.CachedMessage) bool {
	key := BucketDomain(m.SenderEmail)

	bucket, ok := c.Buckets[key]
	if !ok {
		bucket = &domain.DomainBucket{Domain: key}
		c.Buckets[key] = bucket
	}

	for _, existing := range bucket.Messages {
		if existing.ID == m.ID {
			log.Logger(log.LOG_CACHE).WithFields(logrus.Fields{"domain": key, "id": m.ID}).Warn("Message id already cached, skipping")
			return false
		}
	}

	bucket.Messages = append(bucket.Messages, m)
	bucket.Count = len(bucket.Messages)
	return true
}

// RemoveMessage drops one message from a bucket. It must only be called
// after the corresponding remote delete/move has succeeded. An unknown
// domain or id is a logged no-op, so removal is idempotent. A bucket left
// empty is deleted entirely.
func RemoveMessage(c *domain.Cache, bucketDomain, id string) bool {
	if domain.EphemeralDomain(bucketDomain) {
		return false
	}

	l := log.Logger(log.LOG_CACHE)
	bucket, ok := c.Buckets[bucketDomain]
	if !ok {
		l.WithFields(logrus.Fields{"domain": bucketDomain, "id": id}).Warn("Remove for unknown domain, ignoring")
		return false
	}

	for i, m := range bucket.Messages {
		if m.ID != id {
			continue
		}

		bucket.Messages = append(bucket.Messages[:i], bucket.Messages[i+1:]...)
		bucket.Count = len(bucket.Messages)
		if bucket.Count == 0 {
			delete(c.Buckets, bucketDomain)
		}
		return true
	}

	l.WithFields(logrus.Fields{"domain": bucketDomain, "id": id}).Warn("Remove for unknown message id, ignoring")
	return false
}

// RemoveAll drops a whole bucket. Ephemeral view domains are no-ops.
func RemoveAll(c *domain.Cache, bucketDomain string) bool {
	if domain.EphemeralDomain(bucketDomain) {
		return false
	}

	if _, ok := c.Buckets[bucketDomain]; !ok {
		return false
	}

	delete(c.Buckets, bucketDomain)
	return true
}

// Normalize repairs a loaded snapshot: lower-cases domain keys, drops empty
// buckets, removes duplicate ids within a bucket and recomputes counts.
func Normalize(c *domain.Cache) {
	if c.Buckets == nil {
		c.Buckets = map[string]*domain.DomainBucket{}
		return
	}

	normalized := make(map[string]*domain.DomainBucket, len(c.Buckets))
	for key, bucket := range c.Buckets {
		if bucket == nil || len(bucket.Messages) == 0 {
			continue
		}

		lower := strings.ToLower(key)
		target, ok := normalized[lower]
		if !ok {
			target = &domain.DomainBucket{Domain: lower}
			normalized[lower] = target
		}

		seen := map[string]bool{}
		for _, m := range target.Messages {
			seen[m.ID] = true
		}
		for _, m := range bucket.Messages {
			if m == nil || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			target.Messages = append(target.Messages, m)
		}
		target.Count = len(target.Messages)
	}

	for key, bucket := range normalized {
		if bucket.Count == 0 {
			delete(normalized, key)
		}
	}
	c.Buckets = normalized
}
