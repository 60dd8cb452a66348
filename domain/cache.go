// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

const (
	// UnknownDomain collects messages whose sender address carries no
	// @-domain at all.
	UnknownDomain = "unknown-domain"

	// SearchResultsDomain and RecentResultsDomain identify ephemeral result
	// lists that are never backed by the cache. Mutators treat them as no-ops.
	SearchResultsDomain = "#search"
	RecentResultsDomain = "#recent"
)

// CachedMessage is one indexed mail, normalized at the ingestion boundary.
// SizeBytes is nil when the server did not report a size; aggregations apply
// a display-only estimate in that case, the stored value stays nil.
type CachedMessage struct {
	ID              string    `json:"id"`
	Subject         string    `json:"subject"`
	ReceivedAt      time.Time `json:"receivedAt"`
	SenderName      string    `json:"senderName"`
	SenderEmail     string    `json:"senderEmail"`
	SizeBytes       *int64    `json:"sizeBytes,omitempty"`
	HasAttachments  bool      `json:"hasAttachments"`
	AttachmentNames []string  `json:"attachmentNames,omitempty"`
	IsRead          bool      `json:"isRead"`
	BodyPreview     string    `json:"bodyPreview,omitempty"`
	ToRecipients    []string  `json:"toRecipients,omitempty"`
	Categories      []string  `json:"categories,omitempty"`
}

// DomainBucket groups all cached messages of one sender domain.
// Count always equals len(Messages).
type DomainBucket struct {
	Domain   string           `json:"domain"`
	Messages []*CachedMessage `json:"messages"`
	Count    int              `json:"count"`
}

// Cache is the full mailbox snapshot, keyed by lower-cased sender domain.
type Cache struct {
	Mailbox string                   `json:"mailbox"`
	BuiltAt time.Time                `json:"builtAt"`
	Buckets map[string]*DomainBucket `json:"buckets"`
}

func NewCache(mailbox string) *Cache {
	return &Cache{
		Mailbox: mailbox,
		Buckets: map[string]*DomainBucket{},
	}
}

func (c *Cache) Bucket(domain string) *DomainBucket {
	if c == nil || c.Buckets == nil {
		return nil
	}
	return c.Buckets[domain]
}

func (c *Cache) Domains() []string {
	domains := make([]string, 0, len(c.Buckets))
	for d := range c.Buckets {
		domains = append(domains, d)
	}
	return domains
}

func (c *Cache) TotalMessages() int {
	total := 0
	for _, b := range c.Buckets {
		total += b.Count
	}
	return total
}

func (c *Cache) IsEmpty() bool {
	return c == nil || len(c.Buckets) == 0
}

// EphemeralDomain reports whether domain names one of the non-cache-backed
// result views.
func EphemeralDomain(domain string) bool {
	return domain == SearchResultsDomain || domain == RecentResultsDomain
}
