// SPDX-License-Identifier: GPL-3.0-or-later
package indexer

import (
	"fmt"
	"time"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/log"
	"github.com/mailsweep/mailsweep/mail"
	"github.com/mailsweep/mailsweep/mailcache"

	"github.com/sirupsen/logrus"
)

const BatchSize = 50

// Progress is notified after every fetched batch with the number of
// processed ids and the total to process.
type Progress func(processed, total int)

type Builder struct {
	mailService domain.MailService
	l           *logrus.Logger
}

func NewBuilder(mailService domain.MailService) *Builder {
	return &Builder{
		mailService: mailService,
		l:           log.Logger(log.LOG_INDEXER),
	}
}

// Build runs a full scan and returns a fresh cache that replaces any prior
// one. max == 0 indexes everything; a bounded build requests the newest max
// ids in the server's ordering. Per-item fetch failures are logged and
// skipped, they never abort the build.
func (b *Builder) Build(mailbox string, max int, newestFirst bool, progress Progress) (*domain.Cache, error) {
	ids, err := b.mailService.ListMessageIDs(domain.ListOptions{Max: max, NewestFirst: newestFirst})
	if err != nil {
		return nil, fmt.Errorf("could not list message ids: %w", err)
	}

	cache := domain.NewCache(mailbox)
	batches := partitionIds(ids, BatchSize)
	b.l.WithFields(logrus.Fields{"mailbox": mailbox, "messages": len(ids), "batches": len(batches)}).Info("Indexing mailbox")

	processed := 0
	for _, batch := range batches {
		start := time.Now()
		messages, err := b.mailService.FetchMessages(batch)
		if err != nil {
			// A failed batch degrades to per-item fetches so one broken
			// message cannot sink its whole batch.
			b.l.WithFields(logrus.Fields{"batchsize": len(batch), "error": err}).Warn("Batch fetch failed, retrying items individually")
			messages = b.fetchIndividually(batch)
		}

		for _, m := range messages {
			if m == nil {
				continue
			}
			mailcache.Add(cache, Ingest(m))
		}

		processed += len(batch)
		if progress != nil {
			progress(processed, len(ids))
		}
		b.l.WithFields(logrus.Fields{"duration": time.Since(start), "batchsize": len(batch), "processed": processed}).Debug("Indexed batch")
	}

	cache.BuiltAt = time.Now()
	b.l.WithFields(logrus.Fields{"domains": len(cache.Buckets), "messages": cache.TotalMessages()}).Info("Index build finished")
	return cache, nil
}

func (b *Builder) fetchIndividually(ids []string) []*domain.RemoteMessage {
	messages := []*domain.RemoteMessage{}
	for _, id := range ids {
		m, err := b.mailService.GetMessage(id)
		if err != nil {
			b.l.WithFields(logrus.Fields{"id": id, "error": err}).Warn("Could not fetch message, skipping")
			continue
		}
		messages = append(messages, m)
	}
	return messages
}

// Ingest normalizes a remote message into the cached record. A missing or
// unparseable received time falls back to the epoch instead of failing.
func Ingest(m *domain.RemoteMessage) *domain.CachedMessage {
	received := m.ReceivedAt
	if received.IsZero() {
		received = time.Unix(0, 0).UTC()
	}

	return &domain.CachedMessage{
		ID:              m.ID,
		Subject:         mail.DecodeHeader(m.Subject),
		ReceivedAt:      received,
		SenderName:      mail.DecodeHeader(m.SenderName),
		SenderEmail:     mail.NormalizeAddress(m.SenderEmail),
		SizeBytes:       m.SizeBytes,
		HasAttachments:  m.HasAttachments,
		AttachmentNames: m.AttachmentNames,
		IsRead:          m.IsRead,
		BodyPreview:     m.BodyPreview,
		ToRecipients:    m.ToRecipients,
		Categories:      m.Categories,
	}
}

// taken from https://github.com/golang/go/wiki/SliceTricks
func partitionIds(ids []string, partitionSize int) [][]string {
	batches := make([][]string, 0, (len(ids)+partitionSize-1)/partitionSize)

	for partitionSize < len(ids) {
		ids, batches = ids[partitionSize:], append(batches, ids[0:partitionSize:partitionSize])
	}
	if len(ids) > 0 {
		batches = append(batches, ids)
	}

	return batches
}
