// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailsweep is the interactive session around one mailbox. It owns
// the cache value, runs the index builder and analysis passes and is the
// only place where remote mutations are reflected back into the cache.
package mailsweep

import (
	"fmt"
	"time"

	"github.com/mailsweep/mailsweep/bulk"
	"github.com/mailsweep/mailsweep/dedup"
	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/indexer"
	"github.com/mailsweep/mailsweep/log"
	"github.com/mailsweep/mailsweep/mailcache"
	"github.com/mailsweep/mailsweep/mailstats"
	"github.com/mailsweep/mailsweep/scoring"
	"github.com/mailsweep/mailsweep/smartrules"

	"github.com/sirupsen/logrus"
)

type Session struct {
	mailbox     string
	cache       *domain.Cache
	store       *mailcache.Store
	mailService domain.MailService
	learner     *smartrules.Learner
	queries     domain.QueryRepository

	configuration *configuration

	l *logrus.Logger
}

func NewSession(mailbox string, store *mailcache.Store, mailService domain.MailService, actions domain.ActionRepository, queries domain.QueryRepository, configFunc ...ConfigFunc) (*Session, error) {
	config := &configuration{
		NewestFirst:        true,
		Concurrency:        4,
		BatchSize:          50,
		BatchDelay:         500 * time.Millisecond,
		ArchiveFolder:      "Archive",
		TrashFolder:        "Trash",
		NewsletterMinCount: scoring.DefaultNewsletterMinCount,
	}
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	s := &Session{
		mailbox:       mailbox,
		store:         store,
		mailService:   mailService,
		learner:       smartrules.NewLearner(actions),
		queries:       queries,
		configuration: config,
		l:             log.Logger(log.LOG_SESSION),
	}

	s.cache = store.Load()
	if s.cache == nil {
		s.l.WithField("mailbox", mailbox).Info("No usable cache on disk, index rebuild required")
		s.cache = domain.NewCache(mailbox)
	}

	return s, nil
}

func (s *Session) Cache() *domain.Cache {
	return s.cache
}

func (s *Session) HasIndex() bool {
	return !s.cache.IsEmpty()
}

// RebuildIndex replaces the cache with a fresh full scan and persists it.
func (s *Session) RebuildIndex(progress indexer.Progress) (*domain.Cache, error) {
	cache, err := indexer.NewBuilder(s.mailService).Build(s.mailbox, s.configuration.MaxMessages, s.configuration.NewestFirst, progress)
	if err != nil {
		return nil, fmt.Errorf("could not build index: %w", err)
	}

	err = s.store.Save(cache)
	if err != nil {
		return nil, fmt.Errorf("could not save index: %w", err)
	}

	s.cache = cache
	return cache, nil
}

func (s *Session) Overview() *domain.MailboxOverview {
	return mailstats.Overview(s.cache, s.sizeResolver())
}

func (s *Session) TopSendersByCount(n int) []*domain.SenderVolume {
	return mailstats.TopSendersByCount(s.cache, n)
}

func (s *Session) TopSendersByStorage(n int) []*domain.SenderVolume {
	return mailstats.TopSendersByStorage(s.cache, n, s.sizeResolver())
}

func (s *Session) StorageByDomain() []*domain.SenderVolume {
	return mailstats.StorageByDomain(s.cache, s.sizeResolver())
}

func (s *Session) MonthlyTrend() []*domain.MonthBucket {
	return mailstats.MonthlyTrend(s.cache, s.sizeResolver())
}

func (s *Session) LargeMessages(minBytes int64) []*domain.CachedMessage {
	return mailstats.LargeMessages(s.cache, minBytes, s.sizeResolver())
}

func (s *Session) ArchiveCandidates(olderThan time.Time) []*domain.SenderVolume {
	return mailstats.ArchiveCandidates(s.cache, olderThan)
}

func (s *Session) FindDuplicates(mode dedup.Mode) []*domain.DuplicateGroup {
	return dedup.FindDuplicates(s.cache, mode)
}

func (s *Session) Newsletters() []*domain.NewsletterOpportunity {
	return scoring.NewsletterOpportunities(s.cache, s.configuration.NewsletterMinCount)
}

func (s *Session) Threats() []*domain.ThreatAssessment {
	return scoring.ScanThreats(s.cache, s.configuration.KnownDomains)
}

func (s *Session) Health() *domain.HealthReport {
	return scoring.ScoreHealth(s.cache, time.Now())
}

func (s *Session) CalendarEvents() []*domain.CalendarEvent {
	return scoring.DetectCalendarEvents(s.cache)
}

// DeleteDomain deletes every message of one sender domain remotely, then
// drops the bucket for the confirmed ids.
func (s *Session) DeleteDomain(senderDomain string) (bulk.Summary, error) {
	bucket := s.cache.Bucket(senderDomain)
	if bucket == nil {
		return bulk.Summary{}, fmt.Errorf("unknown sender domain %s", senderDomain)
	}

	return s.deleteMessages(bucket.Messages, domain.ActionDelete)
}

// DeleteMessages deletes an arbitrary selection, e.g. search results. Each
// message is removed from the bucket its sender address maps to.
func (s *Session) DeleteMessages(messages []*domain.CachedMessage) (bulk.Summary, error) {
	return s.deleteMessages(messages, domain.ActionDelete)
}

// DeleteDuplicates deletes the non-keep members of the given groups.
func (s *Session) DeleteDuplicates(groups []*domain.DuplicateGroup) (bulk.Summary, error) {
	deletable := []*domain.CachedMessage{}
	for _, g := range groups {
		deletable = append(deletable, g.Deletable...)
	}

	return s.deleteMessages(deletable, domain.ActionDelete)
}

// MoveMessages moves a selection into a folder, creating it when missing.
func (s *Session) MoveMessages(messages []*domain.CachedMessage, folder string) (bulk.Summary, error) {
	return s.moveMessages(messages, folder, domain.ActionMove)
}

// MoveDomain moves every message of one sender domain into a folder.
func (s *Session) MoveDomain(senderDomain, folder string) (bulk.Summary, error) {
	bucket := s.cache.Bucket(senderDomain)
	if bucket == nil {
		return bulk.Summary{}, fmt.Errorf("unknown sender domain %s", senderDomain)
	}

	return s.moveMessages(bucket.Messages, folder, domain.ActionMove)
}

// ArchiveDomain moves one sender domain into the archive folder and records
// the action as an archive for the rule learner.
func (s *Session) ArchiveDomain(senderDomain string) (bulk.Summary, error) {
	bucket := s.cache.Bucket(senderDomain)
	if bucket == nil {
		return bulk.Summary{}, fmt.Errorf("unknown sender domain %s", senderDomain)
	}

	return s.moveMessages(bucket.Messages, s.configuration.ArchiveFolder, domain.ActionArchive)
}

// EmptyTrash wipes the trash folder remotely. The trash is not part of the
// cache, so no cache mutation follows.
func (s *Session) EmptyTrash() error {
	if s.configuration.DryRun {
		s.l.WithField("folder", s.configuration.TrashFolder).Info("Dry run, not emptying trash")
		return nil
	}

	return s.mailService.EmptyFolder(s.configuration.TrashFolder)
}

func (s *Session) DownloadAttachment(messageID, attachmentName string) ([]byte, error) {
	return s.mailService.GetAttachment(messageID, attachmentName)
}

// Suggestions re-mines the action log and persists the result.
func (s *Session) Suggestions() ([]*domain.Suggestion, error) {
	return s.learner.Analyze()
}

// ApplySuggestion executes a mined rule against the current cache.
func (s *Session) ApplySuggestion(suggestion *domain.Suggestion) (bulk.Summary, error) {
	switch suggestion.Action {
	case domain.ActionDelete:
		return s.DeleteDomain(suggestion.SenderDomain)
	case domain.ActionMove:
		return s.MoveDomain(suggestion.SenderDomain, suggestion.Destination)
	case domain.ActionArchive:
		return s.ArchiveDomain(suggestion.SenderDomain)
	default:
		return bulk.Summary{}, fmt.Errorf("unknown suggestion action %s", suggestion.Action)
	}
}

func (s *Session) ClearActionLog() error {
	return s.learner.Clear()
}

func (s *Session) deleteMessages(messages []*domain.CachedMessage, action domain.ActionType) (bulk.Summary, error) {
	if s.configuration.DryRun {
		s.l.WithField("messages", len(messages)).Info("Dry run, not deleting")
		return bulk.Summary{Succeeded: len(messages)}, nil
	}

	results := s.runRemote(messages, func(id string) error {
		return s.mailService.DeleteMessage(id)
	})

	return s.applyRemovals(messages, results, action, "")
}

func (s *Session) moveMessages(messages []*domain.CachedMessage, folder string, action domain.ActionType) (bulk.Summary, error) {
	if s.configuration.DryRun {
		s.l.WithFields(logrus.Fields{"messages": len(messages), "folder": folder}).Info("Dry run, not moving")
		return bulk.Summary{Succeeded: len(messages)}, nil
	}

	err := s.ensureFolder(folder)
	if err != nil {
		return bulk.Summary{}, err
	}

	results := s.runRemote(messages, func(id string) error {
		return s.mailService.MoveMessage(id, folder)
	})

	return s.applyRemovals(messages, results, action, folder)
}

func (s *Session) runRemote(messages []*domain.CachedMessage, op func(id string) error) []bulk.Result {
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	// Parallel remote calls are only allowed when the service declares its
	// mutations independent on the wire. Everything else runs sequentially
	// in batches with the rate-limit delay in between.
	if capability, ok := s.mailService.(domain.BulkMutationCapability); ok && capability.SafeConcurrentMutations() {
		return bulk.RunAll(ids, s.configuration.Concurrency, op)
	}
	return bulk.RunBatched(ids, s.configuration.BatchSize, s.configuration.BatchDelay, op)
}

// applyRemovals reflects confirmed remote removals into the cache, saves the
// snapshot and feeds the rule learner one record per touched domain.
func (s *Session) applyRemovals(messages []*domain.CachedMessage, results []bulk.Result, action domain.ActionType, destination string) (bulk.Summary, error) {
	perDomain := map[string]int{}
	for i, r := range results {
		if r.Err != nil {
			s.l.WithFields(logrus.Fields{"id": r.ID, "error": r.Err}).Warn("Remote operation failed, keeping message cached")
			continue
		}

		bucketDomain := mailcache.BucketDomain(messages[i].SenderEmail)
		mailcache.RemoveMessage(s.cache, bucketDomain, r.ID)
		perDomain[bucketDomain]++
	}

	summary := bulk.Summarize(results)
	if summary.Succeeded == 0 {
		return summary, nil
	}

	err := s.store.Save(s.cache)
	if err != nil {
		return summary, fmt.Errorf("could not save cache: %w", err)
	}

	for bucketDomain, count := range perDomain {
		if domain.EphemeralDomain(bucketDomain) {
			continue
		}
		err = s.learner.Record(action, bucketDomain, destination, count)
		if err != nil {
			return summary, fmt.Errorf("could not record action: %w", err)
		}
	}

	s.l.WithFields(logrus.Fields{"action": action, "ok": summary.Succeeded, "failed": summary.Failed}).Info("Bulk operation finished")
	return summary, nil
}

func (s *Session) ensureFolder(folder string) error {
	folders, err := s.mailService.ListFolders()
	if err != nil {
		return fmt.Errorf("could not list folders: %w", err)
	}

	for _, f := range folders {
		if f.Name == folder {
			return nil
		}
	}

	_, err = s.mailService.CreateFolder(folder)
	if err != nil {
		return fmt.Errorf("could not create folder %s: %w", folder, err)
	}
	return nil
}

func (s *Session) sizeResolver() mailstats.SizeResolver {
	return mailstats.RemoteSizeResolver(s.mailService)
}
