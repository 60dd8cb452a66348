// SPDX-License-Identifier: GPL-3.0-or-later
package mailsweep

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mailsweep/mailsweep/domain"
)

// Search scans the cache for messages matching the query and records the
// query in the rolling history. Results are ordered newest first.
//
// Query syntax: whitespace-separated terms, all of which must match.
//
//	from:<text>   sender name, address or domain contains text
//	subject:<text> subject contains text
//	has:attachment message carries at least one attachment
//	is:unread / is:read
//
// Bare terms match subject or sender.
func (s *Session) Search(query string) ([]*domain.CachedMessage, error) {
	terms := strings.Fields(strings.TrimSpace(query))
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty query")
	}

	results := []*domain.CachedMessage{}
	for _, bucket := range s.cache.Buckets {
		for _, m := range bucket.Messages {
			if matchesAll(m, terms) {
				results = append(results, m)
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ReceivedAt.After(results[j].ReceivedAt)
	})

	err := s.queries.AppendHistory(domain.SearchHistoryEntry{Query: query, SearchedAt: time.Now()})
	if err != nil {
		return nil, fmt.Errorf("could not record search history: %w", err)
	}

	return results, nil
}

func (s *Session) SearchHistory() ([]*domain.SearchHistoryEntry, error) {
	return s.queries.History()
}

func (s *Session) SaveQuery(name, query string) error {
	now := time.Now()
	return s.queries.SaveQuery(domain.SavedQuery{
		Name:       name,
		Query:      query,
		CreatedAt:  now,
		LastUsedAt: now,
	})
}

func (s *Session) SavedQueries() ([]*domain.SavedQuery, error) {
	return s.queries.AllQueries()
}

func (s *Session) DeleteSavedQuery(name string) error {
	return s.queries.DeleteQuery(name)
}

// RunSavedQuery executes a stored filter and bumps its usage metadata.
func (s *Session) RunSavedQuery(name string) ([]*domain.CachedMessage, error) {
	queries, err := s.queries.AllQueries()
	if err != nil {
		return nil, fmt.Errorf("could not load saved queries: %w", err)
	}

	for _, q := range queries {
		if q.Name != name {
			continue
		}

		err = s.queries.MarkQueryUsed(name, time.Now())
		if err != nil {
			return nil, fmt.Errorf("could not mark query used: %w", err)
		}
		return s.Search(q.Query)
	}

	return nil, fmt.Errorf("no saved query named %s", name)
}

func matchesAll(m *domain.CachedMessage, terms []string) bool {
	for _, term := range terms {
		if !matchesTerm(m, term) {
			return false
		}
	}
	return true
}

func matchesTerm(m *domain.CachedMessage, term string) bool {
	lower := strings.ToLower(term)

	switch {
	case strings.HasPrefix(lower, "from:"):
		needle := strings.TrimPrefix(lower, "from:")
		return contains(m.SenderEmail, needle) || contains(m.SenderName, needle)
	case strings.HasPrefix(lower, "subject:"):
		return contains(m.Subject, strings.TrimPrefix(lower, "subject:"))
	case lower == "has:attachment" || lower == "has:attachments":
		return m.HasAttachments
	case lower == "is:unread":
		return !m.IsRead
	case lower == "is:read":
		return m.IsRead
	default:
		return contains(m.Subject, lower) || contains(m.SenderEmail, lower) || contains(m.SenderName, lower)
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
