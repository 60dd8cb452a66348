// SPDX-License-Identifier: GPL-3.0-or-later
package mailcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/log"

	"github.com/sirupsen/logrus"
)

// Store persists the whole-cache snapshot as one JSON document per mailbox
// identity. Saving goes through a temp file and rename so a crash can never
// leave a truncated snapshot behind.
type Store struct {
	path    string
	mailbox string
	l       *logrus.Logger
}

func NewStore(stateDir, mailbox string) *Store {
	return &Store{
		path:    filepath.Join(stateDir, "cache-"+sanitizeIdentity(mailbox)+".json"),
		mailbox: mailbox,
		l:       log.Logger(log.LOG_CACHE),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot for the store's mailbox. A missing or corrupt file
// is "no cache yet": it returns nil instead of an error and never produces a
// partially populated cache.
func (s *Store) Load() *domain.Cache {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.l.WithFields(logrus.Fields{"file": s.path, "error": err}).Warn("Could not read cache snapshot, treating as absent")
		return nil
	}

	cache := &domain.Cache{}
	err = json.Unmarshal(raw, cache)
	if err != nil {
		s.l.WithFields(logrus.Fields{"file": s.path, "error": err}).Warn("Cache snapshot is corrupt, treating as absent")
		return nil
	}

	if cache.Mailbox != s.mailbox {
		s.l.WithFields(logrus.Fields{"file": s.path, "mailbox": cache.Mailbox}).Warn("Cache snapshot belongs to a different mailbox, treating as absent")
		return nil
	}

	Normalize(cache)
	s.l.WithFields(logrus.Fields{"domains": len(cache.Buckets), "messages": cache.TotalMessages()}).Debug("Loaded cache snapshot")
	return cache
}

// Save writes the snapshot atomically: marshal to a temp file in the target
// directory, then rename over the previous snapshot.
func (s *Store) Save(cache *domain.Cache) error {
	err := os.MkdirAll(filepath.Dir(s.path), 0o755)
	if err != nil {
		return fmt.Errorf("could not create state directory: %w", err)
	}

	raw, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("could not serialize cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "cache-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temp snapshot: %w", err)
	}

	_, err = tmp.Write(raw)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write temp snapshot: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not replace snapshot: %w", err)
	}

	s.l.WithFields(logrus.Fields{"file": s.path, "domains": len(cache.Buckets), "messages": cache.TotalMessages()}).Debug("Saved cache snapshot")
	return nil
}

func sanitizeIdentity(mailbox string) string {
	mailbox = strings.ToLower(strings.TrimSpace(mailbox))
	var b strings.Builder
	for _, r := range mailbox {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
