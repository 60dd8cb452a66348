// SPDX-License-Identifier: GPL-3.0-or-later
package indexer

import (
	"fmt"
	"testing"
	"time"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/log"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	log.InitLogging("error")
	m.Run()
}

type fakeMailService struct {
	domain.MailService

	messages   map[string]*domain.RemoteMessage
	order      []string
	failBatch  bool
	brokenIds  map[string]bool
	listedOpts domain.ListOptions
}

func newFakeMailService(messages ...*domain.RemoteMessage) *fakeMailService {
	f := &fakeMailService{messages: map[string]*domain.RemoteMessage{}, brokenIds: map[string]bool{}}
	for _, m := range messages {
		f.messages[m.ID] = m
		f.order = append(f.order, m.ID)
	}
	return f
}

func (f *fakeMailService) ListMessageIDs(opts domain.ListOptions) ([]string, error) {
	f.listedOpts = opts
	ids := append([]string{}, f.order...)
	if opts.Max > 0 && len(ids) > opts.Max {
		ids = ids[:opts.Max]
	}
	return ids, nil
}

func (f *fakeMailService) FetchMessages(ids []string) ([]*domain.RemoteMessage, error) {
	if f.failBatch {
		return nil, fmt.Errorf("batch fetch not available")
	}
	result := []*domain.RemoteMessage{}
	for _, id := range ids {
		if m, ok := f.messages[id]; ok && !f.brokenIds[id] {
			result = append(result, m)
		}
	}
	return result, nil
}

func (f *fakeMailService) GetMessage(id string) (*domain.RemoteMessage, error) {
	if f.brokenIds[id] {
		return nil, fmt.Errorf("message %s unavailable", id)
	}
	m, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("no such message %s", id)
	}
	return m, nil
}

func remoteMsg(id, sender string) *domain.RemoteMessage {
	return &domain.RemoteMessage{
		ID:          id,
		Subject:     "subject " + id,
		SenderEmail: sender,
		ReceivedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuild(t *testing.T) {
	svc := newFakeMailService(
		remoteMsg("1", "alice@A.com"),
		remoteMsg("2", "bob@a.com"),
		remoteMsg("3", "carol@b.com"),
	)

	cache, err := NewBuilder(svc).Build("user@example.com", 0, true, nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, cache.TotalMessages())
	assert.Equal(t, 2, cache.Bucket("a.com").Count)
	assert.Equal(t, 1, cache.Bucket("b.com").Count)
	assert.True(t, svc.listedOpts.NewestFirst)
}

func TestBuildBounded(t *testing.T) {
	svc := newFakeMailService(
		remoteMsg("1", "alice@a.com"),
		remoteMsg("2", "bob@a.com"),
		remoteMsg("3", "carol@b.com"),
	)

	cache, err := NewBuilder(svc).Build("user@example.com", 2, true, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, cache.TotalMessages())
	assert.Equal(t, 2, svc.listedOpts.Max)
}

func TestBuildSkipsBrokenItems(t *testing.T) {
	svc := newFakeMailService(
		remoteMsg("1", "alice@a.com"),
		remoteMsg("2", "bob@a.com"),
		remoteMsg("3", "carol@b.com"),
	)
	svc.failBatch = true
	svc.brokenIds["2"] = true

	cache, err := NewBuilder(svc).Build("user@example.com", 0, true, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, cache.TotalMessages())
	assert.Nil(t, cache.Bucket("a.com").Messages[0].SizeBytes)
}

func TestBuildProgress(t *testing.T) {
	messages := []*domain.RemoteMessage{}
	for i := 0; i < 120; i++ {
		messages = append(messages, remoteMsg(fmt.Sprintf("%d", i), "a@a.com"))
	}
	// duplicate sender ids per message id keep buckets consistent
	svc := newFakeMailService(messages...)

	notifications := [][2]int{}
	_, err := NewBuilder(svc).Build("user@example.com", 0, false, func(processed, total int) {
		notifications = append(notifications, [2]int{processed, total})
	})
	assert.NoError(t, err)
	assert.Equal(t, [][2]int{{50, 120}, {100, 120}, {120, 120}}, notifications)
}

func TestIngestDateFallback(t *testing.T) {
	m := Ingest(&domain.RemoteMessage{ID: "1", SenderEmail: "a@a.com"})
	assert.Equal(t, time.Unix(0, 0).UTC(), m.ReceivedAt)
}

func TestIngestNormalizes(t *testing.T) {
	m := Ingest(&domain.RemoteMessage{
		ID:          "1",
		Subject:     "=?utf-8?q?Pr=C3=BCfung?=",
		SenderEmail: "User+tag@Example.COM",
		ReceivedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, "Prüfung", m.Subject)
	assert.Equal(t, "user@example.com", m.SenderEmail)
}

func TestPartitionIds(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		size     int
		expected []int
	}{
		{"empty", 0, 10, []int{}},
		{"single", 5, 10, []int{5}},
		{"exact", 20, 10, []int{10, 10}},
		{"remainder", 25, 10, []int{10, 10, 5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ids := make([]string, tc.count)
			for i := range ids {
				ids[i] = fmt.Sprintf("%d", i)
			}
			batches := partitionIds(ids, tc.size)
			sizes := []int{}
			for _, b := range batches {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tc.expected, sizes)
		})
	}
}
