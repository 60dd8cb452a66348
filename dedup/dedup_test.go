// SPDX-License-Identifier: GPL-3.0-or-later
package dedup

import (
	"testing"
	"time"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/log"
	"github.com/mailsweep/mailsweep/mailcache"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	log.InitLogging("error")
	m.Run()
}

func cached(id, subject, sender string, received time.Time) *domain.CachedMessage {
	return &domain.CachedMessage{
		ID:          id,
		Subject:     subject,
		SenderEmail: sender,
		ReceivedAt:  received,
	}
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Invoice 42", "Invoice 42"},
		{"re", "Re: Invoice 42", "Invoice 42"},
		{"upper", "RE: Invoice 42", "Invoice 42"},
		{"fwd", "FWD: Invoice 42", "Invoice 42"},
		{"german", "AW: Invoice 42", "Invoice 42"},
		{"stacked", "Re: Fwd: AW: Invoice 42", "Invoice 42"},
		{"whitespace", "  Invoice \t 42 ", "Invoice 42"},
		{"onlyprefixlike", "Render: done", "Render: done"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeSubject(tc.input))
		})
	}
}

func TestFingerprintDeterminism(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 12, 0, time.UTC)

	a := cached("1", "Re: Hello", "alice@a.com", at)
	b := cached("2", "hello", "Alice@A.com", at.Add(40*time.Second)) // same minute
	b.BodyPreview = "entirely different body"

	fpA, okA := Fingerprint(a, Quick)
	fpB, okB := Fingerprint(b, Quick)
	assert.True(t, okA)
	assert.True(t, okB)
	assert.NotEqual(t, fpA, fpB, "subject case differs after normalization")

	b.Subject = "Fwd: Hello"
	fpB, _ = Fingerprint(b, Quick)
	assert.Equal(t, fpA, fpB, "bodies must not affect quick fingerprints")

	// any of subject, sender or minute breaks equality
	c := cached("3", "Hello", "alice@a.com", at.Add(time.Minute))
	fpC, _ := Fingerprint(c, Quick)
	assert.NotEqual(t, fpA, fpC)

	d := cached("4", "Hello", "bob@a.com", at)
	fpD, _ := Fingerprint(d, Quick)
	assert.NotEqual(t, fpA, fpD)
}

func TestFingerprintDeepUsesPreview(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	a := cached("1", "Hello", "alice@a.com", at)
	b := cached("2", "Hello", "alice@a.com", at)
	a.BodyPreview = "body one"
	b.BodyPreview = "body two"

	fpA, _ := Fingerprint(a, Deep)
	fpB, _ := Fingerprint(b, Deep)
	assert.NotEqual(t, fpA, fpB)

	b.BodyPreview = a.BodyPreview
	fpB, _ = Fingerprint(b, Deep)
	assert.Equal(t, fpA, fpB)
}

func TestFingerprintUnfingerprintable(t *testing.T) {
	_, ok := Fingerprint(cached("1", "", "", time.Now()), Quick)
	assert.False(t, ok)
}

func TestFindDuplicates(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	c := domain.NewCache("user@example.com")
	mailcache.Add(c, cached("1", "Hello", "alice@a.com", at))
	mailcache.Add(c, cached("2", "Re: Hello", "alice@a.com", at.Add(30*time.Second)))
	mailcache.Add(c, cached("3", "Hello", "alice@a.com", at.Add(45*time.Second)))
	mailcache.Add(c, cached("4", "Unrelated", "alice@a.com", at))
	mailcache.Add(c, cached("5", "", "", at)) // unfingerprintable, skipped

	groups := FindDuplicates(c, Quick)
	assert.Len(t, groups, 1)
	assert.Equal(t, "3", groups[0].Keep.ID, "newest message is kept")
	assert.Len(t, groups[0].Deletable, 2)
}

func TestPartitionKeepsNewest(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	t1 := cached("1", "Hello", "a@a.com", at)
	t2 := cached("2", "Hello", "a@a.com", at.Add(10*time.Second))
	t3 := cached("3", "Hello", "a@a.com", at.Add(20*time.Second))

	keep, deletable := Partition([]*domain.CachedMessage{t2, t3, t1})
	assert.Equal(t, t3, keep)
	assert.Equal(t, []*domain.CachedMessage{t2, t1}, deletable)
}

func TestPartitionStableOnTies(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	t1 := cached("1", "Hello", "a@a.com", at)
	t2 := cached("2", "Hello", "a@a.com", at)

	keep, deletable := Partition([]*domain.CachedMessage{t1, t2})
	assert.Equal(t, t1, keep, "first member wins timestamp ties")
	assert.Equal(t, []*domain.CachedMessage{t2}, deletable)
}
