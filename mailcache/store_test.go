// SPDX-License-Identifier: GPL-3.0-or-later
package mailcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mailsweep/mailsweep/domain"

	"github.com/stretchr/testify/assert"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "User@Example.com")

	c := domain.NewCache("User@Example.com")
	Add(c, msg("1", "alice@a.com"))
	Add(c, msg("2", "bob@a.com"))
	Add(c, msg("3", "carol@b.com"))

	assert.NoError(t, store.Save(c))

	loaded := store.Load()
	assert.NotNil(t, loaded)
	assert.Equal(t, c.TotalMessages(), loaded.TotalMessages())
	assert.Equal(t, c.Buckets, loaded.Buckets)

	// save(load()) keeps the logical content stable
	assert.NoError(t, store.Save(loaded))
	reloaded := store.Load()
	assert.Equal(t, loaded, reloaded)
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(t.TempDir(), "user@example.com")
	assert.Nil(t, store.Load())
}

func TestStoreLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "user@example.com")
	assert.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	assert.Nil(t, store.Load())
}

func TestStoreLoadForeignMailbox(t *testing.T) {
	dir := t.TempDir()

	other := NewStore(dir, "other@example.com")
	c := domain.NewCache("other@example.com")
	Add(c, msg("1", "alice@a.com"))
	assert.NoError(t, other.Save(c))

	// same file path would only collide for the same sanitized identity
	store := NewStore(dir, "other@example.com")
	loaded := store.Load()
	assert.NotNil(t, loaded)

	// a snapshot claiming a different mailbox is treated as absent
	loaded.Mailbox = "someone@else.com"
	assert.NoError(t, store.Save(loaded))
	assert.Nil(t, store.Load())
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "user@example.com")

	c := domain.NewCache("user@example.com")
	Add(c, msg("1", "alice@a.com"))
	assert.NoError(t, store.Save(c))
	assert.NoError(t, store.Save(c))

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(store.Path()), entries[0].Name())
}

func TestSanitizeIdentity(t *testing.T) {
	assert.Equal(t, "user_example.com", sanitizeIdentity("User@Example.com"))
	assert.Equal(t, "a-b.c_d", sanitizeIdentity("a-b.c d"))
}
