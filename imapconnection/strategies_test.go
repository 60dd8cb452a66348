// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
)

func u32a(vals ...int) []uint32 {
	a := []uint32{}
	for _, v := range vals {
		a = append(a, uint32(v))
	}
	return a
}

type fakeFlagger struct {
	flagged []uint32
	err     error
}

func (f *fakeFlagger) flagDeleted(uids []uint32) (*imap.SeqSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.flagged = uids
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	return seqset, nil
}

type fakeUidExpunger struct {
	expunge []uint32
	seqset  *imap.SeqSet
}

func (f *fakeUidExpunger) UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error {
	f.seqset = seqSet
	for _, uid := range f.expunge {
		ch <- uid
	}
	close(ch)
	return nil
}

func TestUidPlusDeleterReady(t *testing.T) {
	deleter := uidPlusDeleter{}

	notReadyReason, err := deleter.deleteReady()
	assert.NoError(t, notReadyReason)
	assert.NoError(t, err)
}

func TestUidPlusDeleterDelete(t *testing.T) {
	flagger := &fakeFlagger{}
	expunger := &fakeUidExpunger{expunge: u32a(1, 2, 3)}
	deleter := uidPlusDeleter{imapConn: flagger, uidplusClient: expunger}

	assert.NoError(t, deleter.delete(u32a(1, 2, 3)))
	assert.Equal(t, u32a(1, 2, 3), flagger.flagged)

	want := &imap.SeqSet{}
	want.AddNum(u32a(1, 2, 3)...)
	assert.Equal(t, want, expunger.seqset)
}

func TestUidPlusDeleterExpungeCountMismatch(t *testing.T) {
	flagger := &fakeFlagger{}
	expunger := &fakeUidExpunger{expunge: u32a(1)}
	deleter := uidPlusDeleter{imapConn: flagger, uidplusClient: expunger}

	err := deleter.delete(u32a(1, 2))
	assert.ErrorContains(t, err, "unexpected number of expunges")
}

type fakeCompatConn struct {
	fakeFlagger
	deletedFlagged []uint32
	expunge        []uint32
	expunged       bool
}

func (f *fakeCompatConn) Expunge(ch chan uint32) error {
	f.expunged = true
	for _, uid := range f.expunge {
		ch <- uid
	}
	close(ch)
	return nil
}

func (f *fakeCompatConn) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return f.deletedFlagged, nil
}

func TestCompatibilityDeleterDelete(t *testing.T) {
	conn := &fakeCompatConn{expunge: u32a(4, 5)}
	deleter := compatibilityDeleter{imapConn: conn}

	assert.NoError(t, deleter.delete(u32a(4, 5)))
	assert.Equal(t, u32a(4, 5), conn.flagged)
	assert.True(t, conn.expunged)
}

func TestCompatibilityDeleterRefusesDirtyFolder(t *testing.T) {
	conn := &fakeCompatConn{deletedFlagged: u32a(9)}
	deleter := compatibilityDeleter{imapConn: conn}

	notReadyReason, err := deleter.deleteReady()
	assert.NoError(t, err)
	assert.ErrorIs(t, notReadyReason, ItemsWithDeletedFlagPresent)

	err = deleter.delete(u32a(4))
	assert.ErrorIs(t, err, ItemsWithDeletedFlagPresent)
	assert.False(t, conn.expunged)
}

type fakeMoveClient struct {
	seqset *imap.SeqSet
	dest   string
}

func (f *fakeMoveClient) UidMove(seqset *imap.SeqSet, dest string) error {
	f.seqset = seqset
	f.dest = dest
	return nil
}

func TestMoveMover(t *testing.T) {
	client := &fakeMoveClient{}
	mover := moveMover{moveClient: client}

	notReadyReason, err := mover.moveReady()
	assert.NoError(t, notReadyReason)
	assert.NoError(t, err)

	assert.NoError(t, mover.move(u32a(7, 8), "Archive"))
	assert.Equal(t, "Archive", client.dest)

	want := &imap.SeqSet{}
	want.AddNum(u32a(7, 8)...)
	assert.Equal(t, want, client.seqset)
}

type fakeCopyDeleteConn struct {
	notReady error
	calls    []string
	copyDest string
}

func (f *fakeCopyDeleteConn) delete(uids []uint32) error {
	f.calls = append(f.calls, fmt.Sprintf("delete:%d", len(uids)))
	return nil
}

func (f *fakeCopyDeleteConn) deleteReady() (error, error) {
	return f.notReady, nil
}

func (f *fakeCopyDeleteConn) UidCopy(seqset *imap.SeqSet, dest string) error {
	f.calls = append(f.calls, "copy")
	f.copyDest = dest
	return nil
}

func TestCompatibilityMoverCopiesThenDeletes(t *testing.T) {
	conn := &fakeCopyDeleteConn{}
	mover := compatibilityMover{imapConn: conn}

	assert.NoError(t, mover.move(u32a(1, 2), "Receipts"))
	assert.Equal(t, []string{"copy", "delete:2"}, conn.calls)
	assert.Equal(t, "Receipts", conn.copyDest)
}

func TestSafeConcurrentMutations(t *testing.T) {
	assert.True(t, (&ImapConnection{concurrentSafe: true}).SafeConcurrentMutations())
	assert.False(t, (&ImapConnection{}).SafeConcurrentMutations(), "fallback strategies must be driven sequentially")
}

func TestCompatibilityMoverRefusesWhenNotReady(t *testing.T) {
	conn := &fakeCopyDeleteConn{notReady: ItemsWithDeletedFlagPresent}
	mover := compatibilityMover{imapConn: conn}

	err := mover.move(u32a(1), "Receipts")
	assert.ErrorIs(t, err, ItemsWithDeletedFlagPresent)
	assert.Empty(t, conn.calls, "neither copy nor delete may run")
}
