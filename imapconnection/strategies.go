// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

import (
	"fmt"

	"github.com/emersion/go-imap"
)

// deleter and mover are the capability strategies. The connection picks the
// UIDPLUS/MOVE variant when the server advertises the extension and the
// flag&expunge / copy&delete variant otherwise.
type deleter interface {
	delete(uids []uint32) error
	deleteReady() (error, error)
}

type mover interface {
	move(uids []uint32, folder string) error
	moveReady() (error, error)
}

type deletedFlagger interface {
	flagDeleted(uids []uint32) (*imap.SeqSet, error)
}

type uidExpunger interface {
	UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error
}

type uidPlusDeleter struct {
	imapConn      deletedFlagger
	uidplusClient uidExpunger
}

func (u *uidPlusDeleter) delete(uids []uint32) error {
	seqset, err := u.imapConn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not flag items as deleted: %w", err)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- u.uidplusClient.UidExpunge(seqset, out)
	}()

	expunged := []uint32{}
	for uid := range out {
		expunged = append(expunged, uid)
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}

func (u *uidPlusDeleter) deleteReady() (error, error) {
	// UIDPLUS expunges by uid and is therefore always ready
	return nil, nil
}

type deleteFlaggerAndExpunger interface {
	deletedFlagger
	Expunge(ch chan uint32) error
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
}

type compatibilityDeleter struct {
	imapConn deleteFlaggerAndExpunger
}

var ItemsWithDeletedFlagPresent = fmt.Errorf("folder has previous items with delete flag set")

func (c *compatibilityDeleter) delete(uids []uint32) error {
	notDeleteReadyReason, err := c.deleteReady()
	if err != nil {
		return fmt.Errorf("could not check for delete readiness: %w", err)
	}

	if notDeleteReadyReason != nil {
		return fmt.Errorf("folder is not ready for delete: %w", notDeleteReadyReason)
	}

	_, err = c.imapConn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not set deleted flag: %w", err)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- c.imapConn.Expunge(out)
	}()

	expunged := []uint32{}
	for uid := range out {
		expunged = append(expunged, uid)
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}

// deleteReady refuses when the folder already has mails with the deleted flag
// set, since a plain EXPUNGE would take those down as well.
func (c *compatibilityDeleter) deleteReady() (error, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	ids, err := c.imapConn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search for deleted in folder: %w", err)
	}

	if len(ids) > 0 {
		return ItemsWithDeletedFlagPresent, nil
	}
	return nil, nil
}

type uidMoveClient interface {
	UidMove(seqset *imap.SeqSet, dest string) error
}

type moveMover struct {
	moveClient uidMoveClient
}

func (m *moveMover) move(uids []uint32, folder string) error {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	return m.moveClient.UidMove(seqset, folder)
}

func (m *moveMover) moveReady() (error, error) {
	// MOVE is atomic on the server and always ready
	return nil, nil
}

type copyAndDeleteMoveClient interface {
	deleter
	UidCopy(seqset *imap.SeqSet, dest string) error
}

type compatibilityMover struct {
	imapConn copyAndDeleteMoveClient
}

func (c *compatibilityMover) move(uids []uint32, folder string) error {
	notDeleteReadyReason, err := c.moveReady()
	if err != nil {
		return fmt.Errorf("could not check for delete readiness to move: %w", err)
	}

	if notDeleteReadyReason != nil {
		return fmt.Errorf("folder is not ready for delete, cannot move (copy&delete): %w", notDeleteReadyReason)
	}

	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err = c.imapConn.UidCopy(seqset, folder)
	if err != nil {
		return fmt.Errorf("could not copy mails: %w", err)
	}

	err = c.imapConn.delete(uids)
	if err != nil {
		return fmt.Errorf("could not delete copied mails: %w", err)
	}

	return nil
}

func (c *compatibilityMover) moveReady() (error, error) {
	return c.imapConn.deleteReady()
}
