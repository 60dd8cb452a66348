// SPDX-License-Identifier: GPL-3.0-or-later

// Package imapconnection adapts an IMAP account to the domain.MailService
// contract. Deletion and moving pick the best strategy the server offers
// (UIDPLUS / MOVE) and fall back to flag&expunge / copy&delete otherwise.
package imapconnection

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mailsweep/mailsweep/domain"
	"github.com/mailsweep/mailsweep/log"
	"github.com/mailsweep/mailsweep/mail"

	"github.com/emersion/go-imap"
	move "github.com/emersion/go-imap-move"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	msgmail "github.com/emersion/go-message/mail"
	"github.com/sirupsen/logrus"
)

type ImapConnection struct {
	connection  *client.Client
	mailDeleter deleter
	mailMover   mover

	server, user, password string

	mu             sync.Mutex
	sourceFolder   string
	selectedFolder string
	uidValidity    uint32

	concurrentSafe bool

	l *logrus.Logger
}

func NewImapConnection(server, user, password, sourceFolder string) (*ImapConnection, error) {
	imapClient, err := client.DialTLS(server, nil)
	if err != nil {
		return nil, fmt.Errorf("could not dial to imap: %w", err)
	}

	err = imapClient.Login(user, password)
	if err != nil {
		return nil, fmt.Errorf("could not login to imap: %w", err)
	}

	uidPlusClient := uidplus.NewClient(imapClient)
	uidPlusSupported, err := uidPlusClient.SupportUidPlus()
	if err != nil {
		return nil, fmt.Errorf("could not check for UIDPLUS support: %w", err)
	}

	moveClient := move.NewClient(imapClient)
	moveSupported, err := moveClient.SupportMove()
	if err != nil {
		return nil, fmt.Errorf("could not check for MOVE support: %w", err)
	}

	conn := &ImapConnection{
		connection:   imapClient,
		server:       server,
		user:         user,
		password:     password,
		sourceFolder: sourceFolder,
		l:            log.Logger(log.LOG_IMAP),
	}

	baseLogger := conn.l.WithFields(logrus.Fields{"server": server})
	baseLogger.Debug("Logged in to server")

	if uidPlusSupported {
		baseLogger.Debug("UIDPLUS supported on server, using UID expunge")
		conn.mailDeleter = &uidPlusDeleter{imapConn: conn, uidplusClient: uidPlusClient}
	} else {
		baseLogger.Info("UIDPLUS not supported on server, falling back to flag&expunge")
		conn.mailDeleter = &compatibilityDeleter{imapConn: conn}
	}

	if moveSupported {
		baseLogger.Debug("MOVE supported on server")
		conn.mailMover = &moveMover{moveClient: moveClient}
	} else {
		baseLogger.Info("MOVE not supported on server, falling back to copy&delete")
		conn.mailMover = &compatibilityMover{imapConn: conn}
	}

	// The flag&expunge and copy&delete fallbacks touch whole-folder state
	// and are only correct when calls are serialized.
	conn.concurrentSafe = uidPlusSupported && moveSupported

	err = conn.selectFolder(sourceFolder)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// SafeConcurrentMutations reports whether deletes and moves may run in
// parallel on this connection. Only the UIDPLUS and MOVE strategies operate
// strictly per uid.
func (ic *ImapConnection) SafeConcurrentMutations() bool {
	return ic.concurrentSafe
}

func (ic *ImapConnection) selectFolder(folder string) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if ic.selectedFolder == folder {
		return nil
	}

	m, err := ic.connection.Select(folder, false)
	if err != nil {
		return fmt.Errorf("could not select folder %s: %w", folder, err)
	}

	ic.selectedFolder = folder
	if folder == ic.sourceFolder {
		ic.uidValidity = m.UidValidity
	}
	return nil
}

// UidValidity reports the source folder's current UIDVALIDITY. A change
// invalidates every cached message id.
func (ic *ImapConnection) UidValidity() uint32 {
	return ic.uidValidity
}

func (ic *ImapConnection) ListMessageIDs(opts domain.ListOptions) ([]string, error) {
	err := ic.selectFolder(ic.sourceFolder)
	if err != nil {
		return nil, err
	}

	uids, err := ic.connection.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("could not list folder: %w", err)
	}

	// uids grow with arrival order, so descending is newest first
	if opts.NewestFirst {
		sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	} else {
		sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	}
	if opts.Max > 0 && len(uids) > opts.Max {
		uids = uids[:opts.Max]
	}

	ids := make([]string, len(uids))
	for i, uid := range uids {
		ids[i] = strconv.FormatUint(uint64(uid), 10)
	}
	return ids, nil
}

func (ic *ImapConnection) FetchMessages(ids []string) ([]*domain.RemoteMessage, error) {
	err := ic.selectFolder(ic.sourceFolder)
	if err != nil {
		return nil, err
	}

	uids, err := parseUids(ids)
	if err != nil {
		return nil, err
	}

	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)

	fetchItems := []imap.FetchItem{
		imap.FetchUid,
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchRFC822Size,
		imap.FetchBodyStructure,
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.UidFetch(seqset, fetchItems, messages)
	}()

	result := []*domain.RemoteMessage{}
	for msg := range messages {
		result = append(result, toRemoteMessage(msg))
	}

	err = <-done
	if err != nil {
		return nil, fmt.Errorf("could not fetch messages: %w", err)
	}

	return result, nil
}

func (ic *ImapConnection) GetMessage(id string) (*domain.RemoteMessage, error) {
	messages, err := ic.FetchMessages([]string{id})
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return messages[0], nil
}

func (ic *ImapConnection) DeleteMessage(id string) error {
	err := ic.selectFolder(ic.sourceFolder)
	if err != nil {
		return err
	}

	uid, err := parseUid(id)
	if err != nil {
		return err
	}

	return ic.mailDeleter.delete([]uint32{uid})
}

func (ic *ImapConnection) MoveMessage(id string, folder string) error {
	err := ic.selectFolder(ic.sourceFolder)
	if err != nil {
		return err
	}

	uid, err := parseUid(id)
	if err != nil {
		return err
	}

	return ic.mailMover.move([]uint32{uid}, folder)
}

func (ic *ImapConnection) ListFolders() ([]*domain.Folder, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.List("", "*", mailboxes)
	}()

	folders := []*domain.Folder{}
	for m := range mailboxes {
		folders = append(folders, &domain.Folder{ID: m.Name, Name: m.Name})
	}

	err := <-done
	if err != nil {
		return nil, fmt.Errorf("could not list folders: %w", err)
	}

	return folders, nil
}

func (ic *ImapConnection) CreateFolder(name string) (*domain.Folder, error) {
	err := ic.connection.Create(name)
	if err != nil {
		return nil, fmt.Errorf("could not create folder %s: %w", name, err)
	}

	ic.l.WithField("folder", name).Info("Created folder")
	return &domain.Folder{ID: name, Name: name}, nil
}

// EmptyFolder deletes every message in the given folder, then reselects the
// source folder.
func (ic *ImapConnection) EmptyFolder(folder string) error {
	err := ic.selectFolder(folder)
	if err != nil {
		return err
	}

	uids, err := ic.connection.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return fmt.Errorf("could not list folder: %w", err)
	}

	if len(uids) > 0 {
		err = ic.mailDeleter.delete(uids)
		if err != nil {
			return fmt.Errorf("could not empty folder %s: %w", folder, err)
		}
	}

	ic.l.WithFields(logrus.Fields{"folder": folder, "deleted": len(uids)}).Info("Emptied folder")
	return ic.selectFolder(ic.sourceFolder)
}

// GetAttachment downloads one attachment by walking the full message body.
func (ic *ImapConnection) GetAttachment(messageID string, attachmentName string) ([]byte, error) {
	err := ic.selectFolder(ic.sourceFolder)
	if err != nil {
		return nil, err
	}

	uid, err := parseUid(messageID)
	if err != nil {
		return nil, err
	}

	seqset := &imap.SeqSet{}
	seqset.AddNum(uid)
	section := &imap.BodySectionName{Peek: true}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- ic.connection.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var body io.Reader
	for msg := range messages {
		if r := msg.GetBody(section); r != nil {
			body = r
		}
	}

	err = <-done
	if err != nil {
		return nil, fmt.Errorf("could not fetch message body: %w", err)
	}
	if body == nil {
		return nil, fmt.Errorf("message %s has no body", messageID)
	}

	return extractAttachment(body, attachmentName)
}

func (ic *ImapConnection) Close() error {
	return ic.connection.Logout()
}

func (ic *ImapConnection) flagDeleted(uids []uint32) (*imap.SeqSet, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := ic.connection.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.DeletedFlag}, nil)
	if err != nil {
		return nil, fmt.Errorf("could not set delete flag: %w", err)
	}

	return seqset, nil
}

func (ic *ImapConnection) Expunge(ch chan uint32) error {
	return ic.connection.Expunge(ch)
}

func (ic *ImapConnection) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return ic.connection.UidSearch(criteria)
}

func (ic *ImapConnection) UidCopy(seqset *imap.SeqSet, dest string) error {
	return ic.connection.UidCopy(seqset, dest)
}

func (ic *ImapConnection) delete(uids []uint32) error {
	return ic.mailDeleter.delete(uids)
}

func (ic *ImapConnection) deleteReady() (error, error) {
	return ic.mailDeleter.deleteReady()
}

func extractAttachment(body io.Reader, attachmentName string) ([]byte, error) {
	mr, err := msgmail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("could not parse message: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read message part: %w", err)
		}

		header, ok := part.Header.(*msgmail.AttachmentHeader)
		if !ok {
			continue
		}

		filename, _ := header.Filename()
		if filename != attachmentName {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("could not read attachment: %w", err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("attachment %s not found", attachmentName)
}

func toRemoteMessage(msg *imap.Message) *domain.RemoteMessage {
	remote := &domain.RemoteMessage{
		ID: strconv.FormatUint(uint64(msg.Uid), 10),
	}

	if msg.Size > 0 {
		size := int64(msg.Size)
		remote.SizeBytes = &size
	}

	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			remote.IsRead = true
		}
	}

	if env := msg.Envelope; env != nil {
		remote.Subject = env.Subject
		remote.ReceivedAt = env.Date
		if len(env.From) > 0 {
			from := env.From[0]
			remote.SenderName = from.PersonalName
			remote.SenderEmail = from.Address()
		}
		for _, to := range env.To {
			remote.ToRecipients = append(remote.ToRecipients, to.Address())
		}
	} else {
		remote.ReceivedAt = time.Time{}
	}

	if msg.BodyStructure != nil {
		names := attachmentNames(msg.BodyStructure)
		remote.AttachmentNames = names
		remote.HasAttachments = len(names) > 0
	}

	return remote
}

// attachmentNames walks a body structure and collects the filenames of all
// attachment parts.
func attachmentNames(structure *imap.BodyStructure) []string {
	names := []string{}

	var walk func(part *imap.BodyStructure)
	walk = func(part *imap.BodyStructure) {
		if part == nil {
			return
		}

		if strings.EqualFold(part.Disposition, "attachment") {
			if name, ok := part.DispositionParams["filename"]; ok && name != "" {
				names = append(names, mail.DecodeHeader(name))
				return
			}
			if name, ok := part.Params["name"]; ok && name != "" {
				names = append(names, mail.DecodeHeader(name))
				return
			}
			names = append(names, "unnamed")
			return
		}

		for _, child := range part.Parts {
			walk(child)
		}
	}
	walk(structure)

	return names
}

func parseUid(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid message id %q: %w", id, err)
	}
	return uint32(uid), nil
}

func parseUids(ids []string) ([]uint32, error) {
	uids := make([]uint32, len(ids))
	for i, id := range ids {
		uid, err := parseUid(id)
		if err != nil {
			return nil, err
		}
		uids[i] = uid
	}
	return uids, nil
}
