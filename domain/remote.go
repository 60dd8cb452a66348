// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

// RemoteMessage is the raw view of a mail as the remote service reports it,
// before ingestion normalizes it into a CachedMessage.
type RemoteMessage struct {
	ID              string
	Subject         string
	ReceivedAt      time.Time
	SenderName      string
	SenderEmail     string
	SizeBytes       *int64
	HasAttachments  bool
	AttachmentNames []string
	IsRead          bool
	BodyPreview     string
	ToRecipients    []string
	Categories      []string
}

// BulkMutationCapability is optionally implemented by mail services whose
// delete/move operations are independent on the wire and therefore safe to
// run in parallel. Services that do not implement it, or report false, are
// driven sequentially in batches.
type BulkMutationCapability interface {
	SafeConcurrentMutations() bool
}

type Folder struct {
	ID   string
	Name string
}

// ListOptions bounds a message listing. Max == 0 means unbounded; when
// bounded and NewestFirst is set, the newest Max ids are returned in the
// order the server reports them.
type ListOptions struct {
	Max         int
	NewestFirst bool
}

// MailService is the remote mail collaborator. Implementations are expected
// to return per-call errors only; bulk orchestration and per-item accounting
// happen in the caller.
type MailService interface {
	ListMessageIDs(opts ListOptions) ([]string, error)
	FetchMessages(ids []string) ([]*RemoteMessage, error)
	GetMessage(id string) (*RemoteMessage, error)
	DeleteMessage(id string) error
	MoveMessage(id string, folder string) error
	ListFolders() ([]*Folder, error)
	CreateFolder(name string) (*Folder, error)
	EmptyFolder(folder string) error
	GetAttachment(messageID string, attachmentName string) ([]byte, error)

	Close() error
}
