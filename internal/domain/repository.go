package domain

import (
	"context"
	"io"
	"time"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	List(ctx context.Context) ([]*User, error)
	UpdateProfile(ctx context.Context, username string, patch *ProfilePatch) error
	SetStatus(ctx context.Context, id int64, status string) error
	SetCredentials(ctx context.Context, id int64, email, passwordHash string) error
	RecordLogin(ctx context.Context, id int64) error
	SetSuspended(ctx context.Context, id int64, suspended bool) error
	MarkAllOffline(ctx context.Context) error
	Delete(ctx context.Context, id int64) error
}

// MessageRepository defines persistence operations for messages. Enriched
// reads join the author row so callers get display attributes in one trip.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	GetEnriched(ctx context.Context, id int64) (*EnrichedMessage, error)
	GetOwned(ctx context.Context, id, authorID int64) (*Message, error)
	// DeleteOwned removes the message in a single conditional statement
	// keyed by id and author; it reports whether a row was removed.
	DeleteOwned(ctx context.Context, id, authorID int64) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]*EnrichedMessage, error)
	Search(ctx context.Context, query string, limit int) ([]*EnrichedMessage, error)
	ListByUsername(ctx context.Context, username string, limit int) ([]*EnrichedMessage, error)
	CountAll(ctx context.Context) (int, error)
	CountByAuthor(ctx context.Context, authorID int64) (int, error)
	TopAuthors(ctx context.Context, limit int) ([]*AuthorCount, error)
	ListExpiredAttachments(ctx context.Context, now time.Time) ([]*ExpiredAttachment, error)
	// ClearExpiredAttachments nulls the attachment fields of every message
	// whose expiry is before now. The guard makes it safe to race with
	// message deletion.
	ClearExpiredAttachments(ctx context.Context, now time.Time) (int, error)
}

// FileStore is the capability the upload collaborator provides: store a
// blob, serve it by ref, delete it by ref.
type FileStore interface {
	Save(originalName string, r io.Reader) (ref string, err error)
	Delete(ref string) error
	Path(ref string) (string, error)
}
