package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/n3m01726/chattyChat/internal/domain"
	"github.com/n3m01726/chattyChat/internal/mention"
)

const maxTextRunes = 500

// Sentinel errors used by callers to map failures to client-facing notices.
var (
	ErrTextTooLong  = fmt.Errorf("message text exceeds %d characters", maxTextRunes)
	ErrEmptyMessage = errors.New("message requires text, an attachment, or a gif")
)

// MessageService orchestrates the lifecycle of a message: mention
// extraction and validation, attachment expiry, persistence, enrichment,
// and owner-authorized deletion.
type MessageService struct {
	messages domain.MessageRepository
	users    domain.UserRepository
	files    domain.FileStore
}

func NewMessageService(messages domain.MessageRepository, users domain.UserRepository, files domain.FileStore) *MessageService {
	return &MessageService{
		messages: messages,
		users:    users,
		files:    files,
	}
}

// CreateOptions are the optional fields of a send event.
type CreateOptions struct {
	HasMarkdown    bool
	AttachmentKind *string
	AttachmentRef  *string
	ExpiresInHours *int
	GifURL         *string
}

func (o CreateOptions) hasAttachment() bool {
	return o.AttachmentRef != nil && *o.AttachmentRef != ""
}

func (o CreateOptions) hasGif() bool {
	return o.GifURL != nil && *o.GifURL != ""
}

// Create validates, persists, and enriches a new message. The returned
// message carries the storage-assigned id (monotonic in creation order) and
// the server-assigned creation time.
func (s *MessageService) Create(ctx context.Context, authorID int64, text string, opts CreateOptions) (*domain.EnrichedMessage, error) {
	if len([]rune(text)) > maxTextRunes {
		return nil, ErrTextTooLong
	}
	if text == "" && !opts.hasAttachment() && !opts.hasGif() {
		return nil, ErrEmptyMessage
	}

	// Expiry applies only to uploaded blobs; a TTL without an attachment
	// is ignored.
	var expiresAt *time.Time
	if opts.ExpiresInHours != nil && opts.hasAttachment() {
		t := time.Now().UTC().Add(time.Duration(*opts.ExpiresInHours) * time.Hour)
		expiresAt = &t
	}

	candidates := mention.Extract(text)
	mentions, err := mention.Validate(ctx, s.users, candidates)
	if err != nil {
		return nil, fmt.Errorf("validate mentions: %w", err)
	}

	msg := &domain.Message{
		AuthorID:            authorID,
		Text:                text,
		HasMarkdown:         opts.HasMarkdown,
		AttachmentKind:      opts.AttachmentKind,
		AttachmentRef:       opts.AttachmentRef,
		AttachmentExpiresAt: expiresAt,
		GifURL:              opts.GifURL,
		Mentions:            mentions,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	enriched, err := s.messages.GetEnriched(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("read back message: %w", err)
	}
	if enriched == nil {
		return nil, domain.ErrNotFound
	}
	return enriched, nil
}

// DeleteResult is the outcome of a delete attempt. "Not found" and "not
// yours" deliberately collapse into Removed=false so a requester cannot
// probe for the existence of other users' messages.
type DeleteResult struct {
	Removed   bool  `json:"removed"`
	MessageID int64 `json:"messageId"`
}

// DeleteOwned removes a message if the requester authored it. The row
// delete is a single conditional statement keyed by id and author, so two
// concurrent requests resolve to one Removed=true and one Removed=false.
// Blob retraction failures are logged, not returned; a leaked blob is
// recoverable, a half-deleted row is not.
func (s *MessageService) DeleteOwned(ctx context.Context, messageID, requesterID int64) (DeleteResult, error) {
	msg, err := s.messages.GetOwned(ctx, messageID, requesterID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return DeleteResult{Removed: false, MessageID: messageID}, nil
	}

	removed, err := s.messages.DeleteOwned(ctx, messageID, requesterID)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete message: %w", err)
	}
	if removed && msg.AttachmentRef != nil {
		if err := s.files.Delete(*msg.AttachmentRef); err != nil {
			log.Printf("messages: retract attachment %q: %v", *msg.AttachmentRef, err)
		}
	}
	return DeleteResult{Removed: removed, MessageID: messageID}, nil
}

// ListRecent returns the newest limit messages, oldest first, for history
// replay.
func (s *MessageService) ListRecent(ctx context.Context, limit int) ([]*domain.EnrichedMessage, error) {
	return s.messages.ListRecent(ctx, limit)
}

func (s *MessageService) Search(ctx context.Context, query string, limit int) ([]*domain.EnrichedMessage, error) {
	return s.messages.Search(ctx, query, limit)
}

func (s *MessageService) ListByUsername(ctx context.Context, username string, limit int) ([]*domain.EnrichedMessage, error) {
	return s.messages.ListByUsername(ctx, username, limit)
}

// Stats are the aggregate numbers the stats endpoint serves.
type Stats struct {
	TotalMessages int                   `json:"totalMessages"`
	TopAuthors    []*domain.AuthorCount `json:"topAuthors"`
}

func (s *MessageService) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.messages.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.messages.TopAuthors(ctx, 10)
	if err != nil {
		return nil, err
	}
	return &Stats{TotalMessages: total, TopAuthors: top}, nil
}

// SweepExpiredAttachments retracts every attachment whose TTL has passed:
// blobs first, then a guarded UPDATE that nulls the attachment fields. The
// guard repeats the expiry condition so racing with a concurrent message
// delete is harmless. Returns the number of rows cleared.
func (s *MessageService) SweepExpiredAttachments(ctx context.Context) (int, error) {
	now := time.Now()
	expired, err := s.messages.ListExpiredAttachments(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}
	for _, ea := range expired {
		if err := s.files.Delete(ea.AttachmentRef); err != nil {
			log.Printf("sweeper: delete blob %q for message %d: %v", ea.AttachmentRef, ea.MessageID, err)
		}
	}
	return s.messages.ClearExpiredAttachments(ctx, now)
}
