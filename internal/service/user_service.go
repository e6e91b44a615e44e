package service

import (
	"context"
	"fmt"
	"log"

	"github.com/n3m01726/chattyChat/internal/domain"
)

// UserService provides profile, membership, and account operations.
type UserService struct {
	users    domain.UserRepository
	messages domain.MessageRepository
	files    domain.FileStore
}

func NewUserService(users domain.UserRepository, messages domain.MessageRepository, files domain.FileStore) *UserService {
	return &UserService{users: users, messages: messages, files: files}
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// Profile is a user joined with their message count.
type Profile struct {
	*domain.User
	MessageCount int `json:"messageCount"`
}

func (s *UserService) GetProfile(ctx context.Context, username string) (*Profile, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	count, err := s.messages.CountByAuthor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, MessageCount: count}, nil
}

// ListMembers returns every user with their message count, most recently
// seen first (the repository already orders by last_seen).
func (s *UserService) ListMembers(ctx context.Context) ([]*Profile, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	members := make([]*Profile, 0, len(users))
	for _, u := range users {
		count, err := s.messages.CountByAuthor(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		members = append(members, &Profile{User: u, MessageCount: count})
	}
	return members, nil
}

// UpdateProfile applies a typed partial update. When the patch clears an
// avatar or banner, the replaced blob is deleted best-effort.
func (s *UserService) UpdateProfile(ctx context.Context, username string, patch *domain.ProfilePatch) (*domain.User, error) {
	if patch.IsEmpty() {
		return s.users.GetByUsername(ctx, username)
	}

	current, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}

	s.retractReplacedBlob(current.AvatarURL, patch.AvatarURL)
	s.retractReplacedBlob(current.BannerURL, patch.BannerURL)

	if err := s.users.UpdateProfile(ctx, username, patch); err != nil {
		return nil, err
	}
	return s.users.GetByUsername(ctx, username)
}

// DeleteAccount removes the user, their messages (foreign-key cascade) and
// every blob those messages referenced.
func (s *UserService) DeleteAccount(ctx context.Context, username string) error {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.ErrNotFound
	}

	msgs, err := s.messages.ListByUsername(ctx, username, 0)
	if err != nil {
		return fmt.Errorf("list owned messages: %w", err)
	}
	for _, m := range msgs {
		if m.AttachmentRef != nil {
			if err := s.files.Delete(*m.AttachmentRef); err != nil {
				log.Printf("users: delete blob %q: %v", *m.AttachmentRef, err)
			}
		}
	}
	s.retractBlob(u.AvatarURL)
	s.retractBlob(u.BannerURL)

	return s.users.Delete(ctx, u.ID)
}

func (s *UserService) retractReplacedBlob(current *string, patched **string) {
	if patched == nil {
		return
	}
	s.retractBlob(current)
}

func (s *UserService) retractBlob(ref *string) {
	if ref == nil || *ref == "" {
		return
	}
	if err := s.files.Delete(*ref); err != nil {
		log.Printf("users: delete blob %q: %v", *ref, err)
	}
}
