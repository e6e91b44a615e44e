package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"

	"github.com/n3m01726/chattyChat/internal/domain"
	"github.com/n3m01726/chattyChat/internal/security"
)

// AuthService handles registration, login, and logout. It is a collaborator
// of the realtime core: the gateway never touches credentials, it only
// consumes resolved identities.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type TokenResponse struct {
	AccessToken string
	TokenType   string
	User        *domain.User
}

// Register creates a credentialed account, or completes a ghost account
// created earlier through the join path (same username, no credentials yet).
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Username == "" || in.Password == "" {
		return nil, errors.New("username and password are required")
	}
	if len(in.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, errors.New("invalid email address")
	}

	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, domain.ErrConflict
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if existing != nil {
		if existing.HasCredentials() {
			return nil, domain.ErrConflict
		}
		// ghost account: attach credentials to the existing row so the
		// user keeps their id and message history
		if err := s.users.SetCredentials(ctx, existing.ID, in.Email, hashed); err != nil {
			return nil, err
		}
		return s.users.GetByID(ctx, existing.ID)
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        &in.Email,
		PasswordHash: &hashed,
		Status:       domain.StatusOffline,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.HasCredentials() {
		return nil, errors.New("incorrect username or password")
	}
	if user.IsSuspended {
		return nil, domain.ErrSuspended
	}
	if err := s.hash.Verify(in.Password, *user.PasswordHash); err != nil {
		return nil, errors.New("incorrect username or password")
	}

	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		log.Printf("auth: record login for %q: %v", user.Username, err)
	}

	token, err := s.tokens.CreateForUser(user.Username)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

// Logout marks the user offline. Token revocation is out of scope; tokens
// simply age out.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	return s.users.SetStatus(ctx, userID, domain.StatusOffline)
}

// Suspend soft-deactivates the caller's own account. The row and its
// messages stay, but login and authenticated requests are refused until an
// operator lifts the flag.
func (s *AuthService) Suspend(ctx context.Context, userID int64) error {
	if err := s.users.SetSuspended(ctx, userID, true); err != nil {
		return fmt.Errorf("suspend account: %w", err)
	}
	return s.users.SetStatus(ctx, userID, domain.StatusOffline)
}
