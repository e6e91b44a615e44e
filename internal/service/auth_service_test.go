package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3m01726/chattyChat/internal/domain"
	"github.com/n3m01726/chattyChat/internal/security"
	"github.com/n3m01726/chattyChat/internal/service"
	"github.com/n3m01726/chattyChat/internal/store/sqlite"
)

func newAuthService(t *testing.T) (*service.AuthService, *sqlite.UserRepo) {
	t.Helper()
	db := openTestDB(t)
	users := sqlite.NewUserRepo(db)
	tokens := security.NewTokenService("test-secret", time.Hour)
	hasher := security.NewPasswordHasher(4) // low cost for tests
	return service.NewAuthService(users, tokens, hasher), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, service.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.True(t, user.HasCredentials())

	resp, err := svc.Login(ctx, service.LoginInput{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, user.ID, resp.User.ID)

	_, err = svc.Login(ctx, service.LoginInput{Username: "alice", Password: "wrong"})
	assert.Error(t, err)
}

func TestRegisterCompletesGhostAccount(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()

	// a ghost account as created by the realtime join path
	ghost := &domain.User{Username: "bob"}
	require.NoError(t, users.Create(ctx, ghost))

	user, err := svc.Register(ctx, service.RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	// same row, now credentialed
	assert.Equal(t, ghost.ID, user.ID)
	assert.True(t, user.HasCredentials())
}

func TestRegisterRejectsTakenCredentials(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, service.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, service.RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "correct horse",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Register(ctx, service.RegisterInput{
		Username: "alice2", Email: "alice@example.com", Password: "correct horse",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLoginRejectsSuspendedAndGhost(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()

	ghost := &domain.User{Username: "casper"}
	require.NoError(t, users.Create(ctx, ghost))
	_, err := svc.Login(ctx, service.LoginInput{Username: "casper", Password: "anything"})
	assert.Error(t, err)

	user, err := svc.Register(ctx, service.RegisterInput{
		Username: "mallory", Email: "m@example.com", Password: "password123",
	})
	require.NoError(t, err)
	require.NoError(t, users.SetSuspended(ctx, user.ID, true))

	_, err = svc.Login(ctx, service.LoginInput{Username: "mallory", Password: "password123"})
	assert.ErrorIs(t, err, domain.ErrSuspended)
}
