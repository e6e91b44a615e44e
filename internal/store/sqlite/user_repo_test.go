package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3m01726/chattyChat/internal/domain"
)

func openTestDB(t *testing.T) *UserRepo {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db)
}

func strptr(s string) *string { return &s }

func TestCreateAndLookup(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	u := &domain.User{Username: "alice"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, domain.StatusOffline, u.Status)
	assert.Equal(t, "UTC", u.Timezone)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.HasCredentials())
	assert.False(t, got.CreatedAt.IsZero())

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := repo.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.UsernameExists(ctx, "Alice")
	require.NoError(t, err)
	assert.False(t, exists, "username lookup is case-sensitive")
}

func TestUsernameUnique(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.User{Username: "alice"}))
	err := repo.Create(ctx, &domain.User{Username: "alice"})
	assert.Error(t, err)
}

func TestUpdateProfileMergesPatch(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.User{Username: "alice"}))

	bio := strptr("hello")
	color := strptr("#ff8800")
	require.NoError(t, repo.UpdateProfile(ctx, "alice", &domain.ProfilePatch{
		Bio:         &bio,
		CustomColor: &color,
	}))

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u.Bio)
	assert.Equal(t, "hello", *u.Bio)

	// clearing one field leaves the rest alone
	var cleared *string
	dark := true
	require.NoError(t, repo.UpdateProfile(ctx, "alice", &domain.ProfilePatch{
		CustomColor: &cleared,
		DarkMode:    &dark,
	}))

	u, err = repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, u.CustomColor)
	require.NotNil(t, u.Bio)
	assert.Equal(t, "hello", *u.Bio)
	assert.True(t, u.DarkMode)

	err = repo.UpdateProfile(ctx, "nobody", &domain.ProfilePatch{Bio: &bio})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetCredentialsCompletesGhost(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	u := &domain.User{Username: "alice"}
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.SetCredentials(ctx, u.ID, "alice@example.com", "hashed"))

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.HasCredentials())
}

func TestStatusAndMarkAllOffline(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	a := &domain.User{Username: "alice"}
	b := &domain.User{Username: "bob"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.SetStatus(ctx, a.ID, domain.StatusOnline))
	require.NoError(t, repo.SetStatus(ctx, b.ID, domain.StatusAway))

	require.NoError(t, repo.MarkAllOffline(ctx))

	for _, name := range []string{"alice", "bob"} {
		u, err := repo.GetByUsername(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOffline, u.Status)
	}
}

func TestSuspendAndDelete(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()

	u := &domain.User{Username: "alice"}
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.SetSuspended(ctx, u.ID, true))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSuspended)

	require.NoError(t, repo.Delete(ctx, u.ID))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteCascadesToMessages(t *testing.T) {
	userRepo := openTestDB(t)
	msgRepo := NewMessageRepo(userRepo.db)
	ctx := context.Background()

	u := &domain.User{Username: "alice"}
	require.NoError(t, userRepo.Create(ctx, u))
	require.NoError(t, msgRepo.Create(ctx, &domain.Message{AuthorID: u.ID, Text: "hello"}))

	count, err := msgRepo.CountAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, userRepo.Delete(ctx, u.ID))

	count, err = msgRepo.CountAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
