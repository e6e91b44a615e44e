package service_test

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n3m01726/chattyChat/internal/domain"
	"github.com/n3m01726/chattyChat/internal/service"
	"github.com/n3m01726/chattyChat/internal/store/sqlite"
)

// fakeFiles records deletions so tests can assert blob retraction without
// touching the filesystem.
type fakeFiles struct {
	deleted []string
}

func (f *fakeFiles) Save(originalName string, _ io.Reader) (string, error) {
	return originalName, nil
}

func (f *fakeFiles) Delete(ref string) error {
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeFiles) Path(ref string) (string, error) { return ref, nil }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive and shared
	db.SetMaxOpenConns(1)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, users *sqlite.UserRepo, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func newTestService(t *testing.T) (*service.MessageService, *sqlite.UserRepo, *fakeFiles) {
	t.Helper()
	db := openTestDB(t)
	users := sqlite.NewUserRepo(db)
	messages := sqlite.NewMessageRepo(db)
	files := &fakeFiles{}
	return service.NewMessageService(messages, users, files), users, files
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	svc, users, _ := newTestService(t)
	author := seedUser(t, users, "alice")
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 5; i++ {
		msg, err := svc.Create(ctx, author.ID, "hello", service.CreateOptions{})
		require.NoError(t, err)
		assert.Greater(t, msg.ID, lastID)
		lastID = msg.ID
	}
}

func TestCreateValidation(t *testing.T) {
	svc, users, _ := newTestService(t)
	author := seedUser(t, users, "alice")
	ctx := context.Background()

	t.Run("EmptyWithoutAttachmentOrGif", func(t *testing.T) {
		_, err := svc.Create(ctx, author.ID, "", service.CreateOptions{})
		assert.ErrorIs(t, err, service.ErrEmptyMessage)
	})

	t.Run("EmptyWithGifAllowed", func(t *testing.T) {
		msg, err := svc.Create(ctx, author.ID, "", service.CreateOptions{
			GifURL: strptr("https://gif/abc.gif"),
		})
		require.NoError(t, err)
		assert.Equal(t, "https://gif/abc.gif", *msg.GifURL)
	})

	t.Run("TooLong", func(t *testing.T) {
		long := make([]rune, 501)
		for i := range long {
			long[i] = 'x'
		}
		_, err := svc.Create(ctx, author.ID, string(long), service.CreateOptions{})
		assert.ErrorIs(t, err, service.ErrTextTooLong)
	})
}

func TestCreateAttachmentExpiry(t *testing.T) {
	svc, users, _ := newTestService(t)
	author := seedUser(t, users, "alice")
	ctx := context.Background()

	t.Run("ExpirySetWithAttachment", func(t *testing.T) {
		before := time.Now()
		msg, err := svc.Create(ctx, author.ID, "look", service.CreateOptions{
			AttachmentKind: strptr(domain.AttachmentImage),
			AttachmentRef:  strptr("pic.png"),
			ExpiresInHours: intptr(1),
		})
		require.NoError(t, err)
		require.NotNil(t, msg.AttachmentExpiresAt)
		assert.WithinDuration(t, before.Add(time.Hour), *msg.AttachmentExpiresAt, 5*time.Second)
	})

	t.Run("ExpiryIgnoredWithoutAttachment", func(t *testing.T) {
		msg, err := svc.Create(ctx, author.ID, "no file here", service.CreateOptions{
			ExpiresInHours: intptr(1),
		})
		require.NoError(t, err)
		assert.Nil(t, msg.AttachmentExpiresAt)
	})
}

func TestCreateMentions(t *testing.T) {
	svc, users, _ := newTestService(t)
	author := seedUser(t, users, "carol")
	seedUser(t, users, "bob")
	seedUser(t, users, "alice")
	ctx := context.Background()

	msg, err := svc.Create(ctx, author.ID, "hey @bob @alice @bob @ghost", service.CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, msg.Mentions)

	// round-trip through history replay
	history, err := svc.ListRecent(ctx, 100)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, []string{"bob", "alice"}, history[0].Mentions)
	assert.Equal(t, "carol", history[0].Username)
}

func TestListRecentAscendingOrder(t *testing.T) {
	svc, users, _ := newTestService(t)
	author := seedUser(t, users, "alice")
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, author.ID, text, service.CreateOptions{})
		require.NoError(t, err)
	}

	history, err := svc.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Text)
	assert.Equal(t, "third", history[1].Text)
}

func TestDeleteOwned(t *testing.T) {
	svc, users, files := newTestService(t)
	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")
	ctx := context.Background()

	msg, err := svc.Create(ctx, alice.ID, "mine", service.CreateOptions{
		AttachmentKind: strptr(domain.AttachmentImage),
		AttachmentRef:  strptr("pic.png"),
	})
	require.NoError(t, err)

	t.Run("NonOwnerCollapsedToNotRemoved", func(t *testing.T) {
		res, err := svc.DeleteOwned(ctx, msg.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, res.Removed)
	})

	t.Run("OwnerRemovesAndRetractsBlob", func(t *testing.T) {
		res, err := svc.DeleteOwned(ctx, msg.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, res.Removed)
		assert.Equal(t, msg.ID, res.MessageID)
		assert.Contains(t, files.deleted, "pic.png")
	})

	t.Run("SecondDeleteIsQuietNoOp", func(t *testing.T) {
		res, err := svc.DeleteOwned(ctx, msg.ID, alice.ID)
		require.NoError(t, err)
		assert.False(t, res.Removed)
	})

	t.Run("UnknownIDNotRemoved", func(t *testing.T) {
		res, err := svc.DeleteOwned(ctx, 99999, alice.ID)
		require.NoError(t, err)
		assert.False(t, res.Removed)
	})
}

func TestSearchAndListByUsername(t *testing.T) {
	svc, users, _ := newTestService(t)
	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")
	ctx := context.Background()

	_, err := svc.Create(ctx, alice.ID, "the quick brown fox", service.CreateOptions{})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob.ID, "lazy dog", service.CreateOptions{})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "quick", 50)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "alice", found[0].Username)

	byBob, err := svc.ListByUsername(ctx, "bob", 50)
	require.NoError(t, err)
	require.Len(t, byBob, 1)
	assert.Equal(t, "lazy dog", byBob[0].Text)
}

func TestStats(t *testing.T) {
	svc, users, _ := newTestService(t)
	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, alice.ID, "hi", service.CreateOptions{})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, bob.ID, "hi", service.CreateOptions{})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalMessages)
	require.NotEmpty(t, stats.TopAuthors)
	assert.Equal(t, "alice", stats.TopAuthors[0].Username)
	assert.Equal(t, 3, stats.TopAuthors[0].Count)
}

func TestSweepExpiredAttachments(t *testing.T) {
	svc, users, files := newTestService(t)
	alice := seedUser(t, users, "alice")
	ctx := context.Background()

	expired, err := svc.Create(ctx, alice.ID, "old pic", service.CreateOptions{
		AttachmentKind: strptr(domain.AttachmentImage),
		AttachmentRef:  strptr("old.png"),
		ExpiresInHours: intptr(0), // already expired
	})
	require.NoError(t, err)

	fresh, err := svc.Create(ctx, alice.ID, "new pic", service.CreateOptions{
		AttachmentKind: strptr(domain.AttachmentImage),
		AttachmentRef:  strptr("new.png"),
		ExpiresInHours: intptr(1),
	})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	n, err := svc.SweepExpiredAttachments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, files.deleted, "old.png")
	assert.NotContains(t, files.deleted, "new.png")

	history, err := svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	swept := history[0]
	assert.Equal(t, expired.ID, swept.ID)
	assert.Equal(t, "old pic", swept.Text)
	assert.Nil(t, swept.AttachmentRef)
	assert.Nil(t, swept.AttachmentKind)
	assert.Nil(t, swept.AttachmentExpiresAt)

	kept := history[1]
	assert.Equal(t, fresh.ID, kept.ID)
	require.NotNil(t, kept.AttachmentRef)
	assert.Equal(t, "new.png", *kept.AttachmentRef)
}
