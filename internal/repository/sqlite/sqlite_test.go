package sqlite_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"social-backend/internal/models"
	"social-backend/internal/repository"
	"social-backend/internal/repository/sqlite"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newUser(ctx context.Context, t *testing.T, store *sqlite.Store, at time.Time) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     gofakeit.Username() + gofakeit.DigitN(6),
		Email:        gofakeit.DigitN(6) + gofakeit.Email(),
		FullName:     gofakeit.Name(),
		PasswordHash: "hash",
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	require.NoError(t, store.Users.Create(ctx, user))
	return user
}

func newPost(ctx context.Context, t *testing.T, store *sqlite.Store, userID string, at time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		ID:        uuid.New().String(),
		UserID:    userID,
		Text:      gofakeit.Sentence(6),
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, store.Posts.Create(ctx, post))
	return post
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.UnixMilli(time.Now().UnixMilli()).UTC()

	user := newUser(ctx, t, store, now)

	got, err := store.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Username, got.Username)
	require.Equal(t, now, got.CreatedAt)
	require.Empty(t, got.PasswordHash)
	require.NotNil(t, got.Followers)
	require.NotNil(t, got.LikedPosts)

	got, err = store.Users.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = store.Users.GetByID(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	hash, err := store.Users.PasswordHash(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "hash", hash)

	exists, err := store.Users.UsernameExists(ctx, user.Username)
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = store.Users.EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.False(t, exists)

	dup := *user
	dup.ID = uuid.New().String()
	require.ErrorIs(t, store.Users.Create(ctx, &dup), repository.ErrDuplicate)

	user.Bio = "updated"
	require.NoError(t, store.Users.Update(ctx, user))
	got, err = store.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "updated", got.Bio)

	require.NoError(t, store.Users.UpdatePassword(ctx, user.ID, "new-hash"))
	hash, err = store.Users.PasswordHash(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", hash)
}

func TestFollowGraph(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	a := newUser(ctx, t, store, now)
	b := newUser(ctx, t, store, now)
	c := newUser(ctx, t, store, now)

	require.NoError(t, store.Users.Follow(ctx, a.ID, b.ID, now))
	require.NoError(t, store.Users.Follow(ctx, a.ID, b.ID, now))
	require.ErrorIs(t, store.Users.Follow(ctx, a.ID, "missing", now), repository.ErrNotFound)

	gotA, err := store.Users.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, []string{b.ID}, gotA.Following)

	suggested, err := store.Users.ListSuggested(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, suggested, 1)
	require.Equal(t, c.ID, suggested[0].ID)

	require.NoError(t, store.Users.Unfollow(ctx, a.ID, b.ID))
	gotB, err := store.Users.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.Empty(t, gotB.Followers)
}

func TestPostLikes(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	owner := newUser(ctx, t, store, now)
	liker := newUser(ctx, t, store, now)
	post := newPost(ctx, t, store, owner.ID, now)

	notification := &models.Notification{
		ID:        uuid.New().String(),
		FromID:    liker.ID,
		ToID:      owner.ID,
		Type:      models.NotificationLike,
		CreatedAt: now,
	}
	added, err := store.Posts.AddLike(ctx, post.ID, liker.ID, now, notification)
	require.NoError(t, err)
	require.True(t, added)

	// a repeated like changes nothing and records no second notification
	again := *notification
	again.ID = uuid.New().String()
	added, err = store.Posts.AddLike(ctx, post.ID, liker.ID, now, &again)
	require.NoError(t, err)
	require.False(t, added)

	count, err := store.Notifications.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	likes, err := store.Posts.Likes(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, []string{liker.ID}, likes)

	gotLiker, err := store.Users.GetByID(ctx, liker.ID)
	require.NoError(t, err)
	require.Equal(t, []string{post.ID}, gotLiker.LikedPosts)

	_, err = store.Posts.AddLike(ctx, "missing", liker.ID, now, nil)
	require.ErrorIs(t, err, repository.ErrNotFound)

	removed, err := store.Posts.RemoveLike(ctx, post.ID, liker.ID)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = store.Posts.RemoveLike(ctx, post.ID, liker.ID)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestPostDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	owner := newUser(ctx, t, store, now)
	liker := newUser(ctx, t, store, now)
	post := newPost(ctx, t, store, owner.ID, now)

	_, err := store.Posts.AddLike(ctx, post.ID, liker.ID, now, nil)
	require.NoError(t, err)
	require.NoError(t, store.Posts.AddComment(ctx, post.ID, &models.Comment{UserID: liker.ID, Text: "nice", CreatedAt: now}))

	got, err := store.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	require.Equal(t, liker.Username, got.Comments[0].User.Username)
	require.Equal(t, owner.Username, got.User.Username)

	require.NoError(t, store.Posts.Delete(ctx, post.ID))
	require.ErrorIs(t, store.Posts.Delete(ctx, post.ID), repository.ErrNotFound)

	gotLiker, err := store.Users.GetByID(ctx, liker.ID)
	require.NoError(t, err)
	require.Empty(t, gotLiker.LikedPosts)

	err = store.Posts.AddComment(ctx, post.ID, &models.Comment{UserID: liker.ID, Text: "late", CreatedAt: now})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostList(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	start := time.Now().UTC()

	a := newUser(ctx, t, store, start)
	b := newUser(ctx, t, store, start)
	require.NoError(t, store.Users.Follow(ctx, a.ID, b.ID, start))

	var ids []string
	for i := 0; i < 4; i++ {
		author := a
		if i%2 == 1 {
			author = b
		}
		post := newPost(ctx, t, store, author.ID, start.Add(time.Duration(i)*time.Second))
		ids = append([]string{post.ID}, ids...)
	}
	_, err := store.Posts.AddLike(ctx, ids[0], a.ID, start, nil)
	require.NoError(t, err)

	listIDs := func(filter repository.PostFilter) []string {
		posts, err := store.Posts.List(ctx, filter)
		require.NoError(t, err)
		out := []string{}
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}

	require.Equal(t, ids, listIDs(repository.PostFilter{}))
	require.Equal(t, ids[1:3], listIDs(repository.PostFilter{Limit: 2, Offset: 1}))
	require.Equal(t, ids[2:], listIDs(repository.PostFilter{Offset: 2}))
	require.Equal(t, []string{ids[0], ids[2]}, listIDs(repository.PostFilter{AuthorID: b.ID}))
	require.Equal(t, []string{ids[0], ids[2]}, listIDs(repository.PostFilter{FollowedBy: a.ID}))
	require.Equal(t, []string{ids[0]}, listIDs(repository.PostFilter{LikedBy: a.ID}))
	require.Empty(t, listIDs(repository.PostFilter{FollowedBy: b.ID}))
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()

	owner := newUser(ctx, t, store, now)
	liker := newUser(ctx, t, store, now)
	post := newPost(ctx, t, store, owner.ID, now)

	n := &models.Notification{ID: uuid.New().String(), FromID: liker.ID, ToID: owner.ID, Type: models.NotificationLike, CreatedAt: now}
	_, err := store.Posts.AddLike(ctx, post.ID, liker.ID, now, n)
	require.NoError(t, err)

	got, err := store.Notifications.GetByID(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, liker.Username, got.From.Username)
	require.False(t, got.Read)

	require.NoError(t, store.Notifications.MarkAllRead(ctx, owner.ID))
	list, err := store.Notifications.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].Read)

	require.NoError(t, store.Notifications.Delete(ctx, n.ID))
	require.ErrorIs(t, store.Notifications.Delete(ctx, n.ID), repository.ErrNotFound)
	_, err = store.Notifications.GetByID(ctx, n.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
