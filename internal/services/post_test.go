package services_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"social-backend/internal/media"
	"social-backend/internal/models"
	"social-backend/internal/repository"
	"social-backend/internal/services"

	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	user := env.createUser(ctx, t)

	post, err := env.posts.CreatePost(ctx, user.ID, services.CreatePostRequest{Text: "  hello world  "})
	require.NoError(t, err)
	require.NotEmpty(t, post.ID)
	require.Equal(t, "hello world", post.Text)
	require.Empty(t, post.Img)
	require.Equal(t, user.ID, post.User.ID)
	require.Equal(t, user.Username, post.User.Username)
	require.Empty(t, post.Likes)
	require.Empty(t, post.Comments)
	require.Equal(t, env.clock.Now(), post.CreatedAt)
}

func TestCreatePostWithImage(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	user := env.createUser(ctx, t)

	post, err := env.posts.CreatePost(ctx, user.ID, services.CreatePostRequest{Img: testImage()})
	require.NoError(t, err)
	require.Contains(t, post.Img, "https://cdn.test/media/")
	require.True(t, env.media.Has(media.PublicID(post.Img)))
}

func TestCreatePostRequiresTextOrImage(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	user := env.createUser(ctx, t)

	_, err := env.posts.CreatePost(ctx, user.ID, services.CreatePostRequest{Text: "   "})
	requireKind(t, err, services.ErrInvalidInput)

	posts, err := env.store.Posts.List(ctx, repository.PostFilter{})
	require.NoError(t, err)
	require.Empty(t, posts)
}

func TestCreatePostRejectsInvalidImage(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	user := env.createUser(ctx, t)

	_, err := env.posts.CreatePost(ctx, user.ID, services.CreatePostRequest{Img: "data:image/png;base64,bm90IGFuIGltYWdl"})
	requireKind(t, err, services.ErrInvalidInput)
}

func TestCreatePostUnknownUser(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	_, err := env.posts.CreatePost(ctx, "missing", services.CreatePostRequest{Text: "hi"})
	requireKind(t, err, services.ErrNotFound)
}

func TestDeletePost(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	owner := env.createUser(ctx, t)
	post, err := env.posts.CreatePost(ctx, owner.ID, services.CreatePostRequest{Text: "bye", Img: testImage()})
	require.NoError(t, err)

	require.NoError(t, env.posts.DeletePost(ctx, owner.ID, post.ID))

	_, err = env.store.Posts.GetByID(ctx, post.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.Equal(t, []string{media.PublicID(post.Img)}, env.media.Deleted())

	err = env.posts.DeletePost(ctx, owner.ID, post.ID)
	requireKind(t, err, services.ErrNotFound)
}

func TestDeletePostByNonOwnerIsForbidden(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	owner := env.createUser(ctx, t)
	other := env.createUser(ctx, t)
	post := env.createPost(ctx, t, owner.ID)

	err := env.posts.DeletePost(ctx, other.ID, post.ID)
	requireKind(t, err, services.ErrForbidden)

	stored, err := env.store.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, post.Text, stored.Text)
	require.Equal(t, owner.ID, stored.User.ID)
}

func TestDeletePostKeepsRecordWhenImageDeleteFails(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	owner := env.createUser(ctx, t)
	post, err := env.posts.CreatePost(ctx, owner.ID, services.CreatePostRequest{Img: testImage()})
	require.NoError(t, err)

	failing := services.NewPostService(env.store.Posts, env.store.Users, failingMedia{}, env.notifications, env.clock)
	err = failing.DeletePost(ctx, owner.ID, post.ID)
	require.Error(t, err)
	var svcErr *services.Error
	require.False(t, errors.As(err, &svcErr))

	_, err = env.store.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
}

func TestCommentOnPost(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	owner := env.createUser(ctx, t)
	commenter := env.createUser(ctx, t)
	post := env.createPost(ctx, t, owner.ID)

	_, err := env.posts.CommentOnPost(ctx, commenter.ID, post.ID, "first")
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	updated, err := env.posts.CommentOnPost(ctx, owner.ID, post.ID, "second")
	require.NoError(t, err)

	require.Len(t, updated.Comments, 2)
	require.Equal(t, "first", updated.Comments[0].Text)
	require.Equal(t, commenter.ID, updated.Comments[0].User.ID)
	require.Equal(t, commenter.Username, updated.Comments[0].User.Username)
	require.Equal(t, "second", updated.Comments[1].Text)
	require.Equal(t, owner.ID, updated.Comments[1].User.ID)

	notifications, err := env.store.Notifications.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Empty(t, notifications)
}

func TestCommentOnPostValidation(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	user := env.createUser(ctx, t)
	post := env.createPost(ctx, t, user.ID)

	_, err := env.posts.CommentOnPost(ctx, user.ID, post.ID, "  \n ")
	requireKind(t, err, services.ErrInvalidInput)

	_, err = env.posts.CommentOnPost(ctx, user.ID, "missing", "text")
	requireKind(t, err, services.ErrNotFound)
}

func TestToggleLikeAddsLikeAndNotification(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	owner := env.createUser(ctx, t)
	liker := env.createUser(ctx, t)
	post := env.createPost(ctx, t, owner.ID)

	likes, err := env.posts.ToggleLike(ctx, liker.ID, post.ID)
	require.NoError(t, err)
	require.Equal(t, []string{liker.ID}, likes)

	stored, err := env.store.Users.GetByID(ctx, liker.ID)
	require.NoError(t, err)
	require.Equal(t, []string{post.ID}, stored.LikedPosts)

	notifications, err := env.store.Notifications.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, liker.ID, notifications[0].From.ID)
	require.Equal(t, owner.ID, notifications[0].ToID)
	require.Equal(t, models.NotificationLike, notifications[0].Type)
	require.False(t, notifications[0].Read)
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	owner := env.createUser(ctx, t)
	liker := env.createUser(ctx, t)
	other := env.createUser(ctx, t)
	post := env.createPost(ctx, t, owner.ID)

	_, err := env.posts.ToggleLike(ctx, other.ID, post.ID)
	require.NoError(t, err)
	before, err := env.store.Notifications.ListForUser(ctx, owner.ID)
	require.NoError(t, err)

	_, err = env.posts.ToggleLike(ctx, liker.ID, post.ID)
	require.NoError(t, err)
	likes, err := env.posts.ToggleLike(ctx, liker.ID, post.ID)
	require.NoError(t, err)
	require.Equal(t, []string{other.ID}, likes)

	stored, err := env.store.Users.GetByID(ctx, liker.ID)
	require.NoError(t, err)
	require.Empty(t, stored.LikedPosts)

	after, err := env.store.Notifications.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
}

func TestToggleLikeOwnPostHasNoNotification(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	owner := env.createUser(ctx, t)
	post := env.createPost(ctx, t, owner.ID)

	likes, err := env.posts.ToggleLike(ctx, owner.ID, post.ID)
	require.NoError(t, err)
	require.Equal(t, []string{owner.ID}, likes)

	notifications, err := env.store.Notifications.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Empty(t, notifications)
}

func TestToggleLikeUnknownPost(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	user := env.createUser(ctx, t)
	_, err := env.posts.ToggleLike(ctx, user.ID, "missing")
	requireKind(t, err, services.ErrNotFound)
}

func TestListAllPostsNewestFirst(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	user := env.createUser(ctx, t)
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append([]string{env.createPost(ctx, t, user.ID).ID}, ids...)
		env.clock.Advance(time.Minute)
	}

	posts, err := env.posts.ListAllPosts(ctx, services.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, ids, postIDs(posts))

	page, err := env.posts.ListAllPosts(ctx, services.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, ids[1:2], postIDs(page))
}

func TestListFollowingFeed(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	viewer := env.createUser(ctx, t)
	followed := env.createUser(ctx, t)
	stranger := env.createUser(ctx, t)

	_, err := env.users.ToggleFollow(ctx, viewer.ID, followed.ID)
	require.NoError(t, err)

	first := env.createPost(ctx, t, followed.ID)
	env.clock.Advance(time.Minute)
	env.createPost(ctx, t, stranger.ID)
	env.clock.Advance(time.Minute)
	env.createPost(ctx, t, viewer.ID)
	env.clock.Advance(time.Minute)
	second := env.createPost(ctx, t, followed.ID)

	feed, err := env.posts.ListFollowingFeed(ctx, viewer.ID, services.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{second.ID, first.ID}, postIDs(feed))
	for _, post := range feed {
		require.Equal(t, followed.ID, post.User.ID)
	}

	_, err = env.posts.ListFollowingFeed(ctx, "missing", services.ListOptions{})
	requireKind(t, err, services.ErrNotFound)
}

func TestListLikedPosts(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	owner := env.createUser(ctx, t)
	liker := env.createUser(ctx, t)
	older := env.createPost(ctx, t, owner.ID)
	env.clock.Advance(time.Minute)
	env.createPost(ctx, t, owner.ID)
	env.clock.Advance(time.Minute)
	newer := env.createPost(ctx, t, owner.ID)

	for _, id := range []string{older.ID, newer.ID} {
		_, err := env.posts.ToggleLike(ctx, liker.ID, id)
		require.NoError(t, err)
	}

	posts, err := env.posts.ListLikedPosts(ctx, liker.ID, services.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{newer.ID, older.ID}, postIDs(posts))
	require.Equal(t, []string{liker.ID}, posts[0].Likes)

	_, err = env.posts.ListLikedPosts(ctx, "missing", services.ListOptions{})
	requireKind(t, err, services.ErrNotFound)
}

func TestListUserPosts(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	author := env.createUser(ctx, t)
	other := env.createUser(ctx, t)
	post := env.createPost(ctx, t, author.ID)
	env.createPost(ctx, t, other.ID)

	posts, err := env.posts.ListUserPosts(ctx, author.Username, services.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{post.ID}, postIDs(posts))

	_, err = env.posts.ListUserPosts(ctx, "nobody-by-this-name", services.ListOptions{})
	requireKind(t, err, services.ErrNotFound)
}

func TestFollowLikeCommentScenario(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()
	env := newTestEnv(t)

	a := env.createUser(ctx, t)
	b := env.createUser(ctx, t)

	post, err := env.posts.CreatePost(ctx, a.ID, services.CreatePostRequest{Text: "hello"})
	require.NoError(t, err)

	all, err := env.posts.ListAllPosts(ctx, services.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{post.ID}, postIDs(all))
	require.Equal(t, a.ID, all[0].User.ID)
	require.Equal(t, a.Username, all[0].User.Username)
	body, err := json.Marshal(all)
	require.NoError(t, err)
	require.NotContains(t, string(body), "password")

	following, err := env.users.ToggleFollow(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.True(t, following)

	feed, err := env.posts.ListFollowingFeed(ctx, b.ID, services.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{post.ID}, postIDs(feed))

	likes, err := env.posts.ToggleLike(ctx, b.ID, post.ID)
	require.NoError(t, err)
	require.Equal(t, []string{b.ID}, likes)

	notifications, err := env.notifications.List(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, b.ID, notifications[0].From.ID)
	require.Equal(t, b.Username, notifications[0].From.Username)
	require.Equal(t, a.ID, notifications[0].ToID)
	require.Equal(t, models.NotificationLike, notifications[0].Type)

	likes, err = env.posts.ToggleLike(ctx, b.ID, post.ID)
	require.NoError(t, err)
	require.Empty(t, likes)

	notifications, err = env.notifications.List(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	updated, err := env.posts.CommentOnPost(ctx, b.ID, post.ID, "nice")
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	require.Equal(t, "nice", updated.Comments[0].Text)
	require.Equal(t, b.ID, updated.Comments[0].User.ID)

	err = env.posts.DeletePost(ctx, b.ID, post.ID)
	requireKind(t, err, services.ErrForbidden)

	require.NoError(t, env.posts.DeletePost(ctx, a.ID, post.ID))

	all, err = env.posts.ListAllPosts(ctx, services.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, all)

	liker, err := env.store.Users.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.Empty(t, liker.LikedPosts)
}

func postIDs(posts []*models.Post) []string {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}
