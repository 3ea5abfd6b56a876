package services_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"social-backend/internal/clock"
	"social-backend/internal/media"
	"social-backend/internal/models"
	"social-backend/internal/push"
	"social-backend/internal/repository/sqlite"
	"social-backend/internal/services"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	_ services.UserStore         = (*sqlite.UserRepository)(nil)
	_ services.PostStore         = (*sqlite.PostRepository)(nil)
	_ services.NotificationStore = (*sqlite.NotificationRepository)(nil)
)

type testEnv struct {
	clock         *clock.Stub
	store         *sqlite.Store
	media         *media.MemoryStore
	hub           *services.WSHub
	pusher        *fakePusher
	tokens        *services.TokenIssuer
	auth          *services.AuthService
	users         *services.UserService
	posts         *services.PostService
	notifications *services.NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		clock:  clock.NewStub(),
		store:  store,
		media:  media.NewMemoryStore("https://cdn.test/media"),
		hub:    services.NewWSHub(),
		pusher: &fakePusher{},
	}
	hasher := services.NewBcryptHasher(bcrypt.MinCost)
	env.tokens = services.NewTokenIssuer("test-secret", time.Hour, env.clock)
	env.auth = services.NewAuthService(store.Users, hasher, env.tokens, env.clock)
	env.users = services.NewUserService(store.Users, hasher, env.media, env.clock)
	env.notifications = services.NewNotificationService(store.Notifications, store.Users, env.hub, env.pusher)
	env.posts = services.NewPostService(store.Posts, store.Users, env.media, env.notifications, env.clock)
	return env
}

func getTestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

const testPassword = "secret-password"

func (e *testEnv) createUser(ctx context.Context, t *testing.T) *models.User {
	t.Helper()
	session, err := e.auth.Signup(ctx, services.SignupRequest{
		Username: gofakeit.Username() + gofakeit.DigitN(6),
		Email:    gofakeit.DigitN(6) + gofakeit.Email(),
		FullName: gofakeit.Name(),
		Password: testPassword,
	})
	require.NoError(t, err)
	return session.User
}

func (e *testEnv) createPost(ctx context.Context, t *testing.T, userID string) *models.Post {
	t.Helper()
	post, err := e.posts.CreatePost(ctx, userID, services.CreatePostRequest{Text: gofakeit.Sentence(8)})
	require.NoError(t, err)
	return post
}

// testImage is a data URI that sniffs as image/png
func testImage() string {
	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

type fakePusher struct {
	mu       sync.Mutex
	messages []pushed
	err      error
}

type pushed struct {
	token string
	msg   push.Message
}

func (p *fakePusher) Push(ctx context.Context, deviceToken string, msg push.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, pushed{token: deviceToken, msg: msg})
	return nil
}

func (p *fakePusher) sent() []pushed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushed(nil), p.messages...)
}

type failingMedia struct{}

func (failingMedia) Upload(ctx context.Context, raw string) (string, error) {
	return "", errors.New("storage unavailable")
}

func (failingMedia) Delete(ctx context.Context, publicID string) error {
	return errors.New("storage unavailable")
}

func requireKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
}
