package app

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fillog/api/internal/authpw"
	"fillog/api/internal/session"
	"fillog/api/internal/store"
	"fillog/api/internal/upload"
)

const testSecret = "test-secret"

// pingStore overrides Ping on a real store.
type pingStore struct {
	store.Store
	pingFn func(context.Context) error
}

func (p *pingStore) Ping(ctx context.Context) error {
	if p.pingFn != nil {
		return p.pingFn(ctx)
	}
	return p.Store.Ping(ctx)
}

type testEnv struct {
	store      store.Store
	service    *Service
	server     *HTTPServer
	uploadsDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.OpenMemory(context.Background())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return newTestEnvWithStore(t, db)
}

func newTestEnvWithStore(t *testing.T, st store.Store) *testEnv {
	t.Helper()
	uploadsDir := t.TempDir()
	uploads, err := upload.NewLocal(uploadsDir)
	if err != nil {
		t.Fatalf("local uploads: %v", err)
	}
	authService := authpw.NewService(st, authpw.Options{
		TokenSecret: testSecret,
		TokenTTL:    time.Hour,
		BcryptCost:  bcrypt.MinCost,
		Revocations: session.NewMemoryStore(),
	})
	svc := New(Options{Store: st, Auth: authService, Uploads: uploads})
	return &testEnv{
		store:      st,
		service:    svc,
		server:     NewHTTPServer(svc, "*", nil, nil),
		uploadsDir: uploadsDir,
	}
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

// registerUser creates an account and logs it in.
func (e *testEnv) registerUser(t *testing.T, account, name string) (store.User, string) {
	t.Helper()
	ctx := context.Background()
	user, err := e.service.Register(ctx, RegisterInput{Account: account, Password: "password1", UserName: name})
	if err != nil {
		t.Fatalf("register %s: %v", account, err)
	}
	resp, err := e.service.Login(ctx, account, "password1")
	if err != nil {
		t.Fatalf("login %s: %v", account, err)
	}
	return user, resp.Token
}

func (e *testEnv) makeAdmin(t *testing.T, userID string) {
	t.Helper()
	ctx := context.Background()
	user, err := e.store.Users().Get(ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	user.Role = store.RoleAdmin
	if err := e.store.Users().Replace(ctx, user); err != nil {
		t.Fatalf("promote user: %v", err)
	}
}

func (e *testEnv) createPost(t *testing.T, title string) store.Post {
	t.Helper()
	post, err := e.service.CreatePost(context.Background(), PostInput{Title: title, Text: title + " text", Category: intPtr(1)})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}
