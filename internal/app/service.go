package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"fillog/api/internal/authpw"
	"fillog/api/internal/metrics"
	"fillog/api/internal/rbac"
	"fillog/api/internal/search"
	"fillog/api/internal/store"
	"fillog/api/internal/upload"
)

// Actor is the caller of a mutating operation. The zero Actor is anonymous.
type Actor struct {
	UserID string
	Role   string
}

func actorFrom(identity authpw.Identity) Actor {
	return Actor{UserID: identity.User.ID, Role: identity.User.Role}
}

func (a Actor) can(action rbac.Action) bool {
	if a.UserID == "" {
		return false
	}
	return rbac.Can(rbac.Normalize(a.Role), action)
}

// FileUpload is a file received with a multipart request.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Options struct {
	Store   store.Store
	Auth    *authpw.Service
	Search  *search.Service
	Uploads upload.Storage
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type Service struct {
	store   store.Store
	auth    *authpw.Service
	search  *search.Service
	uploads upload.Storage
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// New wires the domain services. Search defaults to a store scan and a nil
// logger to a no-op one. Uploads may be nil, which rejects file uploads.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	searchService := opts.Search
	if searchService == nil {
		searchService = search.NewService(nil, search.NewStoreScan(opts.Store), logger)
	}
	return &Service{
		store:   opts.Store,
		auth:    opts.Auth,
		search:  searchService,
		uploads: opts.Uploads,
		metrics: opts.Metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Authenticate(ctx context.Context, token string) (authpw.Identity, error) {
	return s.auth.Authenticate(ctx, token)
}

// lookup loads a document and turns a missing one into a NOT_FOUND domain error.
func lookup[T store.Document](ctx context.Context, c store.Collection[T], id, entity string) (T, error) {
	doc, err := c.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		var zero T
		return zero, errNotFound(entity)
	}
	return doc, err
}

// resolveAuthor builds the Author for a reply or guestbook entry. A userID that
// resolves makes a registered author. Anything else is a guest, which must carry
// a name and a password.
func (s *Service) resolveAuthor(ctx context.Context, userID, userName, password string) (store.Author, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID != "" {
		user, err := s.store.Users().Get(ctx, userID)
		if err == nil {
			return store.Author{IsUser: true, UserID: user.ID, UserName: user.UserName}, true, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return store.Author{}, false, fmt.Errorf("resolve author: %w", err)
		}
		s.logger.Info("author user not found, writing as guest", zap.String("userID", userID))
	}

	// An unresolved userID is written as a guest, so it needs guest credentials
	// as well. Without a password the item could only ever be deleted by an admin.
	userName = strings.TrimSpace(userName)
	if userName == "" || password == "" {
		return store.Author{}, false, errValidation("guest authors must provide userName and password")
	}
	if len(password) > authpw.MaxPasswordLength {
		return store.Author{}, false, errValidation("password must be at most %d bytes", authpw.MaxPasswordLength)
	}
	hash, err := s.auth.HashSecret(password)
	if err != nil {
		return store.Author{}, false, err
	}
	return store.Author{IsUser: false, UserName: userName, PasswordHash: hash}, false, nil
}

// authorizeDelete allows admins, the registered author, or whoever knows a guest author's password.
func (s *Service) authorizeDelete(author store.Author, password string, actor Actor) error {
	if actor.can(rbac.ActionModerate) {
		return nil
	}
	if author.IsGuest() {
		if password == "" || !s.auth.CheckSecret(author.PasswordHash, password) {
			return errForbidden("password does not match")
		}
		return nil
	}
	if actor.UserID == "" || actor.UserID != author.UserID {
		return errForbidden("only the author can delete this")
	}
	return nil
}

func (s *Service) saveUpload(ctx context.Context, file *FileUpload) (string, error) {
	if file == nil {
		return "", nil
	}
	if s.uploads == nil {
		return "", errValidation("file uploads are not enabled")
	}
	key := upload.NewKey(file.Filename)
	if err := s.uploads.Save(ctx, key, file.Body, file.Size, file.ContentType); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return upload.PathFor(key), nil
}

// discardUpload removes an upload saved for a write that then failed.
func (s *Service) discardUpload(ctx context.Context, path string) {
	key, ok := upload.KeyFromPath(path)
	if !ok || s.uploads == nil {
		return
	}
	if err := s.uploads.Delete(ctx, key); err != nil {
		s.logger.Warn("discard upload", zap.String("key", key), zap.Error(err))
	}
}

// OpenUpload streams a stored upload by key.
func (s *Service) OpenUpload(ctx context.Context, key string) (io.ReadCloser, upload.Info, error) {
	if s.uploads == nil {
		return nil, upload.Info{}, errNotFound(entityUpload)
	}
	rc, info, err := s.uploads.Open(ctx, key)
	if errors.Is(err, upload.ErrNotFound) || errors.Is(err, upload.ErrInvalidKey) {
		return nil, upload.Info{}, errNotFound(entityUpload)
	}
	return rc, info, err
}

func (s *Service) event(ctx context.Context, name string) {
	s.metrics.Event(ctx, name)
}
