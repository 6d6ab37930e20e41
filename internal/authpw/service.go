// Package authpw provides account/password registration, login and bearer token authentication.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fillog/api/internal/auth"
	"fillog/api/internal/store"
	"fillog/api/internal/util"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrAccountExists      = errors.New("account already registered")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid account or password")
	ErrUserNotFound       = errors.New("user no longer exists")
)

// UserStore defines the storage the auth service needs
type UserStore interface {
	Users() store.Collection[store.User]
}

// Revocations records tokens revoked by logout
type Revocations interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Options configures the auth service
type Options struct {
	TokenSecret string
	TokenTTL    time.Duration
	BcryptCost  int
	Revocations Revocations
}

// Service provides account/password authentication
type Service struct {
	store       UserStore
	tokenSecret []byte
	tokenTTL    time.Duration
	cost        int
	revocations Revocations
	now         func() time.Time
}

// NewService creates a new auth service
func NewService(users UserStore, opts Options) *Service {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		store:       users,
		tokenSecret: []byte(opts.TokenSecret),
		tokenTTL:    ttl,
		cost:        cost,
		revocations: opts.Revocations,
		now:         time.Now,
	}
}

// RegisterRequest contains registration parameters
type RegisterRequest struct {
	Account   string
	Password  string
	UserName  string
	UserImage string
}

// Register creates a new user account with the default role
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	account := strings.TrimSpace(req.Account)
	userName := strings.TrimSpace(req.UserName)
	if account == "" || req.Password == "" || userName == "" {
		return store.User{}, fmt.Errorf("%w: account, password, and userName are required", ErrInvalidInput)
	}
	if len(req.Password) < MinPasswordLength {
		return store.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if len(req.Password) > MaxPasswordLength {
		return store.User{}, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, MaxPasswordLength)
	}

	existing, err := s.store.Users().Find(ctx, store.Where("account", account))
	if err != nil {
		return store.User{}, fmt.Errorf("lookup account: %w", err)
	}
	if len(existing) > 0 {
		return store.User{}, ErrAccountExists
	}

	hash, err := s.HashSecret(req.Password)
	if err != nil {
		return store.User{}, err
	}

	user := store.User{
		ID:                util.NewID(""),
		Account:           account,
		UserName:          userName,
		PasswordHash:      hash,
		UserImage:         req.UserImage,
		Role:              store.RoleUser,
		LikedArticles:     store.IDSet{},
		CommentedArticles: store.IDSet{},
		Followers:         store.IDSet{},
		Followings:        store.IDSet{},
		CreatedAt:         s.now().UTC(),
	}

	// The unique account index closes the race between the lookup and the insert.
	if err := s.store.Users().Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.User{}, ErrAccountExists
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// LoginResponse contains the authenticated user and a signed bearer token
type LoginResponse struct {
	User      store.User
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials and issues a token
func (s *Service) Login(ctx context.Context, account, password string) (*LoginResponse, error) {
	account = strings.TrimSpace(account)
	if account == "" || password == "" {
		return nil, fmt.Errorf("%w: account and password are required", ErrInvalidInput)
	}

	user, err := s.findByAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	if !s.CheckSecret(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	claims := auth.NewClaims(user.ID, user.Account, util.NewID(""), now, s.tokenTTL)
	token, err := auth.IssueToken(s.tokenSecret, claims)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		User:      user,
		Token:     token,
		ExpiresAt: claims.ExpiresAtTime(),
	}, nil
}

// Identity is the user resolved from a bearer token
type Identity struct {
	User   store.User
	Claims auth.Claims
}

// Authenticate verifies a bearer token and loads its subject
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := s.parse(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	user, err := s.store.Users().Get(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Identity{}, ErrUserNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("load user: %w", err)
	}
	return Identity{User: user, Claims: claims}, nil
}

// Logout revokes the token until it would have expired
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(ctx, token)
	if err != nil {
		return err
	}
	return s.Revoke(ctx, claims)
}

// Revoke adds the token's jti to the denylist. Without a denylist it is a no-op.
func (s *Service) Revoke(ctx context.Context, claims auth.Claims) error {
	if s.revocations == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// HashSecret hashes a password with the configured bcrypt cost
func (s *Service) HashSecret(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, MaxPasswordLength)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckSecret reports whether password matches hash. An empty hash never matches.
func (s *Service) CheckSecret(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *Service) parse(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := auth.ParseToken(s.tokenSecret, token)
	if err != nil {
		return auth.Claims{}, err
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return auth.Claims{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return auth.Claims{}, fmt.Errorf("%w: token revoked", auth.ErrInvalidToken)
		}
	}
	return claims, nil
}

func (s *Service) findByAccount(ctx context.Context, account string) (store.User, error) {
	users, err := s.store.Users().Find(ctx, store.Where("account", account))
	if err != nil {
		return store.User{}, fmt.Errorf("lookup account: %w", err)
	}
	if len(users) == 0 {
		return store.User{}, ErrAccountNotFound
	}
	return users[0], nil
}
