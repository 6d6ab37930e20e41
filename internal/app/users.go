package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fillog/api/internal/authpw"
	"fillog/api/internal/rbac"
	"fillog/api/internal/store"
)

type RegisterInput struct {
	Account  string
	Password string
	UserName string
	Avatar   *FileUpload
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (store.User, error) {
	image, err := s.saveUpload(ctx, input.Avatar)
	if err != nil {
		return store.User{}, err
	}
	user, err := s.auth.Register(ctx, authpw.RegisterRequest{
		Account:   input.Account,
		Password:  input.Password,
		UserName:  input.UserName,
		UserImage: image,
	})
	if err != nil {
		s.discardUpload(ctx, image)
		return store.User{}, err
	}
	s.event(ctx, "user_registered")
	s.logger.Info("user registered", zap.String("userID", user.ID), zap.String("account", user.Account))
	return user, nil
}

func (s *Service) Login(ctx context.Context, account, password string) (*authpw.LoginResponse, error) {
	resp, err := s.auth.Login(ctx, account, password)
	if err != nil {
		return nil, err
	}
	s.event(ctx, "user_login")
	return resp, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.auth.Logout(ctx, token)
}

func (s *Service) ListUsers(ctx context.Context) ([]store.User, error) {
	users, err := s.store.Users().Find(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (store.User, error) {
	return lookup(ctx, s.store.Users(), id, entityUser)
}

// UserPatch is a partial profile update. Nil fields are left unchanged.
type UserPatch struct {
	UserName *string
	Account  *string
	Avatar   *FileUpload
}

// EditUser updates the name, account or avatar of a user. Taking another
// user's account is a duplicate account error.
func (s *Service) EditUser(ctx context.Context, id string, patch UserPatch) (store.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return store.User{}, errValidation("_id is required")
	}
	if patch.UserName != nil && strings.TrimSpace(*patch.UserName) == "" {
		return store.User{}, errValidation("userName cannot be empty")
	}
	if patch.Account != nil && strings.TrimSpace(*patch.Account) == "" {
		return store.User{}, errValidation("account cannot be empty")
	}
	if _, err := lookup(ctx, s.store.Users(), id, entityUser); err != nil {
		return store.User{}, err
	}

	image, err := s.saveUpload(ctx, patch.Avatar)
	if err != nil {
		return store.User{}, err
	}

	var updated store.User
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		user, err := lookup(ctx, tx.Users(), id, entityUser)
		if err != nil {
			return err
		}
		if patch.Account != nil {
			account := strings.TrimSpace(*patch.Account)
			if account != user.Account {
				taken, err := tx.Users().Find(ctx, store.Where("account", account))
				if err != nil {
					return fmt.Errorf("lookup account: %w", err)
				}
				if len(taken) > 0 {
					return authpw.ErrAccountExists
				}
				user.Account = account
			}
		}
		if patch.UserName != nil {
			user.UserName = strings.TrimSpace(*patch.UserName)
		}
		if image != "" {
			user.UserImage = image
		}
		if err := tx.Users().Replace(ctx, user); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return authpw.ErrAccountExists
			}
			return fmt.Errorf("update user: %w", err)
		}
		updated = user
		return nil
	})
	if err != nil {
		s.discardUpload(ctx, image)
		return store.User{}, err
	}
	return updated, nil
}

// AdminInfo returns the first admin user, the blog owner.
func (s *Service) AdminInfo(ctx context.Context) (store.User, error) {
	admins, err := s.store.Users().Find(ctx, store.Where("type", store.RoleAdmin))
	if err != nil {
		return store.User{}, fmt.Errorf("find admin: %w", err)
	}
	if len(admins) == 0 {
		return store.User{}, errNotFound(entityAdmin)
	}
	return admins[0], nil
}

func (s *Service) MyPage(ctx context.Context, account string) (store.User, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return store.User{}, errValidation("account is required")
	}
	users, err := s.store.Users().Find(ctx, store.Where("account", account))
	if err != nil {
		return store.User{}, fmt.Errorf("find user: %w", err)
	}
	if len(users) == 0 {
		return store.User{}, errNotFound(entityUser)
	}
	return users[0], nil
}

// UpdateBlogSettings replaces the caller's blog settings. Only admins run a blog.
func (s *Service) UpdateBlogSettings(ctx context.Context, actor Actor, settings store.BlogSettings) (store.User, error) {
	if !actor.can(rbac.ActionManageBlog) {
		return store.User{}, errForbidden("only the blog admin can change blog settings")
	}
	settings.BlogName = strings.TrimSpace(settings.BlogName)
	if settings.BlogName == "" {
		return store.User{}, errValidation("blogName is required")
	}
	if settings.FavoriteGenres == nil {
		settings.FavoriteGenres = []string{}
	}
	if settings.BlogCategories == nil {
		settings.BlogCategories = []store.BlogCategory{}
	}
	seen := make(map[int]bool, len(settings.BlogCategories))
	for _, c := range settings.BlogCategories {
		if seen[c.ID] {
			return store.User{}, errValidation("duplicate blog category id %d", c.ID)
		}
		seen[c.ID] = true
	}

	var updated store.User
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		user, err := lookup(ctx, tx.Users(), actor.UserID, entityUser)
		if err != nil {
			return err
		}
		user.BlogSettings = &settings
		if err := tx.Users().Replace(ctx, user); err != nil {
			return fmt.Errorf("update blog settings: %w", err)
		}
		updated = user
		return nil
	})
	if err != nil {
		return store.User{}, err
	}
	return updated, nil
}

// Quit deletes the caller's account and revokes the token it used.
// Content the user wrote is kept.
func (s *Service) Quit(ctx context.Context, identity authpw.Identity) error {
	if err := s.store.Users().Delete(ctx, identity.User.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errNotFound(entityUser)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if err := s.auth.Revoke(ctx, identity.Claims); err != nil {
		s.logger.Warn("revoke token after quit", zap.String("userID", identity.User.ID), zap.Error(err))
	}
	s.event(ctx, "user_quit")
	return nil
}
