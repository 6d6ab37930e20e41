// Command seed loads posts from a JSON file and optionally bootstraps the admin account.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"fillog/api/internal/app"
	"fillog/api/internal/authpw"
	"fillog/api/internal/config"
	"fillog/api/internal/store"
)

type seedPost struct {
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Category int      `json:"category"`
	MovieID  string   `json:"movieID"`
	Author   string   `json:"author"`
	Images   []string `json:"images"`
}

func main() {
	var (
		file          = flag.String("file", "", "JSON array of posts to insert")
		adminAccount  = flag.String("admin-account", "", "account to create or promote to admin")
		adminPassword = flag.String("admin-password", "", "password for a newly created admin")
		adminName     = flag.String("admin-name", "admin", "display name for a newly created admin")
	)
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	ctx := context.Background()

	dataStore, err := store.OpenFromConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer dataStore.Close()

	auth := authpw.NewService(dataStore, authpw.Options{
		TokenSecret: cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		BcryptCost:  cfg.BcryptCost,
	})
	service := app.New(app.Options{Store: dataStore, Auth: auth, Logger: logger})

	if *adminAccount != "" {
		admin, err := bootstrapAdmin(ctx, dataStore, auth, *adminAccount, *adminPassword, *adminName)
		if err != nil {
			logger.Fatal("bootstrap admin", zap.Error(err))
		}
		logger.Info("admin ready", zap.String("id", admin.ID), zap.String("account", admin.Account))
	}

	if *file != "" {
		n, err := seedPosts(ctx, service, *file)
		if err != nil {
			logger.Fatal("seed posts", zap.Int("inserted", n), zap.Error(err))
		}
		logger.Info("posts seeded", zap.Int("inserted", n))
	}
}

func seedPosts(ctx context.Context, service *app.Service, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	var posts []seedPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}

	inserted := 0
	for _, p := range posts {
		category := p.Category
		if _, err := service.CreatePost(ctx, app.PostInput{
			Title:    p.Title,
			Text:     p.Text,
			Category: &category,
			MovieID:  p.MovieID,
			Author:   p.Author,
			Images:   p.Images,
		}); err != nil {
			return inserted, fmt.Errorf("post %q: %w", p.Title, err)
		}
		inserted++
	}
	return inserted, nil
}

// bootstrapAdmin registers the account when it does not exist yet, then grants it the admin role.
func bootstrapAdmin(ctx context.Context, st store.Store, auth *authpw.Service, account, password, name string) (store.User, error) {
	if _, err := auth.Register(ctx, authpw.RegisterRequest{Account: account, Password: password, UserName: name}); err != nil && !errors.Is(err, authpw.ErrAccountExists) {
		return store.User{}, err
	}

	var admin store.User
	err := st.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		users, err := tx.Users().Find(ctx, store.Where("account", account))
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return fmt.Errorf("account %q: %w", account, store.ErrNotFound)
		}
		admin = users[0]
		if admin.Role == store.RoleAdmin {
			return nil
		}
		admin.Role = store.RoleAdmin
		return tx.Users().Replace(ctx, admin)
	})
	return admin, err
}
