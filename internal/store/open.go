package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fillog/api/internal/config"
)

// OpenFromConfig opens the backend named by cfg.Storage.
func OpenFromConfig(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		s, err := OpenSQL(ctx, SQLite, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoragePostgres:
		s, err := OpenSQL(ctx, Postgres, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageMongo:
		s, err := OpenMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported STORAGE %q", cfg.Storage)
	}
}
