package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dialect.configure != nil {
		dialect.configure(db)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// OpenSQL opens the database, applies the embedded migrations and returns a ready store.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := Open(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLStore(db, dialect), nil
}

// OpenMemory returns a migrated in-memory SQLite store.
func OpenMemory(ctx context.Context) (*SQLStore, error) {
	return OpenSQL(ctx, SQLite, ":memory:")
}
