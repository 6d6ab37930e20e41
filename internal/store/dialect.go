package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the SQL differences between the supported document databases.
type Dialect struct {
	Name   string
	Driver string

	numberedParams bool
	docParam       string
	docColumn      string
	fieldExpr      func(field string) string
	uniqueErr      func(err error) bool
	migrationsDDL  string
	configure      func(db *sql.DB)
}

var Postgres = Dialect{
	Name:           "postgres",
	Driver:         "pgx",
	numberedParams: true,
	docParam:       "CAST(? AS JSONB)",
	docColumn:      "doc::text",
	fieldExpr: func(field string) string {
		return "doc->>'" + field + "'"
	},
	uniqueErr: func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == "23505"
	},
	migrationsDDL: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`,
	configure: func(db *sql.DB) {
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxIdleConns(10)
		db.SetMaxOpenConns(20)
	},
}

var SQLite = Dialect{
	Name:      "sqlite",
	Driver:    "sqlite",
	docParam:  "?",
	docColumn: "doc",
	fieldExpr: func(field string) string {
		return "json_extract(doc, '$." + field + "')"
	},
	uniqueErr: func(err error) bool {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) {
			code := sqliteErr.Code()
			return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
		}
		return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
	migrationsDDL: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`,
	// A single connection keeps ":memory:" databases alive and serializes writers.
	configure: func(db *sql.DB) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	},
}

func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Postgres.Name, "postgresql", "pg":
		return Postgres, nil
	case SQLite.Name, "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// rebind rewrites ? placeholders into $n for dialects with numbered parameters.
func (d Dialect) rebind(query string) string {
	if !d.numberedParams {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
