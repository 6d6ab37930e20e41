package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore keeps every collection as JSON documents in a single documents table.
type SQLStore struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	inTx    bool
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, q: db, dialect: dialect}
}

func (s *SQLStore) Users() Collection[User] {
	return sqlCollection[User]{store: s, name: CollectionUsers}
}

func (s *SQLStore) Posts() Collection[Post] {
	return sqlCollection[Post]{store: s, name: CollectionPosts}
}

func (s *SQLStore) Replies() Collection[Reply] {
	return sqlCollection[Reply]{store: s, name: CollectionReplies}
}

func (s *SQLStore) Guestbooks() Collection[Guestbook] {
	return sqlCollection[Guestbook]{store: s, name: CollectionGuestbooks}
}

func (s *SQLStore) GuestbookReplies() Collection[GuestbookReply] {
	return sqlCollection[GuestbookReply]{store: s, name: CollectionGuestbookReplies}
}

func (s *SQLStore) Follows() Collection[Follow] {
	return sqlCollection[Follow]{store: s, name: CollectionFollows}
}

func (s *SQLStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	view := &SQLStore{db: s.db, q: tx, dialect: s.dialect, inTx: true}
	if err := fn(ctx, view); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	if s.inTx {
		return nil
	}
	return s.db.Close()
}

type sqlCollection[T Document] struct {
	store *SQLStore
	name  string
}

func (c sqlCollection[T]) query(q string) string {
	return c.store.dialect.rebind(q)
}

func (c sqlCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var doc T
	var raw string
	err := c.store.q.QueryRowContext(ctx,
		c.query(`SELECT `+c.store.dialect.docColumn+` FROM documents WHERE collection = ? AND id = ?`),
		c.name, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("get %s %s: %w", c.name, id, ErrNotFound)
	}
	if err != nil {
		return doc, fmt.Errorf("get %s %s: %w", c.name, id, err)
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return doc, fmt.Errorf("decode %s %s: %w", c.name, id, err)
	}
	return doc, nil
}

func (c sqlCollection[T]) Insert(ctx context.Context, doc T) error {
	id, raw, err := c.encode(doc)
	if err != nil {
		return err
	}
	_, err = c.store.q.ExecContext(ctx,
		c.query(`INSERT INTO documents (collection, id, doc) VALUES (?, ?, `+c.store.dialect.docParam+`)`),
		c.name, id, raw,
	)
	return c.writeErr("insert", id, err)
}

func (c sqlCollection[T]) Replace(ctx context.Context, doc T) error {
	id, raw, err := c.encode(doc)
	if err != nil {
		return err
	}
	result, err := c.store.q.ExecContext(ctx,
		c.query(`UPDATE documents SET doc = `+c.store.dialect.docParam+`, updated_at = CURRENT_TIMESTAMP
			WHERE collection = ? AND id = ?`),
		raw, c.name, id,
	)
	if err != nil {
		return c.writeErr("replace", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace %s %s: %w", c.name, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("replace %s %s: %w", c.name, id, ErrNotFound)
	}
	return nil
}

func (c sqlCollection[T]) Upsert(ctx context.Context, doc T) error {
	id, raw, err := c.encode(doc)
	if err != nil {
		return err
	}
	_, err = c.store.q.ExecContext(ctx,
		c.query(`INSERT INTO documents (collection, id, doc) VALUES (?, ?, `+c.store.dialect.docParam+`)
			ON CONFLICT (collection, id) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP`),
		c.name, id, raw,
	)
	return c.writeErr("upsert", id, err)
}

func (c sqlCollection[T]) Delete(ctx context.Context, id string) error {
	result, err := c.store.q.ExecContext(ctx,
		c.query(`DELETE FROM documents WHERE collection = ? AND id = ?`),
		c.name, id,
	)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.name, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.name, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete %s %s: %w", c.name, id, ErrNotFound)
	}
	return nil
}

func (c sqlCollection[T]) Find(ctx context.Context, filter Filter) ([]T, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}

	q := `SELECT ` + c.store.dialect.docColumn + ` FROM documents WHERE collection = ?`
	args := []any{c.name}
	if !filter.IsZero() {
		q += ` AND ` + c.store.dialect.fieldExpr(filter.Field) + ` = ?`
		args = append(args, filter.Value)
	}
	q += ` ORDER BY seq`

	rows, err := c.store.q.QueryContext(ctx, c.query(q), args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.name, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.name, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", c.name, err)
	}
	return out, nil
}

func (c sqlCollection[T]) encode(doc T) (string, string, error) {
	id := doc.DocumentID()
	if id == "" {
		return "", "", fmt.Errorf("%s document has no id", c.name)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", "", fmt.Errorf("encode %s %s: %w", c.name, id, err)
	}
	return id, string(raw), nil
}

func (c sqlCollection[T]) writeErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if c.store.dialect.uniqueErr(err) {
		return fmt.Errorf("%s %s %s: %w", op, c.name, id, ErrConflict)
	}
	return fmt.Errorf("%s %s %s: %w", op, c.name, id, err)
}
