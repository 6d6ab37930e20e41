package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite exercises the Store contract. open must return an empty store.
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("insert and get", func(t *testing.T) {
		s := open(t)
		user := User{ID: "u1", Account: "alice", UserName: "Alice", Role: RoleUser, LikedArticles: IDSet{"p1"}, CreatedAt: now}
		require.NoError(t, s.Users().Insert(ctx, user))

		got, err := s.Users().Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Account)
		assert.Equal(t, IDSet{"p1"}, got.LikedArticles)
		assert.True(t, now.Equal(got.CreatedAt))
	})

	t.Run("get missing", func(t *testing.T) {
		s := open(t)
		_, err := s.Posts().Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Posts().Insert(ctx, Post{ID: "p1", Title: "one", CreatedAt: now}))
		err := s.Posts().Insert(ctx, Post{ID: "p1", Title: "again", CreatedAt: now})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("duplicate account conflicts", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Users().Insert(ctx, User{ID: "u1", Account: "alice", CreatedAt: now}))
		err := s.Users().Insert(ctx, User{ID: "u2", Account: "alice", CreatedAt: now})
		assert.ErrorIs(t, err, ErrConflict)

		require.NoError(t, s.Users().Insert(ctx, User{ID: "u3", Account: "bob", CreatedAt: now}))
		err = s.Users().Replace(ctx, User{ID: "u3", Account: "alice", CreatedAt: now})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("same id in different collections", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Posts().Insert(ctx, Post{ID: "x", CreatedAt: now}))
		require.NoError(t, s.Replies().Insert(ctx, Reply{ID: "x", CreatedAt: now}))
	})

	t.Run("replace", func(t *testing.T) {
		s := open(t)
		err := s.Posts().Replace(ctx, Post{ID: "p1"})
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.Posts().Insert(ctx, Post{ID: "p1", Title: "draft", CreatedAt: now}))
		require.NoError(t, s.Posts().Replace(ctx, Post{ID: "p1", Title: "final", Likes: 2, CreatedAt: now}))
		got, err := s.Posts().Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "final", got.Title)
		assert.Equal(t, 2, got.Likes)
	})

	t.Run("upsert", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Follows().Upsert(ctx, Follow{ID: "f1", Users: IDSet{"a"}, CreatedAt: now}))
		require.NoError(t, s.Follows().Upsert(ctx, Follow{ID: "f1", Users: IDSet{"a", "b"}, CreatedAt: now}))
		got, err := s.Follows().Get(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, IDSet{"a", "b"}, got.Users)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Guestbooks().Insert(ctx, Guestbook{ID: "g1", Text: "hi", CreatedAt: now}))
		require.NoError(t, s.Guestbooks().Delete(ctx, "g1"))
		_, err := s.Guestbooks().Get(ctx, "g1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Guestbooks().Delete(ctx, "g1"), ErrNotFound)
	})

	t.Run("find filters in insertion order", func(t *testing.T) {
		s := open(t)
		for i, id := range []string{"r1", "r2", "r3", "r4"} {
			post := "p1"
			if id == "r3" {
				post = "p2"
			}
			require.NoError(t, s.Replies().Insert(ctx, Reply{
				ID:             id,
				RepliedArticle: post,
				Target:         PostTarget(post),
				CreatedAt:      now.Add(time.Duration(i) * time.Millisecond),
			}))
		}

		got, err := s.Replies().Find(ctx, Where("repliedArticle", "p1"))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"r1", "r2", "r4"}, []string{got[0].ID, got[1].ID, got[2].ID})

		all, err := s.Replies().Find(ctx, Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		none, err := s.Posts().Find(ctx, Filter{})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("find rejects bad field", func(t *testing.T) {
		s := open(t)
		_, err := s.Replies().Find(ctx, Where("a'; DROP TABLE documents; --", "x"))
		assert.Error(t, err)
	})

	t.Run("transaction commits", func(t *testing.T) {
		s := open(t)
		err := s.RunInTx(ctx, func(ctx context.Context, tx Store) error {
			if err := tx.Posts().Insert(ctx, Post{ID: "p1", CreatedAt: now}); err != nil {
				return err
			}
			return tx.Users().Insert(ctx, User{ID: "u1", Account: "alice", CreatedAt: now})
		})
		require.NoError(t, err)
		_, err = s.Posts().Get(ctx, "p1")
		assert.NoError(t, err)
		_, err = s.Users().Get(ctx, "u1")
		assert.NoError(t, err)
	})

	t.Run("transaction rolls back", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Posts().Insert(ctx, Post{ID: "p1", Likes: 0, CreatedAt: now}))
		boom := errors.New("boom")
		err := s.RunInTx(ctx, func(ctx context.Context, tx Store) error {
			if err := tx.Posts().Replace(ctx, Post{ID: "p1", Likes: 1, CreatedAt: now}); err != nil {
				return err
			}
			if err := tx.Users().Insert(ctx, User{ID: "u1", Account: "alice", CreatedAt: now}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		post, err := s.Posts().Get(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, 0, post.Likes)
		_, err = s.Users().Get(ctx, "u1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
