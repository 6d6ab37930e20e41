package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fillog/api/internal/search"
	"fillog/api/internal/store"
	"fillog/api/internal/util"
)

type PostInput struct {
	Title    string
	Text     string
	Category *int
	MovieID  string
	Author   string
	Images   []string
}

// PostPatch carries the fields of a partial post update. Nil fields are left unchanged.
type PostPatch struct {
	Title    *string
	Text     *string
	Category *int
	MovieID  *string
	Images   []string
}

func (p PostPatch) empty() bool {
	return p.Title == nil && p.Text == nil && p.Category == nil && p.MovieID == nil && p.Images == nil
}

func (s *Service) CreatePost(ctx context.Context, input PostInput) (store.Post, error) {
	title := strings.TrimSpace(input.Title)
	text := strings.TrimSpace(input.Text)
	if title == "" || text == "" || input.Category == nil {
		return store.Post{}, errValidation("title, text and category are required")
	}

	images := input.Images
	if images == nil {
		images = []string{}
	}
	now := s.now().UTC()
	post := store.Post{
		ID:        util.NewID(""),
		Title:     title,
		Text:      text,
		Category:  *input.Category,
		MovieID:   strings.TrimSpace(input.MovieID),
		Author:    strings.TrimSpace(input.Author),
		Images:    images,
		Comments:  store.IDSet{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Posts().Insert(ctx, post); err != nil {
		return store.Post{}, fmt.Errorf("insert post: %w", err)
	}

	s.search.IndexPost(search.PostRecordFrom(post))
	s.event(ctx, "post_created")
	return post, nil
}

// ListPosts returns every post, newest first.
func (s *Service) ListPosts(ctx context.Context) ([]store.Post, error) {
	posts, err := s.store.Posts().Find(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (s *Service) GetPost(ctx context.Context, id string) (store.Post, error) {
	return lookup(ctx, s.store.Posts(), id, entityPost)
}

func (s *Service) UpdatePost(ctx context.Context, id string, patch PostPatch) (store.Post, error) {
	if patch.empty() {
		return store.Post{}, errValidation("nothing to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return store.Post{}, errValidation("title cannot be empty")
	}
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return store.Post{}, errValidation("text cannot be empty")
	}

	var updated store.Post
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		post, err := lookup(ctx, tx.Posts(), id, entityPost)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			post.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Text != nil {
			post.Text = strings.TrimSpace(*patch.Text)
		}
		if patch.Category != nil {
			post.Category = *patch.Category
		}
		if patch.MovieID != nil {
			post.MovieID = strings.TrimSpace(*patch.MovieID)
		}
		if patch.Images != nil {
			post.Images = patch.Images
		}
		post.UpdatedAt = s.now().UTC()
		if err := tx.Posts().Replace(ctx, post); err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		updated = post
		return nil
	})
	if err != nil {
		return store.Post{}, err
	}

	s.search.IndexPost(search.PostRecordFrom(updated))
	return updated, nil
}

// DeletePost removes the post only. Its replies and the users' back-references stay.
func (s *Service) DeletePost(ctx context.Context, id string) error {
	if _, err := lookup(ctx, s.store.Posts(), id, entityPost); err != nil {
		return err
	}
	if err := s.store.Posts().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	s.search.DeletePost(id)
	s.event(ctx, "post_deleted")
	return nil
}

func (s *Service) SearchPosts(ctx context.Context, q search.Query) (search.Response, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return search.Response{}, errValidation("q is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return search.Response{}, errValidation("limit and offset must not be negative")
	}
	return s.search.Search(ctx, q), nil
}
