package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fillog/api/internal/search"
	"fillog/api/internal/store"
	"fillog/api/internal/util"
)

type AddReplyInput struct {
	Target   store.ReplyTarget
	UserID   string
	UserName string
	Password string
	Text     string
}

// AddReply attaches a reply to a post, or a re-reply to an existing reply of the same post.
// The reply, the parent list and the author's commentedArticles are written in one transaction.
func (s *Service) AddReply(ctx context.Context, postID string, input AddReplyInput) (store.Reply, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return store.Reply{}, errValidation("replyText is required")
	}
	if input.Target.Kind == "" {
		input.Target = store.PostTarget(postID)
	}

	// Checked before hashing a guest password, and again inside the transaction.
	if _, _, err := resolveTarget(ctx, s.store, postID, input.Target); err != nil {
		return store.Reply{}, err
	}

	author, registered, err := s.resolveAuthor(ctx, input.UserID, input.UserName, input.Password)
	if err != nil {
		return store.Reply{}, err
	}

	reply := store.Reply{
		ID:             util.NewID(""),
		Target:         input.Target,
		RepliedArticle: postID,
		Author:         author,
		Text:           text,
		ReReplies:      store.IDSet{},
		CreatedAt:      s.now().UTC(),
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		post, parent, err := resolveTarget(ctx, tx, postID, reply.Target)
		if err != nil {
			return err
		}

		if err := tx.Replies().Insert(ctx, reply); err != nil {
			return fmt.Errorf("insert reply: %w", err)
		}
		if parent != nil {
			parent.ReReplies.Add(reply.ID)
			if err := tx.Replies().Replace(ctx, *parent); err != nil {
				return fmt.Errorf("link re-reply: %w", err)
			}
		} else {
			post.Comments.Add(reply.ID)
			if err := tx.Posts().Replace(ctx, post); err != nil {
				return fmt.Errorf("link reply: %w", err)
			}
		}

		if !registered {
			return nil
		}
		user, err := tx.Users().Get(ctx, author.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load author: %w", err)
		}
		if user.CommentedArticles.Add(postID) {
			if err := tx.Users().Replace(ctx, user); err != nil {
				return fmt.Errorf("record commented article: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return store.Reply{}, err
	}

	s.search.IndexReply(search.ReplyRecordFrom(reply))
	s.event(ctx, "reply_created")
	s.logger.Debug("reply added",
		zap.String("replyID", reply.ID),
		zap.String("postID", postID),
		zap.String("target", string(reply.Target.Kind)),
	)
	return reply, nil
}

// resolveTarget loads the post and, for a re-reply, the parent reply, which must belong to the same post.
func resolveTarget(ctx context.Context, st store.Store, postID string, target store.ReplyTarget) (store.Post, *store.Reply, error) {
	post, err := lookup(ctx, st.Posts(), postID, entityPost)
	if err != nil {
		return store.Post{}, nil, err
	}
	if !target.IsReply() {
		return post, nil, nil
	}
	parent, err := lookup(ctx, st.Replies(), target.ID, entityReply)
	if err != nil {
		return store.Post{}, nil, err
	}
	if parent.RepliedArticle != postID {
		return store.Post{}, nil, errValidation("reply %s belongs to another post", parent.ID)
	}
	return post, &parent, nil
}

// DeleteReply removes a reply from its parent list and deletes it. Its own
// re-replies are left in place.
func (s *Service) DeleteReply(ctx context.Context, replyID, postID, password string, actor Actor) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		post, err := lookup(ctx, tx.Posts(), postID, entityPost)
		if err != nil {
			return err
		}
		reply, err := lookup(ctx, tx.Replies(), replyID, entityReply)
		if err != nil {
			return err
		}

		var parent *store.Reply
		listed := false
		if reply.Target.IsReply() {
			found, err := tx.Replies().Get(ctx, reply.Target.ID)
			switch {
			case err == nil:
				parent = &found
				listed = reply.RepliedArticle == postID && found.ReReplies.Has(replyID)
			case errors.Is(err, store.ErrNotFound):
				// The parent was deleted first. Its children are orphans owned by the post.
				listed = reply.RepliedArticle == postID
			default:
				return fmt.Errorf("load parent reply: %w", err)
			}
		} else {
			listed = post.Comments.Has(replyID)
		}
		if !listed {
			return errNotFound(entityReplyNotInPost)
		}

		if err := s.authorizeDelete(reply.Author, password, actor); err != nil {
			return err
		}

		if parent != nil {
			parent.ReReplies.Remove(replyID)
			if err := tx.Replies().Replace(ctx, *parent); err != nil {
				return fmt.Errorf("unlink re-reply: %w", err)
			}
		} else if post.Comments.Remove(replyID) {
			if err := tx.Posts().Replace(ctx, post); err != nil {
				return fmt.Errorf("unlink reply: %w", err)
			}
		}
		if err := tx.Replies().Delete(ctx, replyID); err != nil {
			return fmt.Errorf("delete reply: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.search.DeleteReply(replyID)
	s.event(ctx, "reply_deleted")
	return nil
}

// ListRepliesForPost returns every reply owned by the post, top-level and nested, in insertion order.
func (s *Service) ListRepliesForPost(ctx context.Context, postID string) ([]store.Reply, error) {
	replies, err := s.store.Replies().Find(ctx, store.Where("repliedArticle", postID))
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}

func (s *Service) GetReply(ctx context.Context, id string) (store.Reply, error) {
	return lookup(ctx, s.store.Replies(), id, entityReply)
}
