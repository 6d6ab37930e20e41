package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"fillog/api/internal/store"
	"fillog/api/internal/util"
)

// GuestbookInput is a guestbook entry or a reply to one. UserID selects a
// registered author; without it UserName and Password make a guest.
type GuestbookInput struct {
	UserID   string
	UserName string
	Password string
	Text     string
}

func (s *Service) WriteGuestbook(ctx context.Context, input GuestbookInput) (store.Guestbook, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return store.Guestbook{}, errValidation("text is required")
	}
	author, _, err := s.resolveAuthor(ctx, input.UserID, input.UserName, input.Password)
	if err != nil {
		return store.Guestbook{}, err
	}

	entry := store.Guestbook{
		ID:          util.NewID(""),
		WrittenUser: author,
		Text:        text,
		Replies:     store.IDSet{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Guestbooks().Insert(ctx, entry); err != nil {
		return store.Guestbook{}, fmt.Errorf("insert guestbook: %w", err)
	}
	s.event(ctx, "guestbook_written")
	return entry, nil
}

// ListGuestbooks returns every entry, newest first.
func (s *Service) ListGuestbooks(ctx context.Context) ([]store.Guestbook, error) {
	entries, err := s.store.Guestbooks().Find(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list guestbooks: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// DeleteGuestbook deletes an entry together with its replies.
func (s *Service) DeleteGuestbook(ctx context.Context, id, password string, actor Actor) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		entry, err := lookup(ctx, tx.Guestbooks(), id, entityGuestbook)
		if err != nil {
			return err
		}
		if err := s.authorizeDelete(entry.WrittenUser, password, actor); err != nil {
			return err
		}

		replies, err := tx.GuestbookReplies().Find(ctx, store.Where("targetGuestbook", id))
		if err != nil {
			return fmt.Errorf("list guestbook replies: %w", err)
		}
		for _, reply := range replies {
			if err := tx.GuestbookReplies().Delete(ctx, reply.ID); err != nil {
				return fmt.Errorf("delete guestbook reply: %w", err)
			}
		}
		if err := tx.Guestbooks().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete guestbook: %w", err)
		}
		return nil
	})
}

// AttachGuestbookReply creates a reply and links it to its guestbook entry.
func (s *Service) AttachGuestbookReply(ctx context.Context, guestbookID string, input GuestbookInput) (store.GuestbookReply, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return store.GuestbookReply{}, errValidation("text is required")
	}
	if _, err := lookup(ctx, s.store.Guestbooks(), guestbookID, entityGuestbook); err != nil {
		return store.GuestbookReply{}, err
	}
	author, _, err := s.resolveAuthor(ctx, input.UserID, input.UserName, input.Password)
	if err != nil {
		return store.GuestbookReply{}, err
	}

	reply := store.GuestbookReply{
		ID:              util.NewID(""),
		TargetGuestbook: guestbookID,
		WrittenUser:     author,
		Text:            text,
		CreatedAt:       s.now().UTC(),
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		entry, err := lookup(ctx, tx.Guestbooks(), guestbookID, entityGuestbook)
		if err != nil {
			return err
		}
		if err := tx.GuestbookReplies().Insert(ctx, reply); err != nil {
			return fmt.Errorf("insert guestbook reply: %w", err)
		}
		entry.Replies.Add(reply.ID)
		if err := tx.Guestbooks().Replace(ctx, entry); err != nil {
			return fmt.Errorf("link guestbook reply: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.GuestbookReply{}, err
	}
	s.event(ctx, "guestbook_reply_created")
	return reply, nil
}

func (s *Service) ListGuestbookReplies(ctx context.Context, guestbookID string) ([]store.GuestbookReply, error) {
	replies, err := s.store.GuestbookReplies().Find(ctx, store.Where("targetGuestbook", guestbookID))
	if err != nil {
		return nil, fmt.Errorf("list guestbook replies: %w", err)
	}
	return replies, nil
}

func (s *Service) DeleteGuestbookReply(ctx context.Context, id, password string, actor Actor) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		reply, err := lookup(ctx, tx.GuestbookReplies(), id, entityGuestbookReply)
		if err != nil {
			return err
		}
		if err := s.authorizeDelete(reply.WrittenUser, password, actor); err != nil {
			return err
		}

		entry, err := tx.Guestbooks().Get(ctx, reply.TargetGuestbook)
		switch {
		case err == nil:
			if entry.Replies.Remove(id) {
				if err := tx.Guestbooks().Replace(ctx, entry); err != nil {
					return fmt.Errorf("unlink guestbook reply: %w", err)
				}
			}
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("load guestbook: %w", err)
		}
		if err := tx.GuestbookReplies().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete guestbook reply: %w", err)
		}
		return nil
	})
}
