package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrConflict reports a duplicate _id or a duplicate unique key such as users.account.
	ErrConflict = errors.New("document conflict")
)

// Collection names, shared by every backend.
const (
	CollectionUsers            = "users"
	CollectionPosts            = "posts"
	CollectionReplies          = "replies"
	CollectionGuestbooks       = "guestbooks"
	CollectionGuestbookReplies = "guestbook_replies"
	CollectionFollows          = "follows"
)

// Document is implemented by every stored model.
type Document interface {
	DocumentID() string
}

// Filter matches documents whose top-level string Field equals Value.
// The zero Filter matches everything.
type Filter struct {
	Field string
	Value string
}

func Where(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

func (f Filter) IsZero() bool { return f.Field == "" }

var fieldPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func (f Filter) validate() error {
	if f.IsZero() {
		return nil
	}
	if !fieldPattern.MatchString(f.Field) {
		return fmt.Errorf("invalid filter field %q", f.Field)
	}
	return nil
}

// Collection is generic CRUD over one kind of document.
type Collection[T Document] interface {
	Get(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, doc T) error
	Replace(ctx context.Context, doc T) error
	Upsert(ctx context.Context, doc T) error
	Delete(ctx context.Context, id string) error
	// Find returns matches in insertion order.
	Find(ctx context.Context, filter Filter) ([]T, error)
}

// Store is the document store used by the services.
type Store interface {
	Users() Collection[User]
	Posts() Collection[Post]
	Replies() Collection[Reply]
	Guestbooks() Collection[Guestbook]
	GuestbookReplies() Collection[GuestbookReply]
	Follows() Collection[Follow]

	// RunInTx runs fn against a transactional view of the store. fn must use tx,
	// not the receiver. Returning an error rolls every write back.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}
