package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fillog/api/internal/store"
)

func requireDomainError(t *testing.T, err error, status int, entity string) {
	t.Helper()
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, status, domainErr.Status)
	if entity != "" {
		assert.Equal(t, map[string]any{"entity": entity}, domainErr.Details)
	}
}

func guestReply(text string) AddReplyInput {
	return AddReplyInput{UserName: "guest", Password: "guestpw", Text: text}
}

func TestAddReplyToPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, "Dune")

	reply, err := env.service.AddReply(ctx, post.ID, guestReply("first"))
	require.NoError(t, err)
	assert.Equal(t, store.PostTarget(post.ID), reply.Target)
	assert.Equal(t, post.ID, reply.RepliedArticle)
	assert.True(t, reply.Author.IsGuest())
	assert.NotEqual(t, "guestpw", reply.Author.PasswordHash)
	assert.True(t, env.service.auth.CheckSecret(reply.Author.PasswordHash, "guestpw"))

	stored, err := env.service.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IDSet{reply.ID}, stored.Comments)

	replies, err := env.service.ListRepliesForPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)
}

func TestAddReReplyIsListedInParentOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, "Alien")

	r1, err := env.service.AddReply(ctx, post.ID, guestReply("top"))
	require.NoError(t, err)
	input := guestReply("nested")
	input.Target = store.ReplyTo(r1.ID)
	r2, err := env.service.AddReply(ctx, post.ID, input)
	require.NoError(t, err)
	assert.Equal(t, post.ID, r2.RepliedArticle)

	stored, err := env.service.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IDSet{r1.ID}, stored.Comments)

	parent, err := env.service.GetReply(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IDSet{r2.ID}, parent.ReReplies)

	replies, err := env.service.ListRepliesForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, replies, 2)
}

func TestAddReplyRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, "one")
	other := env.createPost(t, "two")
	foreign, err := env.service.AddReply(ctx, other.ID, guestReply("elsewhere"))
	require.NoError(t, err)

	_, err = env.service.AddReply(ctx, "missing", guestReply("x"))
	requireDomainError(t, err, http.StatusNotFound, entityPost)

	input := guestReply("x")
	input.Target = store.ReplyTo("missing")
	_, err = env.service.AddReply(ctx, post.ID, input)
	requireDomainError(t, err, http.StatusNotFound, entityReply)

	input.Target = store.ReplyTo(foreign.ID)
	_, err = env.service.AddReply(ctx, post.ID, input)
	requireDomainError(t, err, http.StatusBadRequest, "")

	_, err = env.service.AddReply(ctx, post.ID, AddReplyInput{UserName: "guest", Text: "no password"})
	requireDomainError(t, err, http.StatusBadRequest, "")

	_, err = env.service.AddReply(ctx, post.ID, guestReply("   "))
	requireDomainError(t, err, http.StatusBadRequest, "")

	stored, err := env.service.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Comments)
}

func TestAddReplyRecordsCommentedArticle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, _ := env.registerUser(t, "u1", "U1")
	post := env.createPost(t, "P")

	for i := 0; i < 2; i++ {
		reply, err := env.service.AddReply(ctx, post.ID, AddReplyInput{UserID: user.ID, Text: "mine"})
		require.NoError(t, err)
		assert.False(t, reply.Author.IsGuest())
		assert.Equal(t, "U1", reply.Author.UserName)
		assert.Empty(t, reply.Author.PasswordHash)
	}

	stored, err := env.service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IDSet{post.ID}, stored.CommentedArticles)
}

func TestAddReplyUnknownUserWritesAsGuest(t *testing.T) {
	env := newTestEnv(t)
	post := env.createPost(t, "P")

	reply, err := env.service.AddReply(context.Background(), post.ID, AddReplyInput{
		UserID: "ghost", UserName: "ghost", Password: "pw", Text: "hello",
	})
	require.NoError(t, err)
	assert.True(t, reply.Author.IsGuest())
	assert.Empty(t, reply.Author.UserID)
}

func TestAddReplyUnknownUserNeedsGuestCredentials(t *testing.T) {
	env := newTestEnv(t)
	post := env.createPost(t, "P")

	_, err := env.service.AddReply(context.Background(), post.ID, AddReplyInput{UserID: "ghost", Text: "hello"})
	requireDomainError(t, err, http.StatusBadRequest, "")
}

func TestOverlongPasswordsAreValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, "P")
	long := strings.Repeat("b", 80)

	_, err := env.service.AddReply(ctx, post.ID, AddReplyInput{UserName: "g", Password: long, Text: "hi"})
	requireDomainError(t, err, http.StatusBadRequest, "")

	_, err = env.service.WriteGuestbook(ctx, GuestbookInput{UserName: "g", Password: long, Text: "hi"})
	requireDomainError(t, err, http.StatusBadRequest, "")

	_, err = env.service.Register(ctx, RegisterInput{Account: "long", Password: strings.Repeat("a", 73), UserName: "Long"})
	status, code, _, _ := mapError(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", code)

	stored, err := env.service.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Comments)
}

func TestDeleteReplyWrongPasswordLeavesDataUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, "P")
	reply, err := env.service.AddReply(ctx, post.ID, guestReply("keep me"))
	require.NoError(t, err)

	err = env.service.DeleteReply(ctx, reply.ID, post.ID, "wrong", Actor{})
	requireDomainError(t, err, http.StatusForbidden, "")
	err = env.service.DeleteReply(ctx, reply.ID, post.ID, "", Actor{})
	requireDomainError(t, err, http.StatusForbidden, "")

	_, err = env.service.GetReply(ctx, reply.ID)
	require.NoError(t, err)
	stored, err := env.service.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IDSet{reply.ID}, stored.Comments)
}

func TestDeleteReplyWithPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, "P")
	reply, err := env.service.AddReply(ctx, post.ID, guestReply("bye"))
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteReply(ctx, reply.ID, post.ID, "guestpw", Actor{}))

	_, err = env.service.GetReply(ctx, reply.ID)
	requireDomainError(t, err, http.StatusNotFound, entityReply)
	stored, err := env.service.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Comments)

	err = env.service.DeleteReply(ctx, reply.ID, post.ID, "guestpw", Actor{})
	requireDomainError(t, err, http.StatusNotFound, entityReply)

	err = env.service.DeleteReply(ctx, reply.ID, "missing", "guestpw", Actor{})
	requireDomainError(t, err, http.StatusNotFound, entityPost)
}

func TestDeleteReplyMustBelongToPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, "P")
	other := env.createPost(t, "Q")
	reply, err := env.service.AddReply(ctx, post.ID, guestReply("here"))
	require.NoError(t, err)

	err = env.service.DeleteReply(ctx, reply.ID, other.ID, "guestpw", Actor{})
	requireDomainError(t, err, http.StatusNotFound, entityReplyNotInPost)
}

func TestDeleteNestedReplyUnlinksFromParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, "P")
	r1, err := env.service.AddReply(ctx, post.ID, guestReply("top"))
	require.NoError(t, err)
	input := guestReply("nested")
	input.Target = store.ReplyTo(r1.ID)
	r2, err := env.service.AddReply(ctx, post.ID, input)
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteReply(ctx, r2.ID, post.ID, "guestpw", Actor{}))

	parent, err := env.service.GetReply(ctx, r1.ID)
	require.NoError(t, err)
	assert.Empty(t, parent.ReReplies)
	stored, err := env.service.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IDSet{r1.ID}, stored.Comments)
}

func TestDeleteParentOrphansChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	post := env.createPost(t, "P")
	r1, err := env.service.AddReply(ctx, post.ID, guestReply("top"))
	require.NoError(t, err)
	input := guestReply("nested")
	input.Target = store.ReplyTo(r1.ID)
	r2, err := env.service.AddReply(ctx, post.ID, input)
	require.NoError(t, err)

	require.NoError(t, env.service.DeleteReply(ctx, r1.ID, post.ID, "guestpw", Actor{}))
	_, err = env.service.GetReply(ctx, r2.ID)
	require.NoError(t, err)

	// The orphan is still owned by the post and can be deleted on its own.
	require.NoError(t, env.service.DeleteReply(ctx, r2.ID, post.ID, "guestpw", Actor{}))
}

func TestDeleteRegisteredReplyAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, _ := env.registerUser(t, "author", "Author")
	stranger, _ := env.registerUser(t, "stranger", "Stranger")
	admin, _ := env.registerUser(t, "admin", "Admin")
	env.makeAdmin(t, admin.ID)
	post := env.createPost(t, "P")

	reply, err := env.service.AddReply(ctx, post.ID, AddReplyInput{UserID: author.ID, Text: "signed"})
	require.NoError(t, err)

	err = env.service.DeleteReply(ctx, reply.ID, post.ID, "", Actor{})
	requireDomainError(t, err, http.StatusForbidden, "")
	err = env.service.DeleteReply(ctx, reply.ID, post.ID, "password1", Actor{UserID: stranger.ID, Role: store.RoleUser})
	requireDomainError(t, err, http.StatusForbidden, "")

	require.NoError(t, env.service.DeleteReply(ctx, reply.ID, post.ID, "", Actor{UserID: author.ID, Role: store.RoleUser}))

	other, err := env.service.AddReply(ctx, post.ID, AddReplyInput{UserID: author.ID, Text: "again"})
	require.NoError(t, err)
	require.NoError(t, env.service.DeleteReply(ctx, other.ID, post.ID, "", Actor{UserID: admin.ID, Role: store.RoleAdmin}))
}

// failingUsersStore fails every user write made inside a transaction.
type failingUsersStore struct {
	store.Store
}

func (f *failingUsersStore) RunInTx(ctx context.Context, fn func(context.Context, store.Store) error) error {
	return f.Store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		return fn(ctx, &failingUsersTx{Store: tx})
	})
}

type failingUsersTx struct {
	store.Store
}

func (f *failingUsersTx) Users() store.Collection[store.User] {
	return failingUsers{Collection: f.Store.Users()}
}

type failingUsers struct {
	store.Collection[store.User]
}

func (failingUsers) Replace(context.Context, store.User) error {
	return errors.New("disk full")
}

func TestAddReplyRollsBackOnFailure(t *testing.T) {
	base := newTestEnv(t)
	user, _ := base.registerUser(t, "u1", "U1")
	post := base.createPost(t, "P")

	env := newTestEnvWithStore(t, &failingUsersStore{Store: base.store})
	ctx := context.Background()

	_, err := env.service.AddReply(ctx, post.ID, AddReplyInput{UserID: user.ID, Text: "lost"})
	require.Error(t, err)
	status, code, _, _ := mapError(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "SERVER_ERROR", code)

	stored, err := base.service.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Comments)
	replies, err := base.service.ListRepliesForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestRegisterLoginPostReplyFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Register(ctx, RegisterInput{Account: "u1", Password: "password1", UserName: "U1"})
	require.NoError(t, err)
	login, err := env.service.Login(ctx, "u1", "password1")
	require.NoError(t, err)
	identity, err := env.service.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	user := identity.User

	post := env.createPost(t, "P")
	r1, err := env.service.AddReply(ctx, post.ID, AddReplyInput{UserID: user.ID, Text: "R1"})
	require.NoError(t, err)
	r2, err := env.service.AddReply(ctx, post.ID, AddReplyInput{Target: store.ReplyTo(r1.ID), UserID: user.ID, Text: "R2"})
	require.NoError(t, err)

	storedPost, err := env.service.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IDSet{r1.ID}, storedPost.Comments)

	storedR1, err := env.service.GetReply(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IDSet{r2.ID}, storedR1.ReReplies)

	storedUser, err := env.service.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, store.IDSet{post.ID}, storedUser.CommentedArticles)
}
