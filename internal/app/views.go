package app

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"fillog/api/internal/store"
)

func ids(s store.IDSet) store.IDSet {
	if s == nil {
		return store.IDSet{}
	}
	return s
}

// UserView is a User without its password hash.
type UserView struct {
	ID                string              `json:"_id"`
	Account           string              `json:"account"`
	UserName          string              `json:"userName"`
	UserImage         string              `json:"userImage,omitempty"`
	Role              string              `json:"type"`
	LikedArticles     store.IDSet         `json:"likedArticles"`
	CommentedArticles store.IDSet         `json:"commentedArticles"`
	Followers         store.IDSet         `json:"followers"`
	Followings        store.IDSet         `json:"followings"`
	BlogSettings      *store.BlogSettings `json:"blogSettings,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
}

func NewUserView(u store.User) *UserView {
	return &UserView{
		ID:                u.ID,
		Account:           u.Account,
		UserName:          u.UserName,
		UserImage:         u.UserImage,
		Role:              u.Role,
		LikedArticles:     ids(u.LikedArticles),
		CommentedArticles: ids(u.CommentedArticles),
		Followers:         ids(u.Followers),
		Followings:        ids(u.Followings),
		BlogSettings:      u.BlogSettings,
		CreatedAt:         u.CreatedAt,
	}
}

func (v *UserView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func NewUserListResponse(users []store.User) []render.Renderer {
	list := []render.Renderer{}
	for _, u := range users {
		list = append(list, NewUserView(u))
	}
	return list
}

type LoginView struct {
	User      *UserView `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (v *LoginView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// ProfileView is the short profile returned after an edit.
type ProfileView struct {
	ID        string `json:"_id"`
	Account   string `json:"account"`
	UserName  string `json:"userName"`
	UserImage string `json:"userImage,omitempty"`
}

func newProfileView(u store.User) ProfileView {
	return ProfileView{ID: u.ID, Account: u.Account, UserName: u.UserName, UserImage: u.UserImage}
}

func (v *ProfileView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type MyPageView struct {
	ProfileView
	CommentedArticles store.IDSet `json:"commentedArticles"`
}

func (v *MyPageView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type AdminInfoView struct {
	AdminID    string              `json:"adminID"`
	AdminName  string              `json:"adminName"`
	AdminImage string              `json:"adminImage,omitempty"`
	Followers  store.IDSet         `json:"followers"`
	BlogInfo   *store.BlogSettings `json:"blogInfo"`
}

func (v *AdminInfoView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// AuthorView hides the guest password hash.
type AuthorView struct {
	IsUser   bool   `json:"isUser"`
	UserID   string `json:"userID,omitempty"`
	UserName string `json:"userName"`
}

func newAuthorView(a store.Author) AuthorView {
	return AuthorView{IsUser: a.IsUser, UserID: a.UserID, UserName: a.UserName}
}

type ReplyView struct {
	ID             string            `json:"_id"`
	ReplyTarget    store.ReplyTarget `json:"replyTarget"`
	RepliedArticle string            `json:"repliedArticle"`
	Author         AuthorView        `json:"author"`
	Text           string            `json:"text"`
	ReReplies      store.IDSet       `json:"reReplies"`
	CreatedAt      time.Time         `json:"createdAt"`
}

func NewReplyView(r store.Reply) *ReplyView {
	return &ReplyView{
		ID:             r.ID,
		ReplyTarget:    r.Target,
		RepliedArticle: r.RepliedArticle,
		Author:         newAuthorView(r.Author),
		Text:           r.Text,
		ReReplies:      ids(r.ReReplies),
		CreatedAt:      r.CreatedAt,
	}
}

func (v *ReplyView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func NewReplyListResponse(replies []store.Reply) []render.Renderer {
	list := []render.Renderer{}
	for _, reply := range replies {
		list = append(list, NewReplyView(reply))
	}
	return list
}

type GuestbookView struct {
	ID          string      `json:"_id"`
	WrittenUser AuthorView  `json:"writtenUser"`
	Text        string      `json:"text"`
	Replies     store.IDSet `json:"replies"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func NewGuestbookView(g store.Guestbook) *GuestbookView {
	return &GuestbookView{
		ID:          g.ID,
		WrittenUser: newAuthorView(g.WrittenUser),
		Text:        g.Text,
		Replies:     ids(g.Replies),
		CreatedAt:   g.CreatedAt,
	}
}

func (v *GuestbookView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func NewGuestbookListResponse(entries []store.Guestbook) []render.Renderer {
	list := []render.Renderer{}
	for _, g := range entries {
		list = append(list, NewGuestbookView(g))
	}
	return list
}

type GuestbookReplyView struct {
	ID              string     `json:"_id"`
	TargetGuestbook string     `json:"targetGuestbook"`
	WrittenUser     AuthorView `json:"writtenUser"`
	Text            string     `json:"text"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func NewGuestbookReplyView(g store.GuestbookReply) *GuestbookReplyView {
	return &GuestbookReplyView{
		ID:              g.ID,
		TargetGuestbook: g.TargetGuestbook,
		WrittenUser:     newAuthorView(g.WrittenUser),
		Text:            g.Text,
		CreatedAt:       g.CreatedAt,
	}
}

func (v *GuestbookReplyView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func NewGuestbookReplyListResponse(replies []store.GuestbookReply) []render.Renderer {
	list := []render.Renderer{}
	for _, g := range replies {
		list = append(list, NewGuestbookReplyView(g))
	}
	return list
}

// PostResponse renders a post with non-null list fields.
type PostResponse struct {
	*store.Post
}

func NewPostResponse(p store.Post) *PostResponse {
	if p.Images == nil {
		p.Images = []string{}
	}
	p.Comments = ids(p.Comments)
	return &PostResponse{Post: &p}
}

func (v *PostResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func NewPostListResponse(posts []store.Post) []render.Renderer {
	list := []render.Renderer{}
	for _, p := range posts {
		list = append(list, NewPostResponse(p))
	}
	return list
}

// FollowView pairs the followed user with the follower's Follow document.
type FollowView struct {
	User     *UserView         `json:"user"`
	Follower *FollowMirrorView `json:"follower"`
}

type FollowMirrorView struct {
	ID        string      `json:"_id"`
	Users     store.IDSet `json:"users"`
	CreatedAt time.Time   `json:"createdAt"`
}

func newFollowMirrorView(f store.Follow) *FollowMirrorView {
	return &FollowMirrorView{ID: f.ID, Users: ids(f.Users), CreatedAt: f.CreatedAt}
}

func (v *FollowView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// MessageView is a plain acknowledgement.
type MessageView struct {
	Message string `json:"message"`
}

func (v *MessageView) Render(w http.ResponseWriter, r *http.Request) error { return nil }

// ErrResponse is the error envelope of every failed request.
type ErrResponse struct {
	HTTPStatusCode int `json:"-"`

	Code    string `json:"code"`
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}
