package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fillog/api/internal/store"
)

// bind decodes a JSON body into v and runs its Bind hook. An empty body
// decodes to the zero value so Bind can report the missing fields.
func bind(r *http.Request, v render.Binder) error {
	if r.Body != nil {
		if err := render.DecodeJSON(r.Body, v); err != nil && !errors.Is(err, io.EOF) {
			return errValidation("invalid JSON body")
		}
	}
	return v.Bind(r)
}

type registerRequest struct {
	UserAccount  string `json:"userAccount"`
	UserPassword string `json:"userPassword"`
	UserName     string `json:"userName"`
}

func (p *registerRequest) Bind(r *http.Request) error {
	p.UserAccount = strings.TrimSpace(p.UserAccount)
	p.UserName = strings.TrimSpace(p.UserName)
	return nil
}

type loginRequest struct {
	UserAccount  string `json:"userAccount"`
	UserPassword string `json:"userPassword"`
}

func (p *loginRequest) Bind(r *http.Request) error {
	p.UserAccount = strings.TrimSpace(p.UserAccount)
	if p.UserAccount == "" || p.UserPassword == "" {
		return errValidation("userAccount and userPassword are required")
	}
	return nil
}

// parseCategory accepts a category sent as a JSON number or a numeric string.
func parseCategory(raw json.RawMessage) (*int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errValidation("category must be a number")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, errValidation("category must be a number")
	}
	return &n, nil
}

type postRequest struct {
	Title    string          `json:"title"`
	Text     string          `json:"text"`
	Category json.RawMessage `json:"category"`
	MovieID  string          `json:"movieID"`
	Author   string          `json:"author"`
	Images   []string        `json:"images"`

	category *int
}

func (p *postRequest) Bind(r *http.Request) error {
	category, err := parseCategory(p.Category)
	if err != nil {
		return err
	}
	p.category = category
	return nil
}

func (p *postRequest) input() PostInput {
	return PostInput{
		Title:    p.Title,
		Text:     p.Text,
		Category: p.category,
		MovieID:  p.MovieID,
		Author:   p.Author,
		Images:   p.Images,
	}
}

type postPatchRequest struct {
	Title    *string         `json:"title"`
	Text     *string         `json:"text"`
	Category json.RawMessage `json:"category"`
	MovieID  *string         `json:"movieID"`
	Images   []string        `json:"images"`

	category *int
}

func (p *postPatchRequest) Bind(r *http.Request) error {
	category, err := parseCategory(p.Category)
	if err != nil {
		return err
	}
	p.category = category
	return nil
}

func (p *postPatchRequest) patch() PostPatch {
	return PostPatch{
		Title:    p.Title,
		Text:     p.Text,
		Category: p.category,
		MovieID:  p.MovieID,
		Images:   p.Images,
	}
}

type likeRequest struct {
	UserID string `json:"userId"`
}

func (p *likeRequest) Bind(r *http.Request) error {
	p.UserID = strings.TrimSpace(p.UserID)
	if p.UserID == "" {
		return errValidation("userId is required")
	}
	return nil
}

type followRequest struct {
	FollowerID string `json:"followerID"`
}

func (p *followRequest) Bind(r *http.Request) error {
	p.FollowerID = strings.TrimSpace(p.FollowerID)
	if p.FollowerID == "" {
		return errValidation("followerID is required")
	}
	return nil
}

type replyRequest struct {
	ReplyTarget struct {
		Target   string `json:"target"`
		TargetID string `json:"targetID"`
	} `json:"replyTarget"`
	UserID    string `json:"userID"`
	UserName  string `json:"userName"`
	Password  string `json:"password"`
	ReplyText string `json:"replyText"`

	target store.ReplyTarget
}

func (p *replyRequest) Bind(r *http.Request) error {
	target, err := store.ParseReplyTarget(p.ReplyTarget.Target, p.ReplyTarget.TargetID, chi.URLParam(r, "id"))
	if err != nil {
		return errValidation("%s", err.Error())
	}
	p.target = target
	if strings.TrimSpace(p.ReplyText) == "" {
		return errValidation("replyText is required")
	}
	return nil
}

func (p *replyRequest) input() AddReplyInput {
	return AddReplyInput{
		Target:   p.target,
		UserID:   p.UserID,
		UserName: p.UserName,
		Password: p.Password,
		Text:     p.ReplyText,
	}
}

type deleteReplyRequest struct {
	PostID   string `json:"postID"`
	Password string `json:"password"`
}

func (p *deleteReplyRequest) Bind(r *http.Request) error {
	p.PostID = strings.TrimSpace(p.PostID)
	if p.PostID == "" {
		return errValidation("postID is required")
	}
	return nil
}

type guestbookAuthor struct {
	IsUser   *bool  `json:"isUser"`
	UserID   string `json:"userID"`
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// guestbookRequest takes the author either flat or nested under writtenUser.
type guestbookRequest struct {
	guestbookAuthor
	WrittenUser *guestbookAuthor `json:"writtenUser"`
	Text        string           `json:"text"`
}

func (p *guestbookRequest) Bind(r *http.Request) error {
	if w := p.WrittenUser; w != nil {
		if p.IsUser == nil {
			p.IsUser = w.IsUser
		}
		if p.UserID == "" {
			p.UserID = w.UserID
		}
		if p.UserName == "" {
			p.UserName = w.UserName
		}
		if p.Password == "" {
			p.Password = w.Password
		}
	}
	// An explicit isUser=false writes as a guest even when a userID is sent.
	if p.IsUser != nil && !*p.IsUser {
		p.UserID = ""
	}
	if strings.TrimSpace(p.Text) == "" {
		return errValidation("text is required")
	}
	return nil
}

func (p *guestbookRequest) input() GuestbookInput {
	return GuestbookInput{
		UserID:   p.UserID,
		UserName: p.UserName,
		Password: p.Password,
		Text:     p.Text,
	}
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (p *passwordRequest) Bind(r *http.Request) error { return nil }

type editUserRequest struct {
	ID       string  `json:"_id"`
	UserName *string `json:"userName"`
	Account  *string `json:"account"`
}

func (p *editUserRequest) Bind(r *http.Request) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return errValidation("_id is required")
	}
	return nil
}

type blogSettingsRequest struct {
	*store.BlogSettings
}

func (p *blogSettingsRequest) Bind(r *http.Request) error {
	if p.BlogSettings == nil {
		return errValidation("blogName is required")
	}
	return nil
}
