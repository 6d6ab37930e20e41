package store

import (
	"fmt"
	"slices"
	"time"
)

// Roles stored on User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IDSet is an ordered list of document IDs holding each ID at most once.
type IDSet []string

func (s IDSet) Has(id string) bool {
	return slices.Contains(s, id)
}

// Add appends id if absent and reports whether the set changed.
func (s *IDSet) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// Remove drops id if present and reports whether the set changed.
func (s *IDSet) Remove(id string) bool {
	idx := slices.Index(*s, id)
	if idx < 0 {
		return false
	}
	*s = slices.Delete(*s, idx, idx+1)
	return true
}

// Normalized returns a non-nil copy with duplicates removed, keeping first occurrences.
func (s IDSet) Normalized() IDSet {
	out := make(IDSet, 0, len(s))
	for _, id := range s {
		out.Add(id)
	}
	return out
}

type BlogCategory struct {
	ID   int    `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

type BlogSettings struct {
	BlogName       string         `json:"blogName" bson:"blogName"`
	FavoriteGenres []string       `json:"favoriteGenres" bson:"favoriteGenres"`
	BlogCategories []BlogCategory `json:"blogCategories" bson:"blogCategories"`
}

type User struct {
	ID                string        `json:"_id" bson:"_id"`
	Account           string        `json:"account" bson:"account"`
	UserName          string        `json:"userName" bson:"userName"`
	PasswordHash      string        `json:"passwordHash" bson:"passwordHash"`
	UserImage         string        `json:"userImage,omitempty" bson:"userImage,omitempty"`
	Role              string        `json:"type" bson:"type"`
	LikedArticles     IDSet         `json:"likedArticles" bson:"likedArticles"`
	CommentedArticles IDSet         `json:"commentedArticles" bson:"commentedArticles"`
	Followers         IDSet         `json:"followers" bson:"followers"`
	Followings        IDSet         `json:"followings" bson:"followings"`
	BlogSettings      *BlogSettings `json:"blogSettings,omitempty" bson:"blogSettings,omitempty"`
	CreatedAt         time.Time     `json:"createdAt" bson:"createdAt"`
}

func (u User) DocumentID() string { return u.ID }

type Post struct {
	ID        string    `json:"_id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Text      string    `json:"text" bson:"text"`
	Category  int       `json:"category" bson:"category"`
	MovieID   string    `json:"movieID,omitempty" bson:"movieID,omitempty"`
	Author    string    `json:"author,omitempty" bson:"author,omitempty"`
	Images    []string  `json:"images" bson:"images"`
	Likes     int       `json:"likes" bson:"likes"`
	Comments  IDSet     `json:"comments" bson:"comments"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (p Post) DocumentID() string { return p.ID }

// TargetKind discriminates what a Reply answers.
type TargetKind string

const (
	TargetPost  TargetKind = "post"
	TargetReply TargetKind = "reply"
)

// ReplyTarget names the post or reply a Reply is attached to.
// Build one with PostTarget, ReplyTo or ParseReplyTarget.
type ReplyTarget struct {
	Kind TargetKind `json:"target" bson:"target"`
	ID   string     `json:"targetID" bson:"targetID"`
}

func PostTarget(postID string) ReplyTarget {
	return ReplyTarget{Kind: TargetPost, ID: postID}
}

func ReplyTo(replyID string) ReplyTarget {
	return ReplyTarget{Kind: TargetReply, ID: replyID}
}

// ParseReplyTarget validates a wire-level target. A post target defaults to postID.
func ParseReplyTarget(kind, targetID, postID string) (ReplyTarget, error) {
	switch TargetKind(kind) {
	case TargetPost, "":
		if targetID != "" && targetID != postID {
			return ReplyTarget{}, fmt.Errorf("post target %q does not match post %q", targetID, postID)
		}
		return PostTarget(postID), nil
	case TargetReply:
		if targetID == "" {
			return ReplyTarget{}, fmt.Errorf("reply target requires targetID")
		}
		return ReplyTo(targetID), nil
	default:
		return ReplyTarget{}, fmt.Errorf("unknown reply target %q", kind)
	}
}

func (t ReplyTarget) IsReply() bool { return t.Kind == TargetReply }

// Author describes who wrote a reply or guestbook entry. Guests have no UserID
// and authenticate deletions with the password behind PasswordHash.
type Author struct {
	IsUser       bool   `json:"isUser" bson:"isUser"`
	UserID       string `json:"userID,omitempty" bson:"userID,omitempty"`
	UserName     string `json:"userName" bson:"userName"`
	PasswordHash string `json:"passwordHash,omitempty" bson:"passwordHash,omitempty"`
}

func (a Author) IsGuest() bool { return !a.IsUser || a.UserID == "" }

type Reply struct {
	ID             string      `json:"_id" bson:"_id"`
	Target         ReplyTarget `json:"replyTarget" bson:"replyTarget"`
	RepliedArticle string      `json:"repliedArticle" bson:"repliedArticle"`
	Author         Author      `json:"author" bson:"author"`
	Text           string      `json:"text" bson:"text"`
	ReReplies      IDSet       `json:"reReplies" bson:"reReplies"`
	CreatedAt      time.Time   `json:"createdAt" bson:"createdAt"`
}

func (r Reply) DocumentID() string { return r.ID }

type Guestbook struct {
	ID          string    `json:"_id" bson:"_id"`
	WrittenUser Author    `json:"writtenUser" bson:"writtenUser"`
	Text        string    `json:"text" bson:"text"`
	Replies     IDSet     `json:"replies" bson:"replies"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

func (g Guestbook) DocumentID() string { return g.ID }

type GuestbookReply struct {
	ID              string    `json:"_id" bson:"_id"`
	TargetGuestbook string    `json:"targetGuestbook" bson:"targetGuestbook"`
	WrittenUser     Author    `json:"writtenUser" bson:"writtenUser"`
	Text            string    `json:"text" bson:"text"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
}

func (g GuestbookReply) DocumentID() string { return g.ID }

// Follow mirrors the follow graph from the follower's side. ID is the follower's user ID.
type Follow struct {
	ID        string    `json:"_id" bson:"_id"`
	Users     IDSet     `json:"users" bson:"users"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

func (f Follow) DocumentID() string { return f.ID }
