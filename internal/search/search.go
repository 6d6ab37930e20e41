package search

import (
	"time"

	"fillog/api/internal/store"
)

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultPost  ResultType = "post"
	ResultReply ResultType = "reply"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	PostID  string     `json:"postId"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// PostRecord is the data we index for a post.
type PostRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Category  int    `json:"category"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"createdAt"`
}

// ReplyRecord is the data we index for a reply.
type ReplyRecord struct {
	ID         string `json:"id"`
	PostID     string `json:"postId"`
	Text       string `json:"text"`
	AuthorName string `json:"authorName"`
	CreatedAt  int64  `json:"createdAt"`
}

func PostRecordFrom(p store.Post) PostRecord {
	return PostRecord{
		ID:        p.ID,
		Title:     p.Title,
		Text:      p.Text,
		Category:  p.Category,
		Author:    p.Author,
		CreatedAt: unix(p.CreatedAt),
	}
}

func ReplyRecordFrom(r store.Reply) ReplyRecord {
	return ReplyRecord{
		ID:         r.ID,
		PostID:     r.RepliedArticle,
		Text:       r.Text,
		AuthorName: r.Author.UserName,
		CreatedAt:  unix(r.CreatedAt),
	}
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
