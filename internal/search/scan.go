package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"fillog/api/internal/store"
)

const snippetRadius = 40

// ContentStore is the part of the document store the scan fallback reads.
type ContentStore interface {
	Posts() store.Collection[store.Post]
	Replies() store.Collection[store.Reply]
}

// StoreScan scans the document store for a case-insensitive substring match.
// It is used when Meilisearch is absent or down.
type StoreScan struct {
	store ContentStore
}

func NewStoreScan(s ContentStore) *StoreScan {
	return &StoreScan{store: s}
}

// Search matches posts on title or text and replies on text, newest first.
func (s *StoreScan) Search(ctx context.Context, q Query) ([]Result, int, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return nil, 0, nil
	}

	type hit struct {
		result    Result
		createdAt int64
	}
	var hits []hit

	if q.FilterType == "" || q.FilterType == ResultPost {
		posts, err := s.store.Posts().Find(ctx, store.Filter{})
		if err != nil {
			return nil, 0, fmt.Errorf("scan posts: %w", err)
		}
		for _, p := range posts {
			inTitle := strings.Contains(strings.ToLower(p.Title), needle)
			if !inTitle && !strings.Contains(strings.ToLower(p.Text), needle) {
				continue
			}
			snippet := snippetAround(p.Text, needle)
			if snippet == "" {
				snippet = truncate(p.Text)
			}
			hits = append(hits, hit{
				result:    Result{Type: ResultPost, ID: p.ID, Title: p.Title, Snippet: snippet, PostID: p.ID},
				createdAt: p.CreatedAt.UnixNano(),
			})
		}
	}

	if q.FilterType == "" || q.FilterType == ResultReply {
		replies, err := s.store.Replies().Find(ctx, store.Filter{})
		if err != nil {
			return nil, 0, fmt.Errorf("scan replies: %w", err)
		}
		for _, r := range replies {
			if !strings.Contains(strings.ToLower(r.Text), needle) {
				continue
			}
			hits = append(hits, hit{
				result:    Result{Type: ResultReply, ID: r.ID, Title: r.Author.UserName, Snippet: snippetAround(r.Text, needle), PostID: r.RepliedArticle},
				createdAt: r.CreatedAt.UnixNano(),
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].createdAt > hits[j].createdAt })

	total := len(hits)
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Result{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	results := make([]Result, 0, end-offset)
	for _, h := range hits[offset:end] {
		results = append(results, h.result)
	}
	return results, total, nil
}

// LoadAllRecords reads every post and reply for a full reindex.
func (s *StoreScan) LoadAllRecords(ctx context.Context) ([]PostRecord, []ReplyRecord, error) {
	posts, err := s.store.Posts().Find(ctx, store.Filter{})
	if err != nil {
		return nil, nil, fmt.Errorf("load posts: %w", err)
	}
	replies, err := s.store.Replies().Find(ctx, store.Filter{})
	if err != nil {
		return nil, nil, fmt.Errorf("load replies: %w", err)
	}

	postRecords := make([]PostRecord, 0, len(posts))
	for _, p := range posts {
		postRecords = append(postRecords, PostRecordFrom(p))
	}
	replyRecords := make([]ReplyRecord, 0, len(replies))
	for _, r := range replies {
		replyRecords = append(replyRecords, ReplyRecordFrom(r))
	}
	return postRecords, replyRecords, nil
}

// snippetAround returns the text surrounding the first match, or "" when there is none.
func snippetAround(text, needle string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, needle)
	if idx < 0 {
		return ""
	}
	// Lowercasing changed byte offsets.
	if len(lower) != len(text) {
		return truncate(text)
	}

	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + snippetRadius
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}

func truncate(text string) string {
	const limit = 2 * snippetRadius
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
