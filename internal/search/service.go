package search

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Service is the facade that tries Meilisearch first and falls back to a store scan.
type Service struct {
	meili    *Meili
	fallback *StoreScan
	logger   *zap.Logger
	pending  sync.WaitGroup
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, fallback *StoreScan, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{meili: meili, fallback: fallback, logger: logger.Named("search")}
}

// Search tries Meilisearch if healthy, otherwise falls back to the store scan.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meiliReady() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch error, falling back to store scan", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("store scan failed", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPost indexes a post (fire-and-forget to Meilisearch).
func (s *Service) IndexPost(p PostRecord) {
	s.async("index post", p.ID, func() error { return s.meili.IndexPost(p) })
}

// IndexReply indexes a reply (fire-and-forget to Meilisearch).
func (s *Service) IndexReply(r ReplyRecord) {
	s.async("index reply", r.ID, func() error { return s.meili.IndexReply(r) })
}

// DeletePost removes a post from the search index (fire-and-forget).
func (s *Service) DeletePost(id string) {
	s.async("delete post", id, func() error { return s.meili.DeletePost(id) })
}

// DeleteReply removes a reply from the search index (fire-and-forget).
func (s *Service) DeleteReply(id string) {
	s.async("delete reply", id, func() error { return s.meili.DeleteReply(id) })
}

// ReindexAll reads every post and reply from the store and pushes them to Meilisearch.
func (s *Service) ReindexAll(ctx context.Context) {
	if !s.meiliReady() || s.fallback == nil {
		return
	}
	posts, replies, err := s.fallback.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Error("reindex load failed", zap.Error(err))
		return
	}
	if err := s.meili.IndexPosts(posts); err != nil {
		s.logger.Error("reindex posts", zap.Error(err))
	}
	if err := s.meili.IndexReplies(replies); err != nil {
		s.logger.Error("reindex replies", zap.Error(err))
	}
	s.logger.Info("reindexed", zap.Int("posts", len(posts)), zap.Int("replies", len(replies)))
}

// Close waits for queued index writes and stops the Meilisearch health monitor.
func (s *Service) Close() {
	s.pending.Wait()
	if s.meili != nil {
		s.meili.Close()
	}
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

func (s *Service) async(op, id string, fn func() error) {
	if !s.meiliReady() {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := fn(); err != nil {
			s.logger.Warn(op, zap.String("id", id), zap.Error(err))
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
