package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"portal-score-service/internal/app"
	"portal-score-service/internal/domain"
)

// ForumStore is an in-memory implementation of app.ForumStore with Firestore
// style change notification: every mutation fires all registered watchers.
// An optional archive receives vote updates for durable storage; archive
// failures are surfaced to the caller but the in-memory state is already
// updated, matching the local-first flow.
type ForumStore struct {
	archive ForumArchive

	mu       sync.RWMutex
	posts    map[string]domain.ForumPost
	replies  map[string]map[string]domain.ForumReply // postID -> replyID -> reply
	seq      int
	watchers *watcherSet
}

// ForumArchive persists forum writes durably (e.g. Postgres). May be nil.
type ForumArchive interface {
	InsertPost(ctx context.Context, post domain.ForumPost) error
	InsertReply(ctx context.Context, reply domain.ForumReply) error
	UpdatePostVotes(ctx context.Context, postID string, votes app.VoteResult) error
	UpdateReplyVotes(ctx context.Context, postID, replyID string, votes app.VoteResult) error
}

func NewForumStore(archive ForumArchive) *ForumStore {
	return &ForumStore{
		archive:  archive,
		posts:    make(map[string]domain.ForumPost),
		replies:  make(map[string]map[string]domain.ForumReply),
		watchers: newWatcherSet(),
	}
}

// Seed loads an initial working set without firing watchers.
func (s *ForumStore) Seed(posts []domain.ForumPost, replies []domain.ForumReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range posts {
		s.posts[p.ID] = p
	}
	for _, r := range replies {
		if s.replies[r.PostID] == nil {
			s.replies[r.PostID] = make(map[string]domain.ForumReply)
		}
		s.replies[r.PostID][r.ID] = r
	}
}

// CreatePost records a new post locally, notifies watchers, and archives it.
// Like attempts, the local record stands even when the archive write fails.
func (s *ForumStore) CreatePost(ctx context.Context, post domain.ForumPost) (domain.ForumPost, error) {
	s.mu.Lock()
	s.seq++
	if post.ID == "" {
		post.ID = fmt.Sprintf("post-%d-%d", time.Now().UnixNano(), s.seq)
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	if post.Upvotes == nil {
		post.Upvotes = []string{}
	}
	if post.Downvotes == nil {
		post.Downvotes = []string{}
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	s.posts[post.ID] = post
	s.mu.Unlock()
	s.watchers.notify()

	if s.archive != nil {
		if err := s.archive.InsertPost(ctx, post); err != nil {
			return post, fmt.Errorf("archive post: %w", err)
		}
	}
	return post, nil
}

// CreateReply records a new reply under an existing post, notifies watchers,
// and archives it.
func (s *ForumStore) CreateReply(ctx context.Context, reply domain.ForumReply) (domain.ForumReply, error) {
	s.mu.Lock()
	if _, ok := s.posts[reply.PostID]; !ok {
		s.mu.Unlock()
		return domain.ForumReply{}, domain.ErrPostNotFound
	}
	s.seq++
	if reply.ID == "" {
		reply.ID = fmt.Sprintf("reply-%d-%d", time.Now().UnixNano(), s.seq)
	}
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = time.Now()
	}
	if reply.Upvotes == nil {
		reply.Upvotes = []string{}
	}
	if reply.Downvotes == nil {
		reply.Downvotes = []string{}
	}
	if s.replies[reply.PostID] == nil {
		s.replies[reply.PostID] = make(map[string]domain.ForumReply)
	}
	s.replies[reply.PostID][reply.ID] = reply
	s.mu.Unlock()
	s.watchers.notify()

	if s.archive != nil {
		if err := s.archive.InsertReply(ctx, reply); err != nil {
			return reply, fmt.Errorf("archive reply: %w", err)
		}
	}
	return reply, nil
}

func (s *ForumStore) ListPosts(_ context.Context) ([]domain.ForumPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ForumPost, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p)
	}
	return out, nil
}

func (s *ForumStore) ListReplies(_ context.Context) ([]domain.ForumReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ForumReply
	for _, byID := range s.replies {
		for _, r := range byID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ForumStore) GetPost(_ context.Context, postID string) (domain.ForumPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[postID]
	if !ok {
		return domain.ForumPost{}, domain.ErrPostNotFound
	}
	return post, nil
}

func (s *ForumStore) GetReply(_ context.Context, postID, replyID string) (domain.ForumReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reply, ok := s.replies[postID][replyID]
	if !ok {
		return domain.ForumReply{}, domain.ErrReplyNotFound
	}
	return reply, nil
}

func (s *ForumStore) UpdatePostVotes(ctx context.Context, postID string, votes app.VoteResult) error {
	s.mu.Lock()
	post, ok := s.posts[postID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrPostNotFound
	}
	post.Upvotes = votes.Upvotes
	post.Downvotes = votes.Downvotes
	post.Points = votes.Points
	s.posts[postID] = post
	s.mu.Unlock()
	s.watchers.notify()

	if s.archive != nil {
		return s.archive.UpdatePostVotes(ctx, postID, votes)
	}
	return nil
}

func (s *ForumStore) UpdateReplyVotes(ctx context.Context, postID, replyID string, votes app.VoteResult) error {
	s.mu.Lock()
	reply, ok := s.replies[postID][replyID]
	if !ok {
		s.mu.Unlock()
		return domain.ErrReplyNotFound
	}
	reply.Upvotes = votes.Upvotes
	reply.Downvotes = votes.Downvotes
	reply.Points = votes.Points
	s.replies[postID][replyID] = reply
	s.mu.Unlock()
	s.watchers.notify()

	if s.archive != nil {
		return s.archive.UpdateReplyVotes(ctx, postID, replyID, votes)
	}
	return nil
}

func (s *ForumStore) Watch(fn func()) func() {
	return s.watchers.add(fn)
}
