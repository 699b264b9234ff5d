package app

import (
	"context"
	"log"
	"sync"
	"time"

	"portal-score-service/internal/domain"
)

// ForumSource exposes the watched forum collections. Watch registers a
// callback fired on any change; the returned func deregisters it.
type ForumSource interface {
	ListPosts(ctx context.Context) ([]domain.ForumPost, error)
	ListReplies(ctx context.Context) ([]domain.ForumReply, error)
	Watch(fn func()) (cancel func())
}

// AttemptSource exposes the watched quiz attempt collection.
type AttemptSource interface {
	ListAttempts(ctx context.Context) ([]domain.QuizAttempt, error)
	Watch(fn func()) (cancel func())
}

// SnapshotCache persists leaderboard snapshots best-effort (e.g. Redis) so
// fresh subscribers on other instances can render without recomputing.
type SnapshotCache interface {
	StoreSnapshot(ctx context.Context, lb domain.Leaderboard) error
}

// Board is the reactive leaderboard: it watches the forum and attempt
// collections and rebuilds the full projection from scratch on every change,
// then pushes the per-mode snapshot to each subscriber.
type Board struct {
	forum    ForumSource
	attempts AttemptSource
	cache    SnapshotCache
	topN     int
	now      func() time.Time

	mu          sync.RWMutex
	inputs      ScoreInputs
	subscribers map[chan domain.Leaderboard]domain.RankMode
}

// NewBoard builds a board capped at topN entries per snapshot (0 = uncapped).
// cache may be nil.
func NewBoard(forum ForumSource, attempts AttemptSource, cache SnapshotCache, topN int) *Board {
	return &Board{
		forum:       forum,
		attempts:    attempts,
		cache:       cache,
		topN:        topN,
		now:         time.Now,
		subscribers: make(map[chan domain.Leaderboard]domain.RankMode),
	}
}

// Start loads the initial snapshot and registers the change watchers. The
// returned cancel func must be called on teardown to release them.
func (b *Board) Start(ctx context.Context) func() {
	b.refresh(ctx)
	cancelForum := b.forum.Watch(func() { b.refresh(ctx) })
	cancelAttempts := b.attempts.Watch(func() { b.refresh(ctx) })
	return func() {
		cancelForum()
		cancelAttempts()
	}
}

// refresh re-reads all source collections and rebroadcasts. Read failures
// keep the previous snapshot for that collection; a stale board beats a
// broken one.
func (b *Board) refresh(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if posts, err := b.forum.ListPosts(ctx); err == nil {
		b.inputs.Posts = posts
	} else {
		log.Printf("leaderboard: list posts: %v", err)
	}
	if replies, err := b.forum.ListReplies(ctx); err == nil {
		b.inputs.Replies = replies
	} else {
		log.Printf("leaderboard: list replies: %v", err)
	}
	if attempts, err := b.attempts.ListAttempts(ctx); err == nil {
		b.inputs.Attempts = attempts
	} else {
		log.Printf("leaderboard: list attempts: %v", err)
	}

	b.broadcastLocked(ctx)
}

// Snapshot builds the leaderboard for a mode from the current inputs.
func (b *Board) Snapshot(mode domain.RankMode) domain.Leaderboard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BuildLeaderboard(b.inputs, mode, b.now(), b.topN)
}

// Subscribe returns a channel fed with snapshots for the given mode, starting
// with the current one. The caller must invoke cancel to avoid leaks.
func (b *Board) Subscribe(mode domain.RankMode) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = mode
	initial := BuildLeaderboard(b.inputs, mode, b.now(), b.topN)
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// SetMode switches the ranking dimension for an existing subscription and
// immediately pushes a snapshot in the new mode.
func (b *Board) SetMode(ch <-chan domain.Leaderboard, mode domain.RankMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		if sub == ch {
			b.subscribers[sub] = mode
			deliver(sub, BuildLeaderboard(b.inputs, mode, b.now(), b.topN))
			return
		}
	}
}

func (b *Board) broadcastLocked(ctx context.Context) {
	// One snapshot per distinct mode; subscribers sharing a mode share it.
	byMode := make(map[string]domain.Leaderboard)
	for ch, mode := range b.subscribers {
		key := mode.String()
		lb, ok := byMode[key]
		if !ok {
			lb = BuildLeaderboard(b.inputs, mode, b.now(), b.topN)
			byMode[key] = lb
		}
		deliver(ch, lb)
	}

	if b.cache != nil {
		for _, lb := range byMode {
			if err := b.cache.StoreSnapshot(ctx, lb); err != nil {
				log.Printf("leaderboard: cache snapshot %s: %v", lb.Mode, err)
			}
		}
	}
}

// deliver drops the stale queued snapshot when a subscriber lags so the
// broadcast never blocks on a slow client.
func deliver(ch chan domain.Leaderboard, lb domain.Leaderboard) {
	select {
	case ch <- lb:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- lb
	}
}
