package app

import (
	"context"
	"sync"
	"time"

	"portal-score-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ForumStore is the watched forum collection plus the write paths for
// creating content and recording votes.
type ForumStore interface {
	ForumSource
	GetPost(ctx context.Context, postID string) (domain.ForumPost, error)
	GetReply(ctx context.Context, postID, replyID string) (domain.ForumReply, error)
	CreatePost(ctx context.Context, post domain.ForumPost) (domain.ForumPost, error)
	CreateReply(ctx context.Context, reply domain.ForumReply) (domain.ForumReply, error)
	UpdatePostVotes(ctx context.Context, postID string, votes VoteResult) error
	UpdateReplyVotes(ctx context.Context, postID, replyID string, votes VoteResult) error
}

// AttemptStore is the watched attempt collection plus the submission sink.
type AttemptStore interface {
	AttemptSource
	AttemptSink
	ListUserAttempts(ctx context.Context, userID string) ([]domain.QuizAttempt, error)
}

// PortalService contains the portal use cases: vote toggling, quiz taking,
// and leaderboard subscriptions.
type PortalService struct {
	quizzes  QuizRepository
	forum    ForumStore
	attempts AttemptStore
	board    *Board

	tick time.Duration
}

func NewPortalService(quizzes QuizRepository, forum ForumStore, attempts AttemptStore, board *Board) *PortalService {
	return &PortalService{
		quizzes:  quizzes,
		forum:    forum,
		attempts: attempts,
		board:    board,
		tick:     time.Second,
	}
}

// CreatePost publishes a new forum post for the author. The store assigns the
// ID and timestamp.
func (s *PortalService) CreatePost(ctx context.Context, author, title string, tags []string) (domain.ForumPost, error) {
	if title == "" {
		return domain.ForumPost{}, domain.ErrEmptyContent
	}
	return s.forum.CreatePost(ctx, domain.ForumPost{
		Title:  title,
		Author: author,
		Tags:   tags,
	})
}

// CreateReply publishes a reply under an existing post.
func (s *PortalService) CreateReply(ctx context.Context, postID, author, text string) (domain.ForumReply, error) {
	if text == "" {
		return domain.ForumReply{}, domain.ErrEmptyContent
	}
	return s.forum.CreateReply(ctx, domain.ForumReply{
		PostID: postID,
		Author: author,
		Text:   text,
	})
}

// ListPosts returns the current forum posts.
func (s *PortalService) ListPosts(ctx context.Context) ([]domain.ForumPost, error) {
	return s.forum.ListPosts(ctx)
}

// CastVote toggles a vote on a post (replyID empty) or reply and writes the
// recomputed vote sets back to the store. The store's watchers pick up the
// change and the leaderboard recomputes from there.
func (s *PortalService) CastVote(ctx context.Context, postID, replyID, voterID string, dir domain.VoteDirection) (VoteResult, error) {
	if replyID == "" {
		post, err := s.forum.GetPost(ctx, postID)
		if err != nil {
			return VoteResult{}, err
		}
		result := ToggleVote(post.Upvotes, post.Downvotes, voterID, dir)
		if err := s.forum.UpdatePostVotes(ctx, postID, result); err != nil {
			return VoteResult{}, err
		}
		return result, nil
	}

	reply, err := s.forum.GetReply(ctx, postID, replyID)
	if err != nil {
		return VoteResult{}, err
	}
	result := ToggleVote(reply.Upvotes, reply.Downvotes, voterID, dir)
	if err := s.forum.UpdateReplyVotes(ctx, postID, replyID, result); err != nil {
		return VoteResult{}, err
	}
	return result, nil
}

// ActiveQuiz bundles a running session with its expiry watchdog. AutoSubmitted
// delivers the attempt when the deadline fires. Close stops the watchdog
// without touching the session; Abandon additionally cancels the session so
// no result is emitted.
type ActiveQuiz struct {
	Session       *QuizSession
	AutoSubmitted <-chan domain.QuizAttempt

	stopOnce sync.Once
	stop     chan struct{}
}

func (a *ActiveQuiz) Close() {
	a.stopOnce.Do(func() { close(a.stop) })
}

func (a *ActiveQuiz) Abandon() {
	a.Session.Cancel()
	a.Close()
}

// StartQuiz loads the quiz and opens a session for the user. For timed
// quizzes a watchdog goroutine checks the deadline every tick and auto-submits
// when it passes; the session's one-shot guard keeps racing ticks harmless.
func (s *PortalService) StartQuiz(ctx context.Context, quizID, userID, userName string) (*ActiveQuiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrQuizNotFound
	}

	session := NewQuizSession(quiz, userID, userName, s.attempts)
	autoSubmitted := make(chan domain.QuizAttempt, 1)
	active := &ActiveQuiz{
		Session:       session,
		AutoSubmitted: autoSubmitted,
		stop:          make(chan struct{}),
	}

	if quiz.TimeLimit > 0 {
		go func() {
			ticker := time.NewTicker(s.tick)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if attempt, fired := session.ExpireIfDue(context.WithoutCancel(ctx)); fired {
						autoSubmitted <- attempt
						return
					}
					if session.Submitted() {
						return
					}
				case <-active.stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	return active, nil
}

// SubscribeLeaderboard opens a leaderboard stream in the given mode. The
// caller must invoke the returned cancel function to avoid leaks.
func (s *PortalService) SubscribeLeaderboard(mode domain.RankMode) (<-chan domain.Leaderboard, func()) {
	return s.board.Subscribe(mode)
}

// SetLeaderboardMode switches the dimension of an existing stream.
func (s *PortalService) SetLeaderboardMode(ch <-chan domain.Leaderboard, mode domain.RankMode) {
	s.board.SetMode(ch, mode)
}

// Leaderboard returns a one-off snapshot in the given mode.
func (s *PortalService) Leaderboard(mode domain.RankMode) domain.Leaderboard {
	return s.board.Snapshot(mode)
}

// AttemptHistory lists a user's past attempts.
func (s *PortalService) AttemptHistory(ctx context.Context, userID string) ([]domain.QuizAttempt, error) {
	return s.attempts.ListUserAttempts(ctx, userID)
}
