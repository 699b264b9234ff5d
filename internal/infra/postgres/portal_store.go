package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"portal-score-service/internal/app"
	"portal-score-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PortalStore is the durable side of the forum and attempt collections. The
// in-memory stores hold the live working set; this store seeds them at boot
// and receives write-through updates.
type PortalStore struct {
	pool *pgxpool.Pool
}

func NewPortalStore(pool *pgxpool.Pool) *PortalStore {
	return &PortalStore{pool: pool}
}

func (s *PortalStore) LoadPosts(ctx context.Context) ([]domain.ForumPost, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, author, tags, created_at, upvotes, downvotes, points
		FROM forum_posts`)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.ForumPost
	for rows.Next() {
		var p domain.ForumPost
		if err := rows.Scan(&p.ID, &p.Title, &p.Author, &p.Tags, &p.CreatedAt, &p.Upvotes, &p.Downvotes, &p.Points); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PortalStore) LoadReplies(ctx context.Context) ([]domain.ForumReply, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, post_id, author, text, created_at, upvotes, downvotes, points
		FROM forum_replies`)
	if err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}
	defer rows.Close()

	var replies []domain.ForumReply
	for rows.Next() {
		var r domain.ForumReply
		if err := rows.Scan(&r.ID, &r.PostID, &r.Author, &r.Text, &r.CreatedAt, &r.Upvotes, &r.Downvotes, &r.Points); err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

func (s *PortalStore) LoadAttempts(ctx context.Context) ([]domain.QuizAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, user_name, quiz_id, quiz_title, answers, score, total_points, time_spent, completed_at
		FROM quiz_attempts`)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.QuizAttempt
	for rows.Next() {
		var a domain.QuizAttempt
		var answers []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.UserName, &a.QuizID, &a.QuizTitle, &answers, &a.Score, &a.TotalPoints, &a.TimeSpent, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &a.Answers); err != nil {
				return nil, fmt.Errorf("unmarshal answers: %w", err)
			}
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *PortalStore) InsertAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_attempts (id, user_id, user_name, quiz_id, quiz_title, answers, score, total_points, time_spent, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		attempt.ID, attempt.UserID, attempt.UserName, attempt.QuizID, attempt.QuizTitle,
		answers, attempt.Score, attempt.TotalPoints, attempt.TimeSpent, attempt.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *PortalStore) InsertPost(ctx context.Context, post domain.ForumPost) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO forum_posts (id, title, author, tags, created_at, upvotes, downvotes, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, tags=EXCLUDED.tags,
			upvotes=EXCLUDED.upvotes, downvotes=EXCLUDED.downvotes, points=EXCLUDED.points`,
		post.ID, post.Title, post.Author, post.Tags, post.CreatedAt, post.Upvotes, post.Downvotes, post.Points)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PortalStore) InsertReply(ctx context.Context, reply domain.ForumReply) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO forum_replies (id, post_id, author, text, created_at, upvotes, downvotes, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			text=EXCLUDED.text,
			upvotes=EXCLUDED.upvotes, downvotes=EXCLUDED.downvotes, points=EXCLUDED.points`,
		reply.ID, reply.PostID, reply.Author, reply.Text, reply.CreatedAt, reply.Upvotes, reply.Downvotes, reply.Points)
	if err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}
	return nil
}

func (s *PortalStore) UpdatePostVotes(ctx context.Context, postID string, votes app.VoteResult) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE forum_posts SET upvotes=$2, downvotes=$3, points=$4 WHERE id=$1`,
		postID, votes.Upvotes, votes.Downvotes, votes.Points)
	if err != nil {
		return fmt.Errorf("update post votes: %w", err)
	}
	return nil
}

func (s *PortalStore) UpdateReplyVotes(ctx context.Context, postID, replyID string, votes app.VoteResult) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE forum_replies SET upvotes=$3, downvotes=$4, points=$5 WHERE id=$2 AND post_id=$1`,
		postID, replyID, votes.Upvotes, votes.Downvotes, votes.Points)
	if err != nil {
		return fmt.Errorf("update reply votes: %w", err)
	}
	return nil
}
