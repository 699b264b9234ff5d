package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"portal-score-service/internal/domain"
)

// AttemptArchive persists submitted attempts durably (e.g. Postgres). May be
// nil when running memory-only.
type AttemptArchive interface {
	InsertAttempt(ctx context.Context, attempt domain.QuizAttempt) error
}

// AttemptStore is an in-memory implementation of app.AttemptStore. Attempts
// are append-only; saving notifies watchers so the leaderboard recomputes.
type AttemptStore struct {
	archive AttemptArchive

	mu       sync.RWMutex
	attempts []domain.QuizAttempt
	seq      int
	watchers *watcherSet
}

func NewAttemptStore(archive AttemptArchive) *AttemptStore {
	return &AttemptStore{
		archive:  archive,
		watchers: newWatcherSet(),
	}
}

// Seed loads an initial working set without firing watchers.
func (s *AttemptStore) Seed(attempts []domain.QuizAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempts...)
	s.seq += len(attempts)
}

// SaveAttempt records the attempt locally and then archives it. The local
// record and the watcher notification happen regardless of archive outcome;
// a failed durable write comes back as the error for the caller to log.
func (s *AttemptStore) SaveAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	s.seq++
	if attempt.ID == "" {
		attempt.ID = fmt.Sprintf("attempt-%d-%d", time.Now().UnixNano(), s.seq)
	}
	s.attempts = append(s.attempts, attempt)
	s.mu.Unlock()
	s.watchers.notify()

	if s.archive != nil {
		if err := s.archive.InsertAttempt(ctx, attempt); err != nil {
			return fmt.Errorf("archive attempt: %w", err)
		}
	}
	return nil
}

func (s *AttemptStore) ListAttempts(_ context.Context) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizAttempt(nil), s.attempts...), nil
}

func (s *AttemptStore) ListUserAttempts(_ context.Context, userID string) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.QuizAttempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *AttemptStore) Watch(fn func()) func() {
	return s.watchers.add(fn)
}
