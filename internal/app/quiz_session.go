package app

import (
	"context"
	"log"
	"sync"
	"time"

	"portal-score-service/internal/domain"
)

// AttemptSink receives the attempt record emitted when a session submits.
type AttemptSink interface {
	SaveAttempt(ctx context.Context, attempt domain.QuizAttempt) error
}

// QuizSession tracks one user's pass over one quiz: answer collection,
// question navigation, elapsed time, and the submission deadline. It has two
// states, in-progress and submitted; submitted is terminal and is reached by
// explicit submission, by the deadline expiring, never by cancellation.
type QuizSession struct {
	quiz     domain.Quiz
	userID   string
	userName string
	sink     AttemptSink
	now      func() time.Time

	mu        sync.Mutex
	answers   map[string][]string
	index     int
	startedAt time.Time
	deadline  time.Time // zero when the quiz is untimed
	submitted bool
	canceled  bool
	result    domain.QuizAttempt
}

// NewQuizSession starts a session. The deadline is fixed once here; ticks
// compare against it instead of accumulating elapsed seconds.
func NewQuizSession(quiz domain.Quiz, userID, userName string, sink AttemptSink) *QuizSession {
	return newQuizSessionWithClock(quiz, userID, userName, sink, time.Now)
}

// NewQuizSessionWithClock is test-only for deterministic timing.
func NewQuizSessionWithClock(quiz domain.Quiz, userID, userName string, sink AttemptSink, now func() time.Time) *QuizSession {
	return newQuizSessionWithClock(quiz, userID, userName, sink, now)
}

func newQuizSessionWithClock(quiz domain.Quiz, userID, userName string, sink AttemptSink, now func() time.Time) *QuizSession {
	s := &QuizSession{
		quiz:      quiz,
		userID:    userID,
		userName:  userName,
		sink:      sink,
		now:       now,
		answers:   make(map[string][]string),
		startedAt: now(),
	}
	if quiz.TimeLimit > 0 {
		s.deadline = s.startedAt.Add(time.Duration(quiz.TimeLimit) * time.Second)
	}
	return s
}

// SessionState is a snapshot of the session for rendering.
type SessionState struct {
	QuizID           string          `json:"quizId"`
	QuizTitle        string          `json:"quizTitle"`
	QuestionIndex    int             `json:"questionIndex"`
	QuestionCount    int             `json:"questionCount"`
	Question         domain.Question `json:"question"`
	Selected         []string        `json:"selected"`
	ElapsedSeconds   int             `json:"elapsedSeconds"`
	RemainingSeconds int             `json:"remainingSeconds,omitempty"`
	Submitted        bool            `json:"submitted"`
}

// State returns the current snapshot. The correct answers are stripped from
// the question before it leaves the session.
func (s *QuizSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := SessionState{
		QuizID:         s.quiz.ID,
		QuizTitle:      s.quiz.Title,
		QuestionIndex:  s.index,
		QuestionCount:  len(s.quiz.Questions),
		ElapsedSeconds: s.elapsedLocked(),
		Submitted:      s.submitted,
	}
	if s.index < len(s.quiz.Questions) {
		q := s.quiz.Questions[s.index]
		q.CorrectAnswers = nil
		state.Question = q
		state.Selected = append([]string(nil), s.answers[q.ID]...)
	}
	if !s.deadline.IsZero() && !s.submitted {
		remaining := int(s.deadline.Sub(s.now()).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		state.RemainingSeconds = remaining
	}
	return state
}

func (s *QuizSession) elapsedLocked() int {
	if s.submitted {
		return s.result.TimeSpent
	}
	return int(s.now().Sub(s.startedAt).Seconds())
}

// Answer records a value for the current question. Single-choice answers
// overwrite; multiple-choice answers toggle membership in the selected set.
func (s *QuizSession) Answer(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || s.canceled {
		return domain.ErrSessionClosed
	}
	if s.index >= len(s.quiz.Questions) {
		return domain.ErrQuestionNotFound
	}
	q := s.quiz.Questions[s.index]
	if q.Type == domain.MultipleChoice {
		selected := s.answers[q.ID]
		if containsID(selected, value) {
			s.answers[q.ID] = removeID(selected, value)
		} else {
			s.answers[q.ID] = append(selected, value)
		}
	} else {
		s.answers[q.ID] = []string{value}
	}
	return nil
}

// Navigate moves the current question index by delta, clamped to the valid
// range, and returns the resulting index.
func (s *QuizSession) Navigate(delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted || s.canceled {
		return s.index, domain.ErrSessionClosed
	}
	next := s.index + delta
	if next < 0 {
		next = 0
	}
	if max := len(s.quiz.Questions) - 1; next > max {
		next = max
	}
	s.index = next
	return s.index, nil
}

// Submit finishes the session explicitly. It is only allowed from the last
// question, mirroring the flow where the submit control appears at the end.
func (s *QuizSession) Submit(ctx context.Context) (domain.QuizAttempt, error) {
	s.mu.Lock()
	if s.submitted || s.canceled {
		s.mu.Unlock()
		return s.result, domain.ErrSessionClosed
	}
	if s.index != len(s.quiz.Questions)-1 {
		s.mu.Unlock()
		return domain.QuizAttempt{}, domain.ErrNotLastQuestion
	}
	attempt := s.finishLocked()
	s.mu.Unlock()

	s.emit(ctx, attempt)
	return attempt, nil
}

// ExpireIfDue auto-submits when the deadline has passed. It reports whether
// this call performed the submission; the submitted flag makes expiry
// one-shot even when several ticks observe the deadline at once. Untimed
// quizzes never expire.
func (s *QuizSession) ExpireIfDue(ctx context.Context) (domain.QuizAttempt, bool) {
	s.mu.Lock()
	if s.submitted || s.canceled || s.deadline.IsZero() || s.now().Before(s.deadline) {
		s.mu.Unlock()
		return domain.QuizAttempt{}, false
	}
	attempt := s.finishLocked()
	s.mu.Unlock()

	s.emit(ctx, attempt)
	return attempt, true
}

// Cancel tears the session down without emitting a result. It is a no-op
// once the session has submitted.
func (s *QuizSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.submitted {
		s.canceled = true
	}
}

// Submitted reports whether the session reached its terminal state.
func (s *QuizSession) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

func (s *QuizSession) finishLocked() domain.QuizAttempt {
	score := ScoreAnswers(s.quiz, s.answers)
	answers := make(map[string][]string, len(s.answers))
	for id, values := range s.answers {
		answers[id] = append([]string(nil), values...)
	}
	s.submitted = true
	s.result = domain.QuizAttempt{
		UserID:      s.userID,
		UserName:    s.userName,
		QuizID:      s.quiz.ID,
		QuizTitle:   s.quiz.Title,
		Answers:     answers,
		Score:       score,
		TotalPoints: s.quiz.TotalPoints(),
		TimeSpent:   int(s.now().Sub(s.startedAt).Seconds()),
		CompletedAt: s.now(),
	}
	return s.result
}

// emit hands the attempt to the sink. A failed write is logged and swallowed;
// the user still sees their result.
func (s *QuizSession) emit(ctx context.Context, attempt domain.QuizAttempt) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveAttempt(ctx, attempt); err != nil {
		log.Printf("save attempt for user %s quiz %s: %v", attempt.UserID, attempt.QuizID, err)
	}
}

// ScoreAnswers grades recorded answers against the quiz. Single-choice
// compares the scalar value; multiple-choice compares sorted sets for exact
// equality with no partial credit.
func ScoreAnswers(quiz domain.Quiz, answers map[string][]string) int {
	score := 0
	for _, q := range quiz.Questions {
		selected, ok := answers[q.ID]
		if !ok || len(selected) == 0 {
			continue
		}
		if answerCorrect(q, selected) {
			points := q.Points
			if points == 0 {
				points = 1
			}
			score += points
		}
	}
	return score
}

func answerCorrect(q domain.Question, selected []string) bool {
	if q.Type == domain.MultipleChoice {
		want := domain.SortedCopy(q.CorrectAnswers)
		got := domain.SortedCopy(selected)
		if len(want) != len(got) {
			return false
		}
		for i := range want {
			if want[i] != got[i] {
				return false
			}
		}
		return true
	}
	return len(q.CorrectAnswers) == 1 && len(selected) == 1 && selected[0] == q.CorrectAnswers[0]
}
