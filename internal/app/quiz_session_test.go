package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"portal-score-service/internal/app"
	"portal-score-service/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type captureSink struct {
	attempts []domain.QuizAttempt
	err      error
}

func (s *captureSink) SaveAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	s.attempts = append(s.attempts, attempt)
	return s.err
}

func timedQuiz(limit int) domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		Title:     "Basics",
		TimeLimit: limit,
		Questions: []domain.Question{
			{ID: "q1", Type: domain.SingleChoice, CorrectAnswers: []string{"A"}, Points: 5},
			{ID: "q2", Type: domain.SingleChoice, CorrectAnswers: []string{"B"}, Points: 5},
			{ID: "q3", Type: domain.MultipleChoice, CorrectAnswers: []string{"X", "Y"}, Points: 5},
		},
	}
}

func newTestSession(t *testing.T, quiz domain.Quiz, sink app.AttemptSink) (*app.QuizSession, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	return app.NewQuizSessionWithClock(quiz, "u1", "Alice", sink, clock.Now), clock
}

func TestSingleChoiceOverwrites(t *testing.T) {
	sink := &captureSink{}
	session, clock := newTestSession(t, timedQuiz(0), sink)

	if err := session.Answer("C"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := session.Answer("A"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	session.Navigate(1)
	session.Answer("B")
	session.Navigate(1)
	clock.Advance(30 * time.Second)

	attempt, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := attempt.Answers["q1"]; len(got) != 1 || got[0] != "A" {
		t.Fatalf("expected q1 answer overwritten to A, got %v", got)
	}
	if attempt.Score != 10 {
		t.Fatalf("expected 10 points for q1+q2, got %d", attempt.Score)
	}
}

func TestMultipleChoiceTogglesAndIgnoresOrder(t *testing.T) {
	sink := &captureSink{}
	session, _ := newTestSession(t, timedQuiz(0), sink)

	session.Navigate(2)
	// Select Y then X (reverse of corpus order), plus a stray toggle.
	session.Answer("Y")
	session.Answer("X")
	session.Answer("Y")
	session.Answer("Y")

	attempt, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.Score != 5 {
		t.Fatalf("expected order-independent set match worth 5, got %d", attempt.Score)
	}
}

func TestMultipleChoicePartialSelectionScoresZero(t *testing.T) {
	sink := &captureSink{}
	session, _ := newTestSession(t, timedQuiz(0), sink)

	session.Navigate(2)
	session.Answer("X")

	attempt, _ := session.Submit(context.Background())
	if attempt.Score != 0 {
		t.Fatalf("expected no partial credit, got %d", attempt.Score)
	}
}

func TestNavigationClamped(t *testing.T) {
	session, _ := newTestSession(t, timedQuiz(0), &captureSink{})

	if idx, _ := session.Navigate(-5); idx != 0 {
		t.Fatalf("expected clamp at 0, got %d", idx)
	}
	if idx, _ := session.Navigate(10); idx != 2 {
		t.Fatalf("expected clamp at last question, got %d", idx)
	}
}

func TestSubmitOnlyFromLastQuestion(t *testing.T) {
	session, _ := newTestSession(t, timedQuiz(0), &captureSink{})

	if _, err := session.Submit(context.Background()); !errors.Is(err, domain.ErrNotLastQuestion) {
		t.Fatalf("expected ErrNotLastQuestion, got %v", err)
	}
}

func TestAutoSubmitAtDeadline(t *testing.T) {
	sink := &captureSink{}
	session, clock := newTestSession(t, timedQuiz(120), sink)

	// Only q1 answered; deadline hits while q1 is displayed.
	session.Answer("A")
	clock.Advance(120 * time.Second)

	attempt, fired := session.ExpireIfDue(context.Background())
	if !fired {
		t.Fatalf("expected auto-submit at deadline")
	}
	if attempt.Score != 5 || attempt.TotalPoints != 15 {
		t.Fatalf("expected 5/15 with unanswered questions scoring 0, got %d/%d", attempt.Score, attempt.TotalPoints)
	}
	if attempt.TimeSpent != 120 {
		t.Fatalf("expected 120s elapsed, got %d", attempt.TimeSpent)
	}
	if len(sink.attempts) != 1 {
		t.Fatalf("expected result emitted once, got %d", len(sink.attempts))
	}

	// A second racing tick must not emit again.
	if _, fired := session.ExpireIfDue(context.Background()); fired {
		t.Fatalf("expected one-shot expiry")
	}
	if len(sink.attempts) != 1 {
		t.Fatalf("expected no duplicate emission, got %d", len(sink.attempts))
	}

	if err := session.Answer("B"); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected input rejected after submission, got %v", err)
	}
	if _, err := session.Navigate(1); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected navigation rejected after submission, got %v", err)
	}
}

func TestUntimedQuizNeverExpires(t *testing.T) {
	sink := &captureSink{}
	session, clock := newTestSession(t, timedQuiz(0), sink)

	clock.Advance(1000 * time.Hour)
	if _, fired := session.ExpireIfDue(context.Background()); fired {
		t.Fatalf("expected no auto-submit without a time limit")
	}
	if len(sink.attempts) != 0 {
		t.Fatalf("expected nothing emitted, got %d", len(sink.attempts))
	}
}

func TestCancelEmitsNothing(t *testing.T) {
	sink := &captureSink{}
	session, clock := newTestSession(t, timedQuiz(60), sink)

	session.Answer("A")
	session.Cancel()
	clock.Advance(time.Hour)

	if _, fired := session.ExpireIfDue(context.Background()); fired {
		t.Fatalf("expected canceled session to never expire")
	}
	if _, err := session.Submit(context.Background()); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected canceled session to reject submit, got %v", err)
	}
	if len(sink.attempts) != 0 {
		t.Fatalf("expected no emission after cancel, got %d", len(sink.attempts))
	}
}

func TestFailedSaveStillSubmits(t *testing.T) {
	sink := &captureSink{err: errors.New("permission denied")}
	session, _ := newTestSession(t, timedQuiz(0), sink)

	session.Navigate(2)
	attempt, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("save failure must not fail the submit: %v", err)
	}
	if !session.Submitted() {
		t.Fatalf("expected session submitted despite save failure")
	}
	if attempt.QuizID != "quiz-1" {
		t.Fatalf("expected result returned to caller, got %+v", attempt)
	}
}

func TestStateStripsCorrectAnswers(t *testing.T) {
	session, clock := newTestSession(t, timedQuiz(120), &captureSink{})
	clock.Advance(30 * time.Second)

	state := session.State()
	if state.Question.CorrectAnswers != nil {
		t.Fatalf("state must not leak correct answers: %+v", state.Question)
	}
	if state.ElapsedSeconds != 30 || state.RemainingSeconds != 90 {
		t.Fatalf("expected 30s elapsed / 90s remaining, got %d/%d", state.ElapsedSeconds, state.RemainingSeconds)
	}
	if state.QuestionCount != 3 || state.QuestionIndex != 0 {
		t.Fatalf("unexpected position %d/%d", state.QuestionIndex, state.QuestionCount)
	}
}
