package app_test

import (
	"reflect"
	"testing"
	"time"

	"portal-score-service/internal/app"
	"portal-score-service/internal/domain"
)

func TestSpeedBonusFastAttempt(t *testing.T) {
	// 10 points in 60s against a 1200s budget: ratio capped at 3,
	// bonus = floor((3-1) * 10 * 0.2) = 4.
	attempt := domain.QuizAttempt{Score: 10, TotalPoints: 10, TimeSpent: 60}
	if got := app.SpeedBonus(attempt.Score, attempt.TotalPoints, attempt.TimeSpent); got != 4 {
		t.Fatalf("expected bonus 4, got %d", got)
	}
	if got := app.AttemptScore(attempt); got != 14 {
		t.Fatalf("expected final score 14, got %d", got)
	}
}

func TestSpeedBonusPartialScore(t *testing.T) {
	// One of two 5-point questions right, still fast: bonus computed on the
	// earned 5 points only.
	attempt := domain.QuizAttempt{Score: 5, TotalPoints: 10, TimeSpent: 60}
	if got := app.SpeedBonus(attempt.Score, attempt.TotalPoints, attempt.TimeSpent); got != 2 {
		t.Fatalf("expected bonus 2, got %d", got)
	}
	if got := app.AttemptScore(attempt); got != 7 {
		t.Fatalf("expected final score 7, got %d", got)
	}
}

func TestSpeedBonusNeverNegative(t *testing.T) {
	// Slower than the budget used to produce a penalty; it must clamp to 0.
	attempt := domain.QuizAttempt{Score: 10, TotalPoints: 10, TimeSpent: 100000}
	if got := app.SpeedBonus(attempt.Score, attempt.TotalPoints, attempt.TimeSpent); got != 0 {
		t.Fatalf("expected bonus clamped to 0, got %d", got)
	}
	if got := app.AttemptScore(attempt); got != attempt.Score {
		t.Fatalf("expected final == base for slow attempt, got %d", got)
	}
}

func TestSpeedBonusRatioCapped(t *testing.T) {
	// A 1-second finish cannot exceed the same 3x ratio as a 60-second one.
	fast := app.SpeedBonus(10, 10, 60)
	instant := app.SpeedBonus(10, 10, 1)
	if instant != fast {
		t.Fatalf("expected capped ratio to equalize bonuses, got %d vs %d", instant, fast)
	}
	// Zero elapsed is treated as one second, not a division blowup.
	if got := app.SpeedBonus(10, 10, 0); got != fast {
		t.Fatalf("expected zero elapsed to clamp to 1s, got %d", got)
	}
}

func TestForumPointsNoCrossContamination(t *testing.T) {
	posts := []domain.ForumPost{
		{ID: "p1", Author: "Sam", Upvotes: []string{"a", "b", "c"}},
		{ID: "p2", Author: "Riley", Upvotes: []string{"a", "b", "c", "d", "e"}},
	}
	points := app.ForumPointsByAuthor(posts, nil)
	if points["Sam"] != 3 || points["Riley"] != 5 {
		t.Fatalf("expected Sam=3 Riley=5, got %+v", points)
	}
}

func TestForumPointsMergeOnSharedDisplayName(t *testing.T) {
	// Known limitation: forum authors are keyed by display name, so two users
	// sharing a name pool their points. Kept for compatibility with the
	// archived data, which records authors by name only.
	posts := []domain.ForumPost{
		{ID: "p1", Author: "Sam", Upvotes: []string{"a", "b"}},
		{ID: "p2", Author: "Sam", Upvotes: []string{"c"}},
	}
	points := app.ForumPointsByAuthor(posts, nil)
	if points["Sam"] != 3 {
		t.Fatalf("expected shared name to accumulate into one bucket, got %+v", points)
	}
}

func TestForumPointsIncludeReplies(t *testing.T) {
	posts := []domain.ForumPost{
		{ID: "p1", Author: "Sam", Upvotes: []string{"a"}},
	}
	replies := []domain.ForumReply{
		{ID: "r1", PostID: "p1", Author: "Sam", Upvotes: []string{"b", "c"}},
		{ID: "r2", PostID: "p1", Author: "", Upvotes: []string{"d"}},
	}
	points := app.ForumPointsByAuthor(posts, replies)
	if points["Sam"] != 3 {
		t.Fatalf("expected Sam=3 across post and reply, got %d", points["Sam"])
	}
	if points[domain.AnonymousAuthor] != 1 {
		t.Fatalf("expected missing author bucketed as Anonymous, got %+v", points)
	}
}

func TestBuildLeaderboardUnionOfDimensions(t *testing.T) {
	in := app.ScoreInputs{
		Posts: []domain.ForumPost{
			{ID: "p1", Author: "ForumOnly", Upvotes: []string{"a", "b"}},
		},
		Attempts: []domain.QuizAttempt{
			{UserName: "QuizOnly", QuizID: "quiz-1", QuizTitle: "Quiz One", Score: 6, TotalPoints: 10, TimeSpent: 3000},
		},
	}
	lb := app.BuildLeaderboard(in, domain.RankMode{Kind: domain.RankOverall}, time.Now(), 0)
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", lb.Entries)
	}
	for _, e := range lb.Entries {
		switch e.UserKey {
		case "ForumOnly":
			if e.ForumPoints != 2 || e.QuizPoints != 0 || e.TotalPoints != 2 {
				t.Fatalf("forum-only entry wrong: %+v", e)
			}
		case "QuizOnly":
			if e.ForumPoints != 0 || e.QuizPoints == 0 {
				t.Fatalf("quiz-only entry wrong: %+v", e)
			}
		default:
			t.Fatalf("unexpected entry %+v", e)
		}
	}
	if len(lb.Quizzes) != 1 || lb.Quizzes[0].Title != "Quiz One" {
		t.Fatalf("expected discovered quiz meta, got %+v", lb.Quizzes)
	}
}

func TestBuildLeaderboardModes(t *testing.T) {
	in := app.ScoreInputs{
		Posts: []domain.ForumPost{
			{ID: "p1", Author: "Alice", Upvotes: []string{"a", "b", "c", "d", "e", "f", "g", "h"}},
		},
		Attempts: []domain.QuizAttempt{
			{UserName: "Alice", QuizID: "quiz-1", Score: 1, TotalPoints: 10, TimeSpent: 5000},
			{UserName: "Bob", QuizID: "quiz-1", Score: 5, TotalPoints: 10, TimeSpent: 5000},
			{UserName: "Bob", QuizID: "quiz-2", Score: 2, TotalPoints: 10, TimeSpent: 5000},
		},
	}

	overall := app.BuildLeaderboard(in, domain.RankMode{Kind: domain.RankOverall}, time.Now(), 0)
	if overall.Entries[0].UserKey != "Alice" {
		t.Fatalf("expected Alice leading overall, got %+v", overall.Entries)
	}

	quizAll := app.BuildLeaderboard(in, domain.RankMode{Kind: domain.RankQuizAll}, time.Now(), 0)
	if quizAll.Entries[0].UserKey != "Bob" {
		t.Fatalf("expected Bob leading quiz-all, got %+v", quizAll.Entries)
	}

	byQuiz := app.BuildLeaderboard(in, domain.RankMode{Kind: domain.RankByQuiz, QuizID: "quiz-2"}, time.Now(), 0)
	if byQuiz.Mode != "quiz:quiz-2" {
		t.Fatalf("unexpected mode string %q", byQuiz.Mode)
	}
	if byQuiz.Entries[0].UserKey != "Bob" || byQuiz.Entries[0].QuizSpecificPoints == 0 {
		t.Fatalf("expected Bob leading quiz-2 with specific points, got %+v", byQuiz.Entries)
	}
	if byQuiz.Entries[1].QuizSpecificPoints != 0 {
		t.Fatalf("expected zero quiz-2 points for Alice, got %+v", byQuiz.Entries[1])
	}

	forum := app.BuildLeaderboard(in, domain.RankMode{Kind: domain.RankForum}, time.Now(), 0)
	if forum.Entries[0].UserKey != "Alice" || forum.Entries[0].ForumPoints != 8 {
		t.Fatalf("expected Alice leading forum, got %+v", forum.Entries)
	}
}

func TestBuildLeaderboardDeterministic(t *testing.T) {
	in := app.ScoreInputs{
		Posts: []domain.ForumPost{
			{ID: "p1", Author: "Zoe", Upvotes: []string{"a"}},
			{ID: "p2", Author: "Amy", Upvotes: []string{"b"}},
			{ID: "p3", Author: "Mia", Upvotes: []string{"c"}},
		},
	}
	now := time.Now()
	first := app.BuildLeaderboard(in, domain.RankMode{Kind: domain.RankOverall}, now, 0)
	second := app.BuildLeaderboard(in, domain.RankMode{Kind: domain.RankOverall}, now, 0)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("recomputation not idempotent:\n%+v\n%+v", first, second)
	}
	// All tied on 1 point: order falls back to user key ascending.
	keys := []string{first.Entries[0].UserKey, first.Entries[1].UserKey, first.Entries[2].UserKey}
	if keys[0] != "Amy" || keys[1] != "Mia" || keys[2] != "Zoe" {
		t.Fatalf("expected tie-break by user key, got %v", keys)
	}
}

func TestBuildLeaderboardEmptyInputs(t *testing.T) {
	lb := app.BuildLeaderboard(app.ScoreInputs{}, domain.RankMode{Kind: domain.RankOverall}, time.Now(), 0)
	if len(lb.Entries) != 0 {
		t.Fatalf("expected empty leaderboard, got %+v", lb.Entries)
	}
}

func TestBuildLeaderboardTopN(t *testing.T) {
	in := app.ScoreInputs{
		Posts: []domain.ForumPost{
			{ID: "p1", Author: "A", Upvotes: []string{"x", "y", "z"}},
			{ID: "p2", Author: "B", Upvotes: []string{"x", "y"}},
			{ID: "p3", Author: "C", Upvotes: []string{"x"}},
		},
	}
	lb := app.BuildLeaderboard(in, domain.RankMode{Kind: domain.RankOverall}, time.Now(), 2)
	if len(lb.Entries) != 2 || lb.Entries[0].UserKey != "A" || lb.Entries[1].UserKey != "B" {
		t.Fatalf("expected top-2 capped board, got %+v", lb.Entries)
	}
}

func TestParseRankMode(t *testing.T) {
	cases := map[string]domain.RankMode{
		"overall":     {Kind: domain.RankOverall},
		"forum":       {Kind: domain.RankForum},
		"quiz-all":    {Kind: domain.RankQuizAll},
		"quiz:quiz-7": {Kind: domain.RankByQuiz, QuizID: "quiz-7"},
		"bogus":       {Kind: domain.RankOverall},
		"":            {Kind: domain.RankOverall},
	}
	for raw, want := range cases {
		if got := domain.ParseRankMode(raw); got != want {
			t.Fatalf("ParseRankMode(%q) = %+v, want %+v", raw, got, want)
		}
	}
}
