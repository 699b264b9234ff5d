package app

import (
	"sort"
	"time"

	"portal-score-service/internal/domain"
)

// Speed bonus heuristic: a quiz is budgeted at ~2 minutes per point, and
// finishing faster than the budget earns up to a 20% bonus on the raw score.
const (
	estimatedSecondsPerPoint = 120
	maxSpeedRatio            = 3.0
	speedBonusFactor         = 0.2
)

// ScoreInputs is the raw material the aggregator projects a leaderboard from.
type ScoreInputs struct {
	Posts    []domain.ForumPost
	Replies  []domain.ForumReply
	Attempts []domain.QuizAttempt
}

// SpeedBonus computes the bonus points for one attempt. The ratio of budgeted
// time to actual time is capped at 3x, and the bonus never goes negative: an
// attempt slower than the budget earns zero bonus rather than a penalty.
func SpeedBonus(score, totalPoints, timeSpentSeconds int) int {
	total := totalPoints
	if total <= 0 {
		total = 10
	}
	estimated := float64(total * estimatedSecondsPerPoint)
	elapsed := timeSpentSeconds
	if elapsed < 1 {
		elapsed = 1
	}
	ratio := estimated / float64(elapsed)
	if ratio > maxSpeedRatio {
		ratio = maxSpeedRatio
	}
	bonus := int((ratio - 1) * float64(score) * speedBonusFactor)
	if bonus < 0 {
		bonus = 0
	}
	return bonus
}

// AttemptScore is the bonus-adjusted score an attempt contributes to totals.
func AttemptScore(a domain.QuizAttempt) int {
	return a.Score + SpeedBonus(a.Score, a.TotalPoints, a.TimeSpent)
}

// ForumPointsByAuthor sums upvote counts per author across posts and replies.
// Records without an author fall into the Anonymous bucket.
func ForumPointsByAuthor(posts []domain.ForumPost, replies []domain.ForumReply) map[string]int {
	points := make(map[string]int)
	for _, p := range posts {
		points[authorKey(p.Author)] += len(p.Upvotes)
	}
	for _, r := range replies {
		points[authorKey(r.Author)] += len(r.Upvotes)
	}
	return points
}

func authorKey(name string) string {
	if name == "" {
		return domain.AnonymousAuthor
	}
	return name
}

// quizTotals accumulates bonus-adjusted attempt scores, both globally and
// bucketed per quiz, and collects the quiz metadata seen along the way.
type quizTotals struct {
	all    map[string]int
	byQuiz map[string]map[string]int
	meta   []domain.QuizMeta
}

func quizPointsByUser(attempts []domain.QuizAttempt) quizTotals {
	totals := quizTotals{
		all:    make(map[string]int),
		byQuiz: make(map[string]map[string]int),
	}
	seen := make(map[string]bool)
	for _, a := range attempts {
		name := a.UserName
		if name == "" {
			name = a.UserID
		}
		name = authorKey(name)

		quizID := a.QuizID
		if quizID == "" {
			quizID = "quiz"
		}

		final := AttemptScore(a)
		totals.all[name] += final
		if totals.byQuiz[quizID] == nil {
			totals.byQuiz[quizID] = make(map[string]int)
		}
		totals.byQuiz[quizID][name] += final

		if !seen[quizID] {
			seen[quizID] = true
			title := a.QuizTitle
			if title == "" {
				title = quizID
			}
			totals.meta = append(totals.meta, domain.QuizMeta{ID: quizID, Title: title})
		}
	}
	sort.Slice(totals.meta, func(i, j int) bool { return totals.meta[i].ID < totals.meta[j].ID })
	return totals
}

// BuildLeaderboard rebuilds the full entry set from scratch and sorts it by
// the metric the mode selects. Entries are the union of every author seen in
// forum or quiz data; a user active in only one dimension still appears with
// zeros in the other. Ties break on user key ascending so repeated runs over
// the same input produce identical order.
func BuildLeaderboard(in ScoreInputs, mode domain.RankMode, now time.Time, topN int) domain.Leaderboard {
	forum := ForumPointsByAuthor(in.Posts, in.Replies)
	quiz := quizPointsByUser(in.Attempts)

	users := make(map[string]bool)
	for name := range forum {
		users[name] = true
	}
	for name := range quiz.all {
		users[name] = true
	}
	for _, bucket := range quiz.byQuiz {
		for name := range bucket {
			users[name] = true
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for name := range users {
		entry := domain.LeaderboardEntry{
			UserKey:     name,
			DisplayName: name,
			ForumPoints: forum[name],
			QuizPoints:  quiz.all[name],
		}
		entry.TotalPoints = entry.ForumPoints + entry.QuizPoints
		if mode.Kind == domain.RankByQuiz {
			if bucket := quiz.byQuiz[mode.QuizID]; bucket != nil {
				entry.QuizSpecificPoints = bucket[name]
			}
		}
		entries = append(entries, entry)
	}

	metric := func(e domain.LeaderboardEntry) int {
		switch mode.Kind {
		case domain.RankForum:
			return e.ForumPoints
		case domain.RankQuizAll:
			return e.QuizPoints
		case domain.RankByQuiz:
			return e.QuizSpecificPoints
		default:
			return e.TotalPoints
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if mi, mj := metric(entries[i]), metric(entries[j]); mi != mj {
			return mi > mj
		}
		return entries[i].UserKey < entries[j].UserKey
	})

	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}

	return domain.Leaderboard{
		Mode:      mode.String(),
		Entries:   entries,
		Quizzes:   quiz.meta,
		UpdatedAt: now,
	}
}
