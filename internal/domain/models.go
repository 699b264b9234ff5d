package domain

import (
	"sort"
	"strings"
	"time"
)

// AnonymousAuthor is the bucket used when a record carries no author name.
const AnonymousAuthor = "Anonymous"

// ForumPost is a question thread in the portal forum. Votes are stored as
// voter-id sets; Points is the derived net score persisted alongside them.
type ForumPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Upvotes   []string  `json:"upvotes"`
	Downvotes []string  `json:"downvotes"`
	Points    int       `json:"points"`
}

// ForumReply belongs to exactly one post, referenced by PostID.
type ForumReply struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Upvotes   []string  `json:"upvotes"`
	Downvotes []string  `json:"downvotes"`
	Points    int       `json:"points"`
}

// QuestionType distinguishes how answers are recorded and judged.
type QuestionType string

const (
	SingleChoice   QuestionType = "single"
	MultipleChoice QuestionType = "multiple"
)

// Question models one quiz question. CorrectAnswers holds a single value for
// single-choice questions and the full expected set for multiple-choice.
type Question struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	Type           QuestionType `json:"type"`
	Options        []string     `json:"options,omitempty"`
	CorrectAnswers []string     `json:"correctAnswers"`
	Points         int          `json:"points"` // defaults to 1 if zero
}

// Quiz is an ordered collection of questions with an optional overall time
// limit in seconds. TimeLimit == 0 means the quiz is untimed.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
	TimeLimit   int        `json:"timeLimit,omitempty"`
}

// TotalPoints sums the declared point values of all questions.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		points := question.Points
		if points == 0 {
			points = 1
		}
		total += points
	}
	return total
}

// QuizAttempt records one completed pass over a quiz. Attempts are immutable
// once written; repeat attempts are retained and all count toward totals.
type QuizAttempt struct {
	ID          string              `json:"id,omitempty"`
	UserID      string              `json:"userId"`
	UserName    string              `json:"userName"`
	QuizID      string              `json:"quizId"`
	QuizTitle   string              `json:"quizTitle"`
	Answers     map[string][]string `json:"answers"`
	Score       int                 `json:"score"`
	TotalPoints int                 `json:"totalPoints"`
	TimeSpent   int                 `json:"timeSpent"` // seconds
	CompletedAt time.Time           `json:"completedAt"`
}

// QuizMeta identifies a quiz for per-quiz leaderboard views.
type QuizMeta struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// RankKind names the metric ordering the leaderboard.
type RankKind string

const (
	RankOverall RankKind = "overall"
	RankForum   RankKind = "forum"
	RankQuizAll RankKind = "quiz-all"
	RankByQuiz  RankKind = "quiz"
)

// RankMode selects which metric orders the leaderboard. QuizID is set only
// for RankByQuiz.
type RankMode struct {
	Kind   RankKind `json:"kind"`
	QuizID string   `json:"quizId,omitempty"`
}

// ParseRankMode interprets the wire form of a mode: "overall", "forum",
// "quiz-all", or "quiz:<quizId>". Unknown values fall back to overall.
func ParseRankMode(raw string) RankMode {
	switch raw {
	case string(RankForum):
		return RankMode{Kind: RankForum}
	case string(RankQuizAll):
		return RankMode{Kind: RankQuizAll}
	}
	if id, ok := strings.CutPrefix(raw, "quiz:"); ok && id != "" {
		return RankMode{Kind: RankByQuiz, QuizID: id}
	}
	return RankMode{Kind: RankOverall}
}

// String renders the mode back to its wire form.
func (m RankMode) String() string {
	if m.Kind == RankByQuiz {
		return "quiz:" + m.QuizID
	}
	if m.Kind == "" {
		return string(RankOverall)
	}
	return string(m.Kind)
}

// LeaderboardEntry is the derived per-user projection. QuizSpecificPoints is
// populated only when the active mode targets a single quiz.
type LeaderboardEntry struct {
	UserKey            string `json:"userKey"`
	DisplayName        string `json:"displayName"`
	ForumPoints        int    `json:"forumPoints"`
	QuizPoints         int    `json:"quizPoints"`
	TotalPoints        int    `json:"totalPoints"`
	QuizSpecificPoints int    `json:"quizSpecificPoints,omitempty"`
}

// Leaderboard is an ordered snapshot for one rank mode.
type Leaderboard struct {
	Mode      string             `json:"mode"`
	Entries   []LeaderboardEntry `json:"entries"`
	Quizzes   []QuizMeta         `json:"quizzes,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// VoteDirection is the toggle requested by a voter.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// SortedCopy returns a sorted copy of values, used for order-independent
// answer-set comparison.
func SortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
