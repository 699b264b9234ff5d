package redis

import (
	"context"
	"testing"
	"time"

	"portal-score-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestBoardCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewBoardCache(newClient(mr), time.Minute)
	lb := domain.Leaderboard{
		Mode: "quiz:quiz-1",
		Entries: []domain.LeaderboardEntry{
			{UserKey: "Alice", DisplayName: "Alice", QuizPoints: 14, TotalPoints: 14, QuizSpecificPoints: 14},
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := cache.StoreSnapshot(context.Background(), lb); err != nil {
		t.Fatalf("store: %v", err)
	}
	if !mr.Exists("leaderboard:quiz:quiz-1") {
		t.Fatalf("expected snapshot key set")
	}

	loaded, ok, err := cache.LoadSnapshot(context.Background(), domain.RankMode{Kind: domain.RankByQuiz, QuizID: "quiz-1"})
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(loaded.Entries) != 1 || loaded.Entries[0].QuizSpecificPoints != 14 {
		t.Fatalf("snapshot lost data: %+v", loaded)
	}
}

func TestBoardCacheMissingSnapshot(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cache := NewBoardCache(newClient(mr), time.Minute)
	_, ok, err := cache.LoadSnapshot(context.Background(), domain.RankMode{Kind: domain.RankOverall})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatalf("expected cache miss")
	}
}
