package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"portal-score-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// BoardCache stores the latest leaderboard snapshot per rank mode as JSON
// under leaderboard:{mode}. Writes are best-effort from the board's point of
// view; reads let a fresh instance serve a recent board before its own
// recomputation has run.
type BoardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBoardCache(client *redis.Client, ttl time.Duration) *BoardCache {
	return &BoardCache{client: client, ttl: ttl}
}

func (c *BoardCache) StoreSnapshot(ctx context.Context, lb domain.Leaderboard) error {
	raw, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, c.key(lb.Mode), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("store leaderboard %s: %w", lb.Mode, err)
	}
	return nil
}

// LoadSnapshot returns the cached snapshot for a mode, or false when absent.
func (c *BoardCache) LoadSnapshot(ctx context.Context, mode domain.RankMode) (domain.Leaderboard, bool, error) {
	raw, err := c.client.Get(ctx, c.key(mode.String())).Bytes()
	if err == redis.Nil {
		return domain.Leaderboard{}, false, nil
	}
	if err != nil {
		return domain.Leaderboard{}, false, fmt.Errorf("load leaderboard %s: %w", mode, err)
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		return domain.Leaderboard{}, false, fmt.Errorf("unmarshal leaderboard %s: %w", mode, err)
	}
	return lb, true, nil
}

func (c *BoardCache) key(mode string) string {
	return "leaderboard:" + mode
}
