package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-arena/internal/domain"
)

// LeaderboardArchive keeps the leaderboard snapshot taken at each round end so
// standings survive a process restart and late-joining admin views can replay
// them. One key per round plus a "latest" pointer.
type LeaderboardArchive struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardArchive(client *redis.Client, ttl time.Duration) *LeaderboardArchive {
	return &LeaderboardArchive{client: client, ttl: ttl}
}

func (a *LeaderboardArchive) SaveSnapshot(ctx context.Context, round int, lb domain.Leaderboard) error {
	data, err := json.Marshal(lb)
	if err != nil {
		return err
	}
	pipe := a.client.Pipeline()
	pipe.Set(ctx, a.roundKey(round), data, a.ttl)
	pipe.Set(ctx, a.latestKey(), data, a.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Snapshot returns the archived leaderboard for a round, ok=false when absent.
func (a *LeaderboardArchive) Snapshot(ctx context.Context, round int) (domain.Leaderboard, bool, error) {
	return a.load(ctx, a.roundKey(round))
}

// Latest returns the most recent archived leaderboard.
func (a *LeaderboardArchive) Latest(ctx context.Context) (domain.Leaderboard, bool, error) {
	return a.load(ctx, a.latestKey())
}

func (a *LeaderboardArchive) load(ctx context.Context, key string) (domain.Leaderboard, bool, error) {
	data, err := a.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.Leaderboard{}, false, nil
	}
	if err != nil {
		return domain.Leaderboard{}, false, err
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(data, &lb); err != nil {
		return domain.Leaderboard{}, false, err
	}
	return lb, true, nil
}

func (a *LeaderboardArchive) roundKey(round int) string {
	return "arena:leaderboard:round:" + strconv.Itoa(round)
}

func (a *LeaderboardArchive) latestKey() string {
	return "arena:leaderboard:latest"
}
