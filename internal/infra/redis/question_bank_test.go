package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-arena/internal/domain"
	"trivia-arena/internal/infra/memory"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuestionLoader: memory.NewQuestionBank(map[int][]domain.Question{
			1: {sampleQuestion()},
		}),
	}
	cache := NewQuestionCache(client, loader, time.Minute)

	got, err := cache.QuestionsForRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("load round: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(got) != 1 || got[0].Round() != 1 {
		t.Fatalf("unexpected questions %+v", got)
	}

	// Second call should hit redis, loader not incremented.
	got, err = cache.QuestionsForRound(context.Background(), 1)
	if err != nil {
		t.Fatalf("load round again: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	// The tagged payload must survive the round trip, answer key included.
	choice, ok := got[0].Payload.(domain.ChoicePayload)
	if !ok || choice.CorrectIndex != 1 {
		t.Fatalf("payload variant lost in cache round trip: %+v", got[0].Payload)
	}

	cache.Invalidate(context.Background(), 1)
	if mr.Exists("arena:questions:round:1") {
		t.Fatalf("expected cache key removed after invalidate")
	}
}

func TestLeaderboardArchiveRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	archive := NewLeaderboardArchive(newClient(mr), time.Hour)
	ctx := context.Background()

	lb := domain.Leaderboard{
		Entries: []domain.LeaderboardEntry{
			{PlayerID: "p1", Name: "Alice", Balance: 700},
			{PlayerID: "p2", Name: "Bob", Balance: 300, Eliminated: true},
		},
		UpdatedAt: time.Now().UTC(),
	}
	if err := archive.SaveSnapshot(ctx, 1, lb); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	got, ok, err := archive.Snapshot(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("snapshot: ok=%v err=%v", ok, err)
	}
	if len(got.Entries) != 2 || got.Entries[0].Name != "Alice" || !got.Entries[1].Eliminated {
		t.Fatalf("unexpected snapshot %+v", got)
	}

	latest, ok, err := archive.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if latest.Entries[0].Balance != 700 {
		t.Fatalf("unexpected latest %+v", latest)
	}

	if _, ok, _ := archive.Snapshot(ctx, 2); ok {
		t.Fatalf("round 2 snapshot should be absent")
	}
}

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadRound(ctx context.Context, round int) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadRound(ctx, round)
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:      "q1",
		Prompt:  "What is 2 + 2?",
		Seconds: 15,
		Payload: domain.ChoicePayload{Options: []string{"3", "4", "5"}, CorrectIndex: 1},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
