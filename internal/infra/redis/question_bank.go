package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-arena/internal/domain"
	"trivia-arena/internal/infra/memory"
)

// QuestionCache caches each round's question list in Redis as JSON and falls
// back to a loader on miss. The tagged question codec round-trips the
// per-round payload variants, canonical answers included, so the cache key
// must never be exposed to clients.
type QuestionCache struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) QuestionsForRound(ctx context.Context, round int) ([]domain.Question, error) {
	key := c.roundKey(round)

	if questions, ok := c.fromCache(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.fromCache(ctx, key); ok {
			return questions, nil
		}

		questions, err := c.loader.LoadRound(ctx, round)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		// best-effort fill; a failed write just means a reload next time
		_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops a round's cached questions after authoring.
func (c *QuestionCache) Invalidate(ctx context.Context, round int) {
	_ = c.client.Del(ctx, c.roundKey(round)).Err()
}

func (c *QuestionCache) fromCache(ctx context.Context, key string) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (c *QuestionCache) roundKey(round int) string {
	return "arena:questions:round:" + strconv.Itoa(round)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
