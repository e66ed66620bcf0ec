package memory

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-arena/internal/domain"
)

// QuestionLoader fetches a round's questions from a backing store.
type QuestionLoader interface {
	LoadRound(ctx context.Context, round int) ([]domain.Question, error)
}

// QuestionCache fronts a loader with a TTL cache to avoid repeated store hits
// while rounds are running. Entries expire with jitter to spread reloads.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int]cachedRound
}

type cachedRound struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedRound),
	}
}

func (c *QuestionCache) QuestionsForRound(ctx context.Context, round int) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[round]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(roundKey(round), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[round]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.LoadRound(ctx, round)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[round] = cachedRound{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops a round's cache entry so freshly authored questions are
// picked up before the TTL lapses.
func (c *QuestionCache) Invalidate(round int) {
	c.mu.Lock()
	delete(c.cache, round)
	c.mu.Unlock()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func roundKey(round int) string {
	return "round:" + strconv.Itoa(round)
}

// QuestionBank is an in-memory question store: loader and authoring target in
// one, used when no database is configured and in tests. Insertion order per
// round is serving order.
type QuestionBank struct {
	mu     sync.RWMutex
	rounds map[int][]domain.Question
}

func NewQuestionBank(rounds map[int][]domain.Question) *QuestionBank {
	if rounds == nil {
		rounds = make(map[int][]domain.Question)
	}
	return &QuestionBank{rounds: rounds}
}

func (b *QuestionBank) LoadRound(_ context.Context, round int) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	questions := b.rounds[round]
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out, nil
}

// QuestionsForRound lets the bank double as an uncached game.QuestionBank.
func (b *QuestionBank) QuestionsForRound(ctx context.Context, round int) ([]domain.Question, error) {
	return b.LoadRound(ctx, round)
}

// AddQuestion appends an authored question to its round.
func (b *QuestionBank) AddQuestion(_ context.Context, q domain.Question) (domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	round := q.Round()
	b.rounds[round] = append(b.rounds[round], q)
	return q, nil
}

// ListQuestions returns the whole bank, grouped by round in serving order.
func (b *QuestionBank) ListQuestions(_ context.Context) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rounds := make([]int, 0, len(b.rounds))
	for r := range b.rounds {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)
	var out []domain.Question
	for _, r := range rounds {
		out = append(out, b.rounds[r]...)
	}
	return out, nil
}
