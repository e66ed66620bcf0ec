package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-arena/internal/domain"
)

// QuestionStore persists authored questions as jsonb. The serial position
// column makes insertion order the serving order within each round.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) LoadRound(ctx context.Context, round int) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions WHERE round=$1 ORDER BY position`, round)
	if err != nil {
		return nil, fmt.Errorf("load round %d: %w", round, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *QuestionStore) AddQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return domain.Question{}, fmt.Errorf("marshal question: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO questions (id, round, data) VALUES ($1, $2, $3::jsonb)`,
		q.ID, q.Round(), string(data))
	if err != nil {
		return domain.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

func (s *QuestionStore) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions ORDER BY round, position`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
