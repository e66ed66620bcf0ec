package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trivia-arena/internal/domain"
)

// QuestionRepository is the authoring boundary: questions are immutable once
// created, so only add and list exist.
type QuestionRepository interface {
	AddQuestion(ctx context.Context, q domain.Question) (domain.Question, error)
	ListQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionsHandler exposes the admin question-authoring surface. The
// orchestrator trusts round/payload consistency; the tagged codec rejects
// unknown rounds at decode time.
type QuestionsHandler struct {
	repo       QuestionRepository
	invalidate func(round int)
	log        zerolog.Logger
}

func NewQuestionsHandler(repo QuestionRepository, invalidate func(round int), log zerolog.Logger) *QuestionsHandler {
	if invalidate == nil {
		invalidate = func(int) {}
	}
	return &QuestionsHandler{repo: repo, invalidate: invalidate, log: log}
}

func (h *QuestionsHandler) ServeQuestions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		questions, err := h.repo.ListQuestions(r.Context())
		if err != nil {
			h.log.Error().Err(err).Msg("list questions failed")
			http.Error(w, "list questions failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, questions)
	case http.MethodPost:
		var q domain.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "invalid question: "+err.Error(), http.StatusBadRequest)
			return
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Seconds == 0 {
			q.Seconds = domain.DefaultSeconds(q.Round())
		}
		stored, err := h.repo.AddQuestion(r.Context(), q)
		if err != nil {
			h.log.Error().Err(err).Msg("add question failed")
			http.Error(w, "add question failed", http.StatusInternalServerError)
			return
		}
		h.invalidate(stored.Round())
		h.log.Info().Str("question_id", stored.ID).Int("round", stored.Round()).Msg("question authored")
		writeJSON(w, http.StatusCreated, stored)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
