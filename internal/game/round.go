package game

import (
	"time"

	"trivia-arena/internal/domain"
)

// round is the state machine for one round instance. All methods run under the
// session's lock; round itself holds none.
//
// Betting is once per round, by design: the stake placed while betting is open
// backs every question in the round, and each question settles independently
// against that same stake (double-or-nothing per question, not a pool).
type round struct {
	number    int
	phase     domain.RoundPhase
	questions []domain.Question
	qIndex    int // forward-only
	bets      map[string]domain.Bet
	// answers holds accepted submissions per question, keyed by player.
	answers map[string]map[string]domain.AnswerSubmission
}

func newRound(number int, questions []domain.Question) *round {
	return &round{
		number:    number,
		phase:     domain.RoundNotStarted,
		questions: questions,
		bets:      make(map[string]domain.Bet),
		answers:   make(map[string]map[string]domain.AnswerSubmission),
	}
}

func (r *round) openBetting() {
	r.phase = domain.RoundBettingOpen
}

// placeBet accepts exactly one stake per player while betting is open. A
// second attempt is rejected, never overwritten.
func (r *round) placeBet(p *domain.Player, amount int, now time.Time, ledger *Ledger) error {
	if r.phase != domain.RoundBettingOpen {
		return domain.ErrWindowClosed
	}
	if p.HasBet {
		return domain.ErrAlreadyBet
	}
	if _, dup := r.bets[p.ID]; dup {
		return domain.ErrAlreadyBet
	}
	if err := ledger.ValidateBet(p, amount); err != nil {
		return err
	}
	r.bets[p.ID] = domain.Bet{
		PlayerID: p.ID,
		Round:    r.number,
		Amount:   amount,
		PlacedAt: now,
	}
	p.HasBet = true
	return nil
}

// nextQuestion advances the question pointer and reports the question to
// activate, or ok=false when the round is exhausted. Valid from BettingOpen
// (serves the first question) and from Revealing (serves the next).
func (r *round) nextQuestion() (domain.Question, bool) {
	switch r.phase {
	case domain.RoundBettingOpen:
		r.qIndex = 0
	case domain.RoundRevealing:
		r.qIndex++
	default:
		return domain.Question{}, false
	}
	if r.qIndex >= len(r.questions) {
		return domain.Question{}, false
	}
	r.phase = domain.RoundQuestionActive
	return r.questions[r.qIndex], true
}

func (r *round) currentQuestion() (domain.Question, bool) {
	if r.phase != domain.RoundQuestionActive && r.phase != domain.RoundRevealing {
		return domain.Question{}, false
	}
	if r.qIndex >= len(r.questions) {
		return domain.Question{}, false
	}
	return r.questions[r.qIndex], true
}

// submitAnswer accepts at most one response per bettor for the active
// question. Anything arriving outside QuestionActive is rejected; the window
// never reopens for this question.
func (r *round) submitAnswer(p *domain.Player, resp domain.Response, now time.Time) error {
	if r.phase != domain.RoundQuestionActive {
		return domain.ErrWindowClosed
	}
	if _, ok := r.bets[p.ID]; !ok {
		return domain.ErrNoBet
	}
	q := r.questions[r.qIndex]
	byPlayer, ok := r.answers[q.ID]
	if !ok {
		byPlayer = make(map[string]domain.AnswerSubmission)
		r.answers[q.ID] = byPlayer
	}
	if _, dup := byPlayer[p.ID]; dup {
		return domain.ErrAlreadyAnswered
	}
	byPlayer[p.ID] = domain.AnswerSubmission{
		PlayerID:    p.ID,
		QuestionID:  q.ID,
		Response:    resp,
		SubmittedAt: now,
	}
	return nil
}

// submission returns the accepted answer for a player on the given question.
func (r *round) submission(questionID, playerID string) (domain.AnswerSubmission, bool) {
	byPlayer, ok := r.answers[questionID]
	if !ok {
		return domain.AnswerSubmission{}, false
	}
	sub, ok := byPlayer[playerID]
	return sub, ok
}

// allBettorsAnswered reports whether every bettor has answered the active
// question; used for the optional early reveal. Expiry remains authoritative.
func (r *round) allBettorsAnswered() bool {
	if r.phase != domain.RoundQuestionActive || len(r.bets) == 0 {
		return false
	}
	byPlayer := r.answers[r.questions[r.qIndex].ID]
	for playerID := range r.bets {
		if _, ok := byPlayer[playerID]; !ok {
			return false
		}
	}
	return true
}

func (r *round) startReveal() {
	r.phase = domain.RoundRevealing
}

func (r *round) end() {
	r.phase = domain.RoundEnded
}
