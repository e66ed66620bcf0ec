package game

import (
	"github.com/rs/zerolog"

	"trivia-arena/internal/domain"
)

// Ledger is the only code path allowed to mutate a player's balance. Bet
// validation happens at bet time; settlement happens once per resolved
// question per bettor.
type Ledger struct {
	minimumBet int
	log        zerolog.Logger
}

func NewLedger(minimumBet int, log zerolog.Logger) *Ledger {
	return &Ledger{minimumBet: minimumBet, log: log}
}

// ValidateBet enforces stake bounds against the player's balance at bet time.
func (l *Ledger) ValidateBet(p *domain.Player, amount int) error {
	if amount < l.minimumBet || amount > p.Balance {
		return domain.ErrInvalidBet
	}
	return nil
}

// ApplyResult settles one question: the stake is added on a correct answer and
// subtracted otherwise. A losing settlement that would go negative clamps at
// zero; the clamp is reported for audit, not treated as fatal.
func (l *Ledger) ApplyResult(p *domain.Player, stake int, correct bool) (newBalance int, clamped bool) {
	if correct {
		p.Balance += stake
		return p.Balance, false
	}
	next := p.Balance - stake
	if next < 0 {
		l.log.Warn().
			Str("player_id", p.ID).
			Str("player", p.Name).
			Int("stake", stake).
			Int("balance", p.Balance).
			Msg("losing settlement clamped at zero")
		p.Balance = 0
		return 0, true
	}
	p.Balance = next
	return next, false
}
