package domain

import "errors"

var (
	// ErrNameTaken is returned when a registration name collides with a live player.
	ErrNameTaken = errors.New("name already taken")
	// ErrUnknownPlayer is returned when a caller acts before registering.
	ErrUnknownPlayer = errors.New("player not registered")
	// ErrInvalidBet rejects stakes below the minimum or above the player's balance.
	ErrInvalidBet = errors.New("invalid bet amount")
	// ErrAlreadyBet rejects a second bet within the same round; the first stands.
	ErrAlreadyBet = errors.New("bet already placed this round")
	// ErrAlreadyAnswered rejects a duplicate submission for the same question.
	ErrAlreadyAnswered = errors.New("answer already submitted")
	// ErrWindowClosed rejects bets or answers arriving outside their valid phase.
	ErrWindowClosed = errors.New("window closed")
	// ErrNotShortlisted is terminal for eliminated players attempting any round action.
	ErrNotShortlisted = errors.New("not shortlisted for this round")
	// ErrInvalidTransition rejects admin commands issued in a forbidding state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNoBet is returned when an action requires a stake that was never placed.
	ErrNoBet = errors.New("no bet placed this round")
	// ErrNoQuestions indicates the bank holds no questions for the requested round.
	ErrNoQuestions = errors.New("no questions for round")
	// ErrSessionHalted marks a session frozen by an internal invariant breach;
	// state stays inspectable but no further mutation is accepted.
	ErrSessionHalted = errors.New("session halted by invariant violation")
)
