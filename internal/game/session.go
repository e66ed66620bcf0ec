package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"trivia-arena/internal/domain"
)

// Gateway delivers orchestrator events to connected clients. Publishing is
// fire-and-forget and must never block; clients that miss an event recover via
// the state snapshot query.
type Gateway interface {
	Publish(evt domain.Event)
}

// QuestionBank supplies immutable questions grouped by round, in serving order.
// The orchestrator trusts round/payload consistency.
type QuestionBank interface {
	QuestionsForRound(ctx context.Context, round int) ([]domain.Question, error)
}

// Archiver persists round-end leaderboard snapshots. Optional; failures are
// logged, never surfaced to game flow.
type Archiver interface {
	SaveSnapshot(ctx context.Context, round int, lb domain.Leaderboard) error
}

// Config carries the tunable game constants.
type Config struct {
	InitialBalance int
	MinimumBet     int
	ShortlistSize  int
	TotalRounds    int
	// RoundSeconds overrides the per-round question duration; zero entries
	// fall back to the round defaults.
	RoundSeconds map[int]int
}

// DefaultConfig mirrors the production game: 500 starting points, 100 minimum
// stake, top 5 shortlisted, three rounds.
func DefaultConfig() Config {
	return Config{
		InitialBalance: 500,
		MinimumBet:     100,
		ShortlistSize:  5,
		TotalRounds:    3,
	}
}

// Session is the authoritative orchestrator for one live game. It is the
// single owner of all mutable game state: every state-changing operation,
// including clock expiry, is serialized under one lock. Read-only queries are
// served from consistent snapshots under the read lock.
type Session struct {
	cfg     Config
	clock   clockwork.Clock
	gateway Gateway
	bank    QuestionBank
	archive Archiver
	ledger  *Ledger
	log     zerolog.Logger

	countdown *Countdown

	mu        sync.RWMutex
	halted    bool
	phase     domain.SessionPhase
	players   map[string]*domain.Player
	order     []string // registration order
	nextSeq   int
	roundNum  int
	completed int // last fully ended round
	round     *round
	shortlist []string
}

// Option customizes a Session at construction.
type Option func(*Session)

// WithClock substitutes the time source; tests pass a fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithArchiver enables round-end leaderboard snapshot persistence.
func WithArchiver(a Archiver) Option {
	return func(s *Session) { s.archive = a }
}

// WithLogger replaces the default no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

func NewSession(cfg Config, bank QuestionBank, gateway Gateway, opts ...Option) *Session {
	if cfg.TotalRounds == 0 {
		cfg.TotalRounds = 3
	}
	s := &Session{
		cfg:     cfg,
		clock:   clockwork.NewRealClock(),
		gateway: gateway,
		bank:    bank,
		log:     zerolog.Nop(),
		phase:   domain.SessionWaiting,
		players: make(map[string]*domain.Player),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = NewLedger(cfg.MinimumBet, s.log)
	s.countdown = NewCountdown(s.clock)
	return s
}

// RegisterPlayer mints a player with the configured starting balance. Names
// are unique (case-sensitive) across all currently registered players.
func (s *Session) RegisterPlayer(name string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return domain.Player{}, domain.ErrSessionHalted
	}
	if name == "" {
		return domain.Player{}, domain.ErrNameTaken
	}
	for _, p := range s.players {
		if p.Name == name {
			return domain.Player{}, domain.ErrNameTaken
		}
	}
	p := &domain.Player{
		ID:           uuid.NewString(),
		Name:         name,
		Balance:      s.cfg.InitialBalance,
		Seq:          s.nextSeq,
		RegisteredAt: s.clock.Now(),
	}
	s.nextSeq++
	s.players[p.ID] = p
	s.order = append(s.order, p.ID)

	s.log.Info().Str("player_id", p.ID).Str("player", name).Msg("player registered")
	s.publish(domain.Event{
		Audience: domain.ToAll(),
		Type:     domain.EventPointsUpdate,
		Payload:  domain.PointsUpdatePayload{PlayerID: p.ID, Name: p.Name, Balance: p.Balance},
	})
	return *p, nil
}

// StartRound opens round n for betting. Valid only from Waiting or
// BetweenRounds, and only for the next expected round; skipping is rejected.
func (s *Session) StartRound(ctx context.Context, n int) error {
	// Question loading may hit a remote store; keep it outside the lock and
	// re-validate the transition afterwards.
	questions, err := s.bank.QuestionsForRound(ctx, n)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return domain.ErrSessionHalted
	}
	if s.phase != domain.SessionWaiting && s.phase != domain.SessionBetweenRounds {
		return domain.ErrInvalidTransition
	}
	if n != s.completed+1 || n > s.cfg.TotalRounds {
		return domain.ErrInvalidTransition
	}

	for _, p := range s.players {
		p.HasBet = false
	}
	s.phase = domain.SessionInRound
	s.roundNum = n
	s.round = newRound(n, questions)
	s.round.openBetting()

	s.log.Info().Int("round", n).Int("questions", len(questions)).Msg("round started")
	s.publish(domain.Event{
		Audience: domain.ToAll(),
		Type:     domain.EventRoundStarted,
		Payload:  domain.RoundStartedPayload{Round: n, MinimumBet: s.cfg.MinimumBet},
	})
	return nil
}

// PlaceBet stakes a player's points for the current round. Validation happens
// here, at bet time; the balance itself moves only at settlement.
func (s *Session) PlaceBet(playerID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return domain.ErrSessionHalted
	}
	p, ok := s.players[playerID]
	if !ok {
		return domain.ErrUnknownPlayer
	}
	if p.Eliminated {
		return domain.ErrNotShortlisted
	}
	if s.phase != domain.SessionInRound {
		return domain.ErrWindowClosed
	}
	if err := s.round.placeBet(p, amount, s.clock.Now(), s.ledger); err != nil {
		return err
	}
	s.log.Info().Str("player", p.Name).Int("amount", amount).Int("round", s.roundNum).Msg("bet placed")
	return nil
}

// AdvanceQuestion moves the round forward: from BettingOpen to the first
// question, or from Revealing to the next. When the round is exhausted it ends
// the round instead.
func (s *Session) AdvanceQuestion(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return domain.ErrSessionHalted
	}
	if s.phase != domain.SessionInRound {
		return domain.ErrInvalidTransition
	}
	if s.round.phase != domain.RoundBettingOpen && s.round.phase != domain.RoundRevealing {
		return domain.ErrInvalidTransition
	}

	q, ok := s.round.nextQuestion()
	if !ok {
		s.endRoundLocked(ctx)
		return nil
	}
	s.activateQuestionLocked(q)
	return nil
}

func (s *Session) activateQuestionLocked(q domain.Question) {
	seconds := s.effectiveSeconds(q)
	roundNum, qIndex := s.roundNum, s.round.qIndex
	s.countdown.Start(time.Duration(seconds)*time.Second, func() {
		s.questionExpired(roundNum, qIndex)
	})

	view := q.View()
	view.Seconds = seconds
	s.log.Info().Int("round", roundNum).Int("question", qIndex).Int("seconds", seconds).Msg("question active")
	s.publish(domain.Event{
		Audience: domain.ToAll(),
		Type:     domain.EventQuestionPosted,
		Payload:  domain.QuestionPostedPayload{Question: view, Seconds: seconds},
	})
}

func (s *Session) effectiveSeconds(q domain.Question) int {
	if override := s.cfg.RoundSeconds[q.Round()]; override > 0 {
		return override
	}
	if q.Seconds > 0 {
		return q.Seconds
	}
	return domain.DefaultSeconds(q.Round())
}

// questionExpired is the countdown callback. It enters the same ordering
// domain as bets and answers: whatever was accepted before this runs counts,
// everything after is rejected.
func (s *Session) questionExpired(roundNum, qIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted || s.phase != domain.SessionInRound || s.round == nil {
		return
	}
	// Stale expiry from a superseded question is ignored.
	if s.roundNum != roundNum || s.round.qIndex != qIndex || s.round.phase != domain.RoundQuestionActive {
		return
	}
	s.revealLocked()
}

// SubmitAnswer records a player's response for the active question. Accepting
// it may trigger the early reveal when every bettor has now answered.
func (s *Session) SubmitAnswer(playerID string, resp domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return domain.ErrSessionHalted
	}
	p, ok := s.players[playerID]
	if !ok {
		return domain.ErrUnknownPlayer
	}
	if p.Eliminated {
		return domain.ErrNotShortlisted
	}
	if s.phase != domain.SessionInRound {
		return domain.ErrWindowClosed
	}
	if err := s.round.submitAnswer(p, resp, s.clock.Now()); err != nil {
		return err
	}
	if s.round.allBettorsAnswered() {
		s.countdown.Stop()
		s.revealLocked()
	}
	return nil
}

// revealLocked settles the active question for every bettor: evaluate the
// submission (absence is incorrect), move the stake through the ledger exactly
// once, and announce each player's verdict and new balance.
func (s *Session) revealLocked() {
	s.round.startReveal()
	q, ok := s.round.currentQuestion()
	if !ok {
		return
	}

	for _, playerID := range s.order {
		bet, isBettor := s.round.bets[playerID]
		if !isBettor {
			continue
		}
		p := s.players[playerID]

		var subPtr *domain.AnswerSubmission
		if sub, answered := s.round.submission(q.ID, playerID); answered {
			subPtr = &sub
		}
		verdict := Evaluate(q, subPtr)
		before := p.Balance
		balance, clamped := s.ledger.ApplyResult(p, bet.Amount, verdict.Correct)
		if p.Balance < 0 {
			// The ledger clamps losing settlements; a negative balance here is
			// a bug, and the session freezes rather than guessing.
			s.haltLocked("negative balance after settlement", p)
			return
		}
		if clamped {
			s.publish(domain.Event{
				Audience: domain.ToAdmin(),
				Type:     domain.EventBalanceClamped,
				Payload: domain.BalanceClampedPayload{
					PlayerID:   playerID,
					QuestionID: q.ID,
					Stake:      bet.Amount,
					Before:     before,
				},
			})
		}

		s.publish(domain.Event{
			Audience: domain.ToPlayer(playerID),
			Type:     domain.EventPlayerResult,
			Payload: domain.PlayerResultPayload{
				QuestionID:    q.ID,
				Correct:       verdict.Correct,
				Answered:      verdict.Answered,
				CorrectIndex:  verdict.CorrectIndex,
				CorrectAnswer: verdict.CorrectAnswer,
				Delta:         balance - before,
				Balance:       balance,
			},
		})
		s.publish(domain.Event{
			Audience: domain.ToAll(),
			Type:     domain.EventPointsUpdate,
			Payload:  domain.PointsUpdatePayload{PlayerID: playerID, Name: p.Name, Balance: balance},
		})
	}

	s.publish(domain.Event{
		Audience: domain.ToAdmin(),
		Type:     domain.EventLeaderboard,
		Payload:  s.leaderboardLocked(),
	})
}

// Pause suspends the countdown for the active question without resetting
// elapsed time. Idempotent; administrative commands stay live while paused.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil || s.round.phase != domain.RoundQuestionActive || s.countdown.Paused() {
		return
	}
	s.countdown.Pause()
	s.publish(domain.Event{
		Audience: domain.ToAll(),
		Type:     domain.EventCountdownPaused,
		Payload:  domain.CountdownPausedPayload{RemainingMillis: s.countdown.Remaining().Milliseconds()},
	})
}

// Resume re-arms a paused countdown. Idempotent.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.countdown.Paused() {
		return
	}
	s.countdown.Resume()
	s.publish(domain.Event{
		Audience: domain.ToAll(),
		Type:     domain.EventCountdownResumed,
		Payload:  domain.CountdownResumedPayload{RemainingMillis: s.countdown.Remaining().Milliseconds()},
	})
}

// EndRound force-ends the current round regardless of the question pointer,
// applying the same between-rounds policy as natural exhaustion.
func (s *Session) EndRound(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted {
		return domain.ErrSessionHalted
	}
	if s.phase != domain.SessionInRound {
		return domain.ErrInvalidTransition
	}
	s.countdown.Stop()
	s.endRoundLocked(ctx)
	return nil
}

// endRoundLocked runs the between-rounds policy: archive and broadcast the
// leaderboard, shortlist the top K by balance, and flag everyone else
// eliminated. After the final round the standings are final, so no shortlist
// is taken and the session finishes instead.
func (s *Session) endRoundLocked(ctx context.Context) {
	endedRound := s.roundNum
	s.round.end()
	s.completed = endedRound

	lb := s.leaderboardLocked()
	if s.archive != nil {
		if err := s.archive.SaveSnapshot(ctx, endedRound, lb); err != nil {
			s.log.Error().Err(err).Int("round", endedRound).Msg("leaderboard archive failed")
		}
	}
	s.publish(domain.Event{Audience: domain.ToAll(), Type: domain.EventRoundEnded, Payload: domain.RoundEndedPayload{Round: endedRound}})
	s.publish(domain.Event{Audience: domain.ToAll(), Type: domain.EventLeaderboard, Payload: lb})

	if endedRound >= s.cfg.TotalRounds {
		s.log.Info().Int("round", endedRound).Msg("final round ended")
		s.phase = domain.SessionFinished
		s.publish(domain.Event{
			Audience: domain.ToAll(),
			Type:     domain.EventSessionFinished,
			Payload:  domain.SessionFinishedPayload{Leaderboard: lb},
		})
		return
	}

	shortlist := s.computeShortlistLocked()
	s.shortlist = make([]string, 0, len(shortlist))
	entries := make([]domain.ShortlistEntry, 0, len(shortlist))
	for _, p := range shortlist {
		s.shortlist = append(s.shortlist, p.ID)
		entries = append(entries, domain.ShortlistEntry{PlayerID: p.ID, Name: p.Name, Balance: p.Balance})
	}
	s.publish(domain.Event{
		Audience: domain.ToAll(),
		Type:     domain.EventShortlist,
		Payload:  domain.ShortlistPayload{AfterRound: endedRound, Entries: entries},
	})
	s.log.Info().Int("round", endedRound).Int("shortlisted", len(shortlist)).Msg("round ended")
	s.phase = domain.SessionBetweenRounds
}

// computeShortlistLocked selects the top K remaining players by balance,
// registration order breaking ties, and sets the elimination flag on the rest.
// K at or above the remaining player count eliminates nobody.
func (s *Session) computeShortlistLocked() []*domain.Player {
	remaining := make([]*domain.Player, 0, len(s.players))
	for _, id := range s.order {
		if p := s.players[id]; !p.Eliminated {
			remaining = append(remaining, p)
		}
	}
	sort.SliceStable(remaining, func(i, j int) bool {
		if remaining[i].Balance != remaining[j].Balance {
			return remaining[i].Balance > remaining[j].Balance
		}
		return remaining[i].Seq < remaining[j].Seq
	})

	k := s.cfg.ShortlistSize
	if k <= 0 || k >= len(remaining) {
		return remaining
	}
	for _, p := range remaining[k:] {
		p.Eliminated = true
		s.log.Info().Str("player", p.Name).Int("balance", p.Balance).Msg("player eliminated")
	}
	return remaining[:k]
}

// ClearPlayers resets the session to Waiting, discarding all players, bets,
// submissions and round state. The question bank is admin content and is
// never touched. Valid at any time, including after a halt.
func (s *Session) ClearPlayers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countdown.Stop()
	s.halted = false
	s.phase = domain.SessionWaiting
	s.players = make(map[string]*domain.Player)
	s.order = nil
	s.nextSeq = 0
	s.roundNum = 0
	s.completed = 0
	s.round = nil
	s.shortlist = nil
	s.log.Info().Msg("all players cleared")
	s.publish(domain.Event{Audience: domain.ToAll(), Type: domain.EventPlayersCleared, Payload: struct{}{}})
}

// Leaderboard returns players ordered by balance descending, ties broken by
// registration order. The earliest-registered-first tie-break is a deliberate,
// documented choice.
func (s *Session) Leaderboard() domain.Leaderboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboardLocked()
}

func (s *Session) leaderboardLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(s.players))
	for _, id := range s.order {
		p := s.players[id]
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:   p.ID,
			Name:       p.Name,
			Balance:    p.Balance,
			Eliminated: p.Eliminated,
		})
	}
	// order is registration-sequenced already, so the stable sort applies the
	// documented tie-break for free.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Balance > entries[j].Balance
	})
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.clock.Now()}
}

// StateSnapshot serves the idempotent recovery query: the complete current
// state as one consistent read, re-derivable at any time.
func (s *Session) StateSnapshot(playerID string) domain.StateSnapshotPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.StateSnapshotPayload{
		Phase:       s.phase.String(),
		Leaderboard: s.leaderboardLocked(),
	}
	if s.phase == domain.SessionInRound && s.round != nil {
		snap.Round = s.roundNum
		snap.RoundPhase = s.round.phase.String()
		if q, ok := s.round.currentQuestion(); ok && s.round.phase == domain.RoundQuestionActive {
			view := q.View()
			view.Seconds = s.effectiveSeconds(q)
			snap.Question = &view
			snap.RemainingMillis = s.countdown.Remaining().Milliseconds()
			snap.Paused = s.countdown.Paused()
		}
	}
	if p, ok := s.players[playerID]; ok {
		snap.You = &domain.YouPayload{
			PlayerID:   p.ID,
			Name:       p.Name,
			Balance:    p.Balance,
			HasBet:     p.HasBet,
			Eliminated: p.Eliminated,
		}
	}
	return snap
}

// Halted reports whether the session froze on an invariant breach.
func (s *Session) Halted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.halted
}

// haltLocked freezes the session. State stays inspectable through read
// queries; every further mutation is rejected with ErrSessionHalted.
func (s *Session) haltLocked(reason string, p *domain.Player) {
	s.halted = true
	s.countdown.Stop()
	evt := s.log.Error().Str("reason", reason)
	if p != nil {
		evt = evt.Str("player_id", p.ID).Int("balance", p.Balance)
	}
	evt.Msg("session halted on invariant violation")
}

func (s *Session) publish(evt domain.Event) {
	if s.gateway != nil {
		s.gateway.Publish(evt)
	}
}
