package game_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"trivia-arena/internal/domain"
	"trivia-arena/internal/game"
	"trivia-arena/internal/infra/memory"
)

func TestRegisterRejectsDuplicateName(t *testing.T) {
	s, _, _ := newTestSession(t, game.DefaultConfig())

	if _, err := s.RegisterPlayer("Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.RegisterPlayer("Alice"); !errors.Is(err, domain.ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	// Case-sensitive match: a different casing is a different name.
	if _, err := s.RegisterPlayer("alice"); err != nil {
		t.Fatalf("register different casing: %v", err)
	}
}

func TestCorrectAnswerDoublesStake(t *testing.T) {
	s, gw, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()

	a, err := s.RegisterPlayer("Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if err := s.PlaceBet(a.ID, 100); err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Correct index is 2; the sole bettor answering triggers the early reveal.
	two := 2
	if err := s.SubmitAnswer(a.ID, domain.Response{Index: &two}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	lb := s.Leaderboard()
	if lb.Entries[0].Balance != 600 {
		t.Fatalf("expected 600 after winning 100, got %d", lb.Entries[0].Balance)
	}

	results := gw.byType(domain.EventPlayerResult)
	if len(results) != 1 {
		t.Fatalf("expected one player result, got %d", len(results))
	}
	if results[0].Audience.Scope != domain.AudiencePlayer || results[0].Audience.PlayerID != a.ID {
		t.Fatalf("result must target the answering player, got %+v", results[0].Audience)
	}
	payload := results[0].Payload.(domain.PlayerResultPayload)
	if !payload.Correct || payload.CorrectIndex == nil || *payload.CorrectIndex != 2 {
		t.Fatalf("expected correct verdict referencing index 2, got %+v", payload)
	}
	if payload.Delta != 100 || payload.Balance != 600 {
		t.Fatalf("expected +100 to 600, got %+v", payload)
	}
}

func TestExpiryRevealsAndRejectsLateAnswers(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s, _, _ := newTestSessionWithClock(t, game.DefaultConfig(), fc)
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	b, _ := s.RegisterPlayer("Bob")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	mustBet(t, s, a.ID, 100)
	mustBet(t, s, b.ID, 100)
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}

	two := 2
	if err := s.SubmitAnswer(a.ID, domain.Response{Index: &two}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	fc.Advance(15 * time.Second)
	waitFor(t, func() bool { return s.StateSnapshot("").RoundPhase == "revealing" })

	// Bob's answer arrives after the expiry event was processed.
	if err := s.SubmitAnswer(b.ID, domain.Response{Index: &two}); !errors.Is(err, domain.ErrWindowClosed) {
		t.Fatalf("expected ErrWindowClosed after expiry, got %v", err)
	}

	lb := s.Leaderboard()
	if lb.Entries[0].Name != "Alice" || lb.Entries[0].Balance != 600 {
		t.Fatalf("Alice should have won her stake, got %+v", lb.Entries[0])
	}
	// Absent submission settles as incorrect, never as correct.
	if lb.Entries[1].Name != "Bob" || lb.Entries[1].Balance != 400 {
		t.Fatalf("Bob's missing answer should cost his stake, got %+v", lb.Entries[1])
	}
}

func TestBettingWindowRules(t *testing.T) {
	s, _, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	b, _ := s.RegisterPlayer("Bob")

	// No round open yet.
	if err := s.PlaceBet(a.ID, 100); !errors.Is(err, domain.ErrWindowClosed) {
		t.Fatalf("expected ErrWindowClosed before round start, got %v", err)
	}

	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if err := s.PlaceBet(a.ID, 99); !errors.Is(err, domain.ErrInvalidBet) {
		t.Fatalf("expected ErrInvalidBet below minimum, got %v", err)
	}
	if err := s.PlaceBet(a.ID, 501); !errors.Is(err, domain.ErrInvalidBet) {
		t.Fatalf("expected ErrInvalidBet above balance, got %v", err)
	}
	mustBet(t, s, a.ID, 100)
	if err := s.PlaceBet(a.ID, 200); !errors.Is(err, domain.ErrAlreadyBet) {
		t.Fatalf("expected ErrAlreadyBet, got %v", err)
	}

	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.PlaceBet(b.ID, 100); !errors.Is(err, domain.ErrWindowClosed) {
		t.Fatalf("expected ErrWindowClosed once question is live, got %v", err)
	}

	// Rejections never moved a balance.
	for _, e := range s.Leaderboard().Entries {
		if e.Balance != 500 {
			t.Fatalf("balances must be untouched at bet time, got %+v", e)
		}
	}
}

func TestConcurrentBetsAcceptExactlyOne(t *testing.T) {
	s, _, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}

	const attempts = 50
	errs := make([]error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = s.PlaceBet(a.ID, 100)
		}(i)
	}
	close(start)
	wg.Wait()

	accepted, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domain.ErrAlreadyBet):
			rejected++
		default:
			t.Fatalf("unexpected bet error: %v", err)
		}
	}
	if accepted != 1 || rejected != attempts-1 {
		t.Fatalf("expected exactly one accepted bet, got accepted=%d rejected=%d", accepted, rejected)
	}
	if got := s.Leaderboard().Entries[0].Balance; got != 500 {
		t.Fatalf("bet placement must not move the balance, got %d", got)
	}
}

func TestAnswerRules(t *testing.T) {
	s, _, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	b, _ := s.RegisterPlayer("Bob")
	c, _ := s.RegisterPlayer("Cara")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	mustBet(t, s, a.ID, 100)
	mustBet(t, s, b.ID, 100)

	one := 1
	if err := s.SubmitAnswer(a.ID, domain.Response{Index: &one}); !errors.Is(err, domain.ErrWindowClosed) {
		t.Fatalf("expected ErrWindowClosed while betting open, got %v", err)
	}
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Cara never bet; her answers carry no stake to settle.
	if err := s.SubmitAnswer(c.ID, domain.Response{Index: &one}); !errors.Is(err, domain.ErrNoBet) {
		t.Fatalf("expected ErrNoBet, got %v", err)
	}

	if err := s.SubmitAnswer(a.ID, domain.Response{Index: &one}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.SubmitAnswer(a.ID, domain.Response{Index: &one}); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
}

func TestSharedStakeSettlesEachQuestionIndependently(t *testing.T) {
	s, _, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	mustBet(t, s, a.ID, 100)

	// Question 1: correct (+100).
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance q1: %v", err)
	}
	two := 2
	if err := s.SubmitAnswer(a.ID, domain.Response{Index: &two}); err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if got := s.Leaderboard().Entries[0].Balance; got != 600 {
		t.Fatalf("expected 600 after q1, got %d", got)
	}

	// Question 2: the same round-scoped stake, settled independently (-100).
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance q2: %v", err)
	}
	if err := s.PlaceBet(a.ID, 100); !errors.Is(err, domain.ErrWindowClosed) {
		t.Fatalf("betting must not reopen mid-round, got %v", err)
	}
	wrong := 2 // q2's correct index is 0
	if err := s.SubmitAnswer(a.ID, domain.Response{Index: &wrong}); err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	if got := s.Leaderboard().Entries[0].Balance; got != 500 {
		t.Fatalf("expected 500 after losing q2, got %d", got)
	}

	// Round exhausted: the next advance ends it instead.
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance past end: %v", err)
	}
	if phase := s.StateSnapshot("").Phase; phase != "between_rounds" {
		t.Fatalf("expected between_rounds, got %s", phase)
	}
}

func TestLeaderboardTieBreakIsRegistrationOrder(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.InitialBalance = 300
	s, _, _ := newTestSession(t, cfg)
	ctx := context.Background()

	s.RegisterPlayer("Alice")
	s.RegisterPlayer("Bob")
	c, _ := s.RegisterPlayer("Cara")

	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	mustBet(t, s, c.ID, 150)
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	wrong := 0
	if err := s.SubmitAnswer(c.ID, domain.Response{Index: &wrong}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	lb := s.Leaderboard()
	got := []string{lb.Entries[0].Name, lb.Entries[1].Name, lb.Entries[2].Name}
	want := []string{"Alice", "Bob", "Cara"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
	if lb.Entries[0].Balance != 300 || lb.Entries[1].Balance != 300 || lb.Entries[2].Balance != 150 {
		t.Fatalf("unexpected balances %+v", lb.Entries)
	}
}

func TestShortlistEliminatesBottomPlayers(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.ShortlistSize = 1
	s, gw, _ := newTestSession(t, cfg)
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	b, _ := s.RegisterPlayer("Bob")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	mustBet(t, s, a.ID, 100)
	mustBet(t, s, b.ID, 100)
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	two, zero := 2, 0
	if err := s.SubmitAnswer(a.ID, domain.Response{Index: &two}); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	if err := s.SubmitAnswer(b.ID, domain.Response{Index: &zero}); err != nil {
		t.Fatalf("submit b: %v", err)
	}

	if err := s.EndRound(ctx); err != nil {
		t.Fatalf("end round: %v", err)
	}

	shortlists := gw.byType(domain.EventShortlist)
	if len(shortlists) != 1 {
		t.Fatalf("expected one shortlist broadcast, got %d", len(shortlists))
	}
	payload := shortlists[0].Payload.(domain.ShortlistPayload)
	if len(payload.Entries) != 1 || payload.Entries[0].PlayerID != a.ID {
		t.Fatalf("expected Alice alone on the shortlist, got %+v", payload.Entries)
	}

	if err := s.StartRound(ctx, 2); err != nil {
		t.Fatalf("start round 2: %v", err)
	}
	if err := s.PlaceBet(b.ID, 100); !errors.Is(err, domain.ErrNotShortlisted) {
		t.Fatalf("expected ErrNotShortlisted, got %v", err)
	}
	if err := s.SubmitAnswer(b.ID, domain.Response{Text: "anything"}); !errors.Is(err, domain.ErrNotShortlisted) {
		t.Fatalf("expected ErrNotShortlisted on answer, got %v", err)
	}

	for _, e := range s.Leaderboard().Entries {
		if e.PlayerID == b.ID && e.Balance != 400 {
			t.Fatalf("rejection must not move Bob's balance, got %d", e.Balance)
		}
	}
}

func TestFinalRoundTakesNoShortlist(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.TotalRounds = 1
	cfg.ShortlistSize = 1
	s, gw, _ := newTestSession(t, cfg)
	ctx := context.Background()

	s.RegisterPlayer("Alice")
	s.RegisterPlayer("Bob")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if err := s.EndRound(ctx); err != nil {
		t.Fatalf("end round: %v", err)
	}

	// No next round exists, so nobody is shortlisted or eliminated; the final
	// leaderboard is the result.
	if got := len(gw.byType(domain.EventShortlist)); got != 0 {
		t.Fatalf("expected no shortlist after the final round, got %d", got)
	}
	for _, e := range s.Leaderboard().Entries {
		if e.Eliminated {
			t.Fatalf("no player may be flagged eliminated after the final round, got %+v", e)
		}
	}
	if phase := s.StateSnapshot("").Phase; phase != "finished" {
		t.Fatalf("expected finished, got %s", phase)
	}
	if len(gw.byType(domain.EventSessionFinished)) != 1 {
		t.Fatalf("expected session_finished broadcast")
	}
}

func TestStartRoundTransitions(t *testing.T) {
	s, _, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()
	s.RegisterPlayer("Alice")

	if err := s.StartRound(ctx, 2); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("round skipping must be rejected, got %v", err)
	}
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round 1: %v", err)
	}
	if err := s.StartRound(ctx, 2); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("starting mid-round must be rejected, got %v", err)
	}
	if err := s.EndRound(ctx); err != nil {
		t.Fatalf("end round: %v", err)
	}
	if err := s.StartRound(ctx, 1); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("replaying round 1 must be rejected, got %v", err)
	}
	if err := s.StartRound(ctx, 3); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("skipping to round 3 must be rejected, got %v", err)
	}
	if err := s.StartRound(ctx, 2); err != nil {
		t.Fatalf("start round 2: %v", err)
	}
}

func TestSessionFinishesAfterFinalRound(t *testing.T) {
	s, gw, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()
	s.RegisterPlayer("Alice")

	for n := 1; n <= 3; n++ {
		if err := s.StartRound(ctx, n); err != nil {
			t.Fatalf("start round %d: %v", n, err)
		}
		if err := s.EndRound(ctx); err != nil {
			t.Fatalf("end round %d: %v", n, err)
		}
	}

	if phase := s.StateSnapshot("").Phase; phase != "finished" {
		t.Fatalf("expected finished, got %s", phase)
	}
	if len(gw.byType(domain.EventSessionFinished)) != 1 {
		t.Fatalf("expected session_finished broadcast")
	}
	if err := s.StartRound(ctx, 1); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("no rounds after the final one, got %v", err)
	}
}

func TestClearPlayersKeepsQuestionBank(t *testing.T) {
	s, _, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()

	s.RegisterPlayer("Alice")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}

	s.ClearPlayers()
	if phase := s.StateSnapshot("").Phase; phase != "waiting" {
		t.Fatalf("expected waiting after clear, got %s", phase)
	}
	if len(s.Leaderboard().Entries) != 0 {
		t.Fatalf("expected empty leaderboard after clear")
	}

	// The name is free again and the question bank is untouched.
	if _, err := s.RegisterPlayer("Alice"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("restart round 1: %v", err)
	}
}

func TestPauseFreezesCountdown(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s, gw, _ := newTestSessionWithClock(t, game.DefaultConfig(), fc)
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	b, _ := s.RegisterPlayer("Bob")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	mustBet(t, s, a.ID, 100)
	mustBet(t, s, b.ID, 100)
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}

	fc.Advance(5 * time.Second)
	s.Pause()
	s.Pause() // idempotent

	snap := s.StateSnapshot(a.ID)
	if !snap.Paused || snap.RemainingMillis != 10000 {
		t.Fatalf("expected paused with 10s left, got %+v", snap)
	}

	// Time passing while paused must not close the question.
	fc.Advance(time.Minute)
	if s.StateSnapshot("").RoundPhase != "question_active" {
		t.Fatalf("paused question must stay active")
	}
	// Answers are still accepted; only the countdown is suspended.
	two := 2
	if err := s.SubmitAnswer(a.ID, domain.Response{Index: &two}); err != nil {
		t.Fatalf("submit while paused: %v", err)
	}

	s.Resume()
	fc.Advance(10 * time.Second)
	waitFor(t, func() bool { return s.StateSnapshot("").RoundPhase == "revealing" })

	if len(gw.byType(domain.EventCountdownPaused)) != 1 || len(gw.byType(domain.EventCountdownResumed)) != 1 {
		t.Fatalf("expected one pause and one resume broadcast")
	}
}

func TestLosingSettlementClampsAtZero(t *testing.T) {
	s, gw, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	mustBet(t, s, a.ID, 500) // all in

	wrong := 3
	for q := 0; q < 2; q++ {
		if err := s.AdvanceQuestion(ctx); err != nil {
			t.Fatalf("advance q%d: %v", q+1, err)
		}
		if err := s.SubmitAnswer(a.ID, domain.Response{Index: &wrong}); err != nil {
			t.Fatalf("submit q%d: %v", q+1, err)
		}
	}

	if got := s.Leaderboard().Entries[0].Balance; got != 0 {
		t.Fatalf("expected clamped zero balance, got %d", got)
	}
	clamps := gw.byType(domain.EventBalanceClamped)
	if len(clamps) != 1 {
		t.Fatalf("expected one clamp audit event, got %d", len(clamps))
	}
	if clamps[0].Audience.Scope != domain.AudienceAdmin {
		t.Fatalf("clamp audit must be admin-only, got %+v", clamps[0].Audience)
	}
	if s.Halted() {
		t.Fatalf("a clamped settlement is notable, not fatal")
	}
}

func TestFreeTextRounds(t *testing.T) {
	s, _, _ := newTestSession(t, game.DefaultConfig())
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round 1: %v", err)
	}
	if err := s.EndRound(ctx); err != nil {
		t.Fatalf("end round 1: %v", err)
	}

	// Round 2: diacritics and punctuation are forgiven.
	if err := s.StartRound(ctx, 2); err != nil {
		t.Fatalf("start round 2: %v", err)
	}
	mustBet(t, s, a.ID, 100)
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.SubmitAnswer(a.ID, domain.Response{Text: "  eiffel   tower. "}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := s.Leaderboard().Entries[0].Balance; got != 600 {
		t.Fatalf("expected 600 after round 2 win, got %d", got)
	}
	if err := s.EndRound(ctx); err != nil {
		t.Fatalf("end round 2: %v", err)
	}

	// Round 3: whitespace-insensitive but symbol-exact.
	if err := s.StartRound(ctx, 3); err != nil {
		t.Fatalf("start round 3: %v", err)
	}
	mustBet(t, s, a.ID, 100)
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.SubmitAnswer(a.ID, domain.Response{Text: "X=1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := s.Leaderboard().Entries[0].Balance; got != 700 {
		t.Fatalf("expected 700 after round 3 win, got %d", got)
	}
}

func TestStateSnapshotRecoversCurrentState(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s, _, _ := newTestSessionWithClock(t, game.DefaultConfig(), fc)
	ctx := context.Background()

	a, _ := s.RegisterPlayer("Alice")
	b, _ := s.RegisterPlayer("Bob")
	if err := s.StartRound(ctx, 1); err != nil {
		t.Fatalf("start round: %v", err)
	}
	mustBet(t, s, a.ID, 100)
	mustBet(t, s, b.ID, 100)
	if err := s.AdvanceQuestion(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	fc.Advance(3 * time.Second)

	snap := s.StateSnapshot(a.ID)
	if snap.Phase != "in_round" || snap.Round != 1 || snap.RoundPhase != "question_active" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Question == nil || len(snap.Question.Options) != 4 {
		t.Fatalf("snapshot must carry the live question view, got %+v", snap.Question)
	}
	if snap.RemainingMillis != 12000 {
		t.Fatalf("expected 12s remaining, got %d", snap.RemainingMillis)
	}
	if snap.You == nil || !snap.You.HasBet || snap.You.Balance != 500 {
		t.Fatalf("unexpected player view %+v", snap.You)
	}
}

func mustBet(t *testing.T, s *game.Session, playerID string, amount int) {
	t.Helper()
	if err := s.PlaceBet(playerID, amount); err != nil {
		t.Fatalf("place bet: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

// captureGateway records published events for assertions.
type captureGateway struct {
	mu     sync.Mutex
	events []domain.Event
}

func (g *captureGateway) Publish(evt domain.Event) {
	g.mu.Lock()
	g.events = append(g.events, evt)
	g.mu.Unlock()
}

func (g *captureGateway) byType(typ string) []domain.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []domain.Event
	for _, evt := range g.events {
		if evt.Type == typ {
			out = append(out, evt)
		}
	}
	return out
}

func newTestSession(t *testing.T, cfg game.Config) (*game.Session, *captureGateway, *memory.QuestionBank) {
	t.Helper()
	return newTestSessionWithClock(t, cfg, clockwork.NewRealClock())
}

func newTestSessionWithClock(t *testing.T, cfg game.Config, clock clockwork.Clock) (*game.Session, *captureGateway, *memory.QuestionBank) {
	t.Helper()
	bank := memory.NewQuestionBank(map[int][]domain.Question{
		1: {
			{
				ID:      "r1-q1",
				Prompt:  "Which planet is known as the Red Planet?",
				Seconds: 15,
				Payload: domain.ChoicePayload{Options: []string{"Venus", "Jupiter", "Mars", "Mercury"}, CorrectIndex: 2},
			},
			{
				ID:      "r1-q2",
				Prompt:  "What is the chemical symbol for gold?",
				Seconds: 15,
				Payload: domain.ChoicePayload{Options: []string{"Au", "Ag", "Gd"}, CorrectIndex: 0},
			},
		},
		2: {
			{
				ID:      "r2-q1",
				Prompt:  "Name the landmark in the picture.",
				Seconds: 30,
				Payload: domain.PicturePayload{Images: []string{"media/landmark-1.jpg"}, Answer: "Eiffel Tower"},
			},
		},
		3: {
			{
				ID:      "r3-q1",
				Prompt:  "Complete the statement so x becomes 1.",
				Seconds: 20,
				Payload: domain.CodePayload{Snippet: "var x int", Answer: "x = 1"},
			},
		},
	})
	gw := &captureGateway{}
	s := game.NewSession(cfg, bank, gw, game.WithClock(clock))
	return s, gw, bank
}
