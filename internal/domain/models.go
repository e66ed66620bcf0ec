package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Player is a registered contestant and the single source of truth for their points.
type Player struct {
	ID           string
	Name         string
	Balance      int
	Eliminated   bool
	HasBet       bool // reset at every round start; betting is once per round
	Seq          int  // registration order, used as the leaderboard tie-break
	RegisteredAt time.Time
}

// Response carries a player's raw answer. Round 1 uses Index, rounds 2 and 3 use Text.
type Response struct {
	Index *int   `json:"index,omitempty"`
	Text  string `json:"text,omitempty"`
}

// AnswerSubmission is one accepted response; at most one exists per player per question.
type AnswerSubmission struct {
	PlayerID    string
	QuestionID  string
	Response    Response
	SubmittedAt time.Time
}

// Bet is a player's stake for one round. Every question in that round settles
// independently against the same amount.
type Bet struct {
	PlayerID string
	Round    int
	Amount   int
	PlacedAt time.Time
}

// QuestionPayload is the round-specific half of a question. Exactly one variant
// exists per round so required fields are guaranteed present by construction.
type QuestionPayload interface {
	Round() int
}

// ChoicePayload is the round 1 variant: ordered options with a zero-based answer key.
type ChoicePayload struct {
	Options      []string
	CorrectIndex int
}

func (ChoicePayload) Round() int { return 1 }

// PicturePayload is the round 2 variant: image references with a free-text answer.
type PicturePayload struct {
	Images []string
	Answer string
}

func (PicturePayload) Round() int { return 2 }

// CodePayload is the round 3 variant: a code snippet with a free-text answer.
type CodePayload struct {
	Snippet string
	Answer  string
}

func (CodePayload) Round() int { return 3 }

// Question is immutable once authored; bank order within a round is serving order.
type Question struct {
	ID      string
	Prompt  string
	Seconds int
	Payload QuestionPayload
}

// Round reports which round this question belongs to, derived from the payload variant.
func (q Question) Round() int {
	if q.Payload == nil {
		return 0
	}
	return q.Payload.Round()
}

// Duration is the authoritative countdown length for this question.
func (q Question) Duration() time.Duration {
	return time.Duration(q.Seconds) * time.Second
}

// DefaultSeconds is the fixed per-question duration for each round.
func DefaultSeconds(round int) int {
	switch round {
	case 1:
		return 15
	case 2:
		return 30
	case 3:
		return 20
	}
	return 0
}

// questionJSON is the wire/storage form; round tags the payload variant.
type questionJSON struct {
	ID           string   `json:"id"`
	Round        int      `json:"round"`
	Prompt       string   `json:"prompt"`
	Seconds      int      `json:"seconds"`
	Options      []string `json:"options,omitempty"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`
	Images       []string `json:"images,omitempty"`
	Answer       string   `json:"answer,omitempty"`
	Code         string   `json:"code,omitempty"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	out := questionJSON{
		ID:      q.ID,
		Round:   q.Round(),
		Prompt:  q.Prompt,
		Seconds: q.Seconds,
	}
	switch p := q.Payload.(type) {
	case ChoicePayload:
		idx := p.CorrectIndex
		out.Options = p.Options
		out.CorrectIndex = &idx
	case PicturePayload:
		out.Images = p.Images
		out.Answer = p.Answer
	case CodePayload:
		out.Code = p.Snippet
		out.Answer = p.Answer
	default:
		return nil, fmt.Errorf("question %s: unknown payload variant", q.ID)
	}
	return json.Marshal(out)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.ID = raw.ID
	q.Prompt = raw.Prompt
	q.Seconds = raw.Seconds
	if q.Seconds == 0 {
		q.Seconds = DefaultSeconds(raw.Round)
	}
	switch raw.Round {
	case 1:
		idx := 0
		if raw.CorrectIndex != nil {
			idx = *raw.CorrectIndex
		}
		q.Payload = ChoicePayload{Options: raw.Options, CorrectIndex: idx}
	case 2:
		q.Payload = PicturePayload{Images: raw.Images, Answer: raw.Answer}
	case 3:
		q.Payload = CodePayload{Snippet: raw.Code, Answer: raw.Answer}
	default:
		return fmt.Errorf("question %s: invalid round %d", raw.ID, raw.Round)
	}
	return nil
}

// QuestionView is the client-safe projection of a question: the answer key for
// round 1 and the canonical text for rounds 2/3 are never included.
type QuestionView struct {
	ID      string   `json:"id"`
	Round   int      `json:"round"`
	Prompt  string   `json:"prompt"`
	Seconds int      `json:"seconds"`
	Options []string `json:"options,omitempty"`
	Images  []string `json:"images,omitempty"`
	Code    string   `json:"code,omitempty"`
}

// View strips the canonical answer from a question for broadcast.
func (q Question) View() QuestionView {
	v := QuestionView{
		ID:      q.ID,
		Round:   q.Round(),
		Prompt:  q.Prompt,
		Seconds: q.Seconds,
	}
	switch p := q.Payload.(type) {
	case ChoicePayload:
		v.Options = p.Options
	case PicturePayload:
		v.Images = p.Images
	case CodePayload:
		v.Code = p.Snippet
	}
	return v
}

// RoundPhase is the lifecycle of a single round instance.
type RoundPhase int

const (
	RoundNotStarted RoundPhase = iota
	RoundBettingOpen
	RoundQuestionActive
	RoundRevealing
	RoundEnded
)

func (p RoundPhase) String() string {
	switch p {
	case RoundNotStarted:
		return "not_started"
	case RoundBettingOpen:
		return "betting_open"
	case RoundQuestionActive:
		return "question_active"
	case RoundRevealing:
		return "revealing"
	case RoundEnded:
		return "ended"
	}
	return "unknown"
}

// SessionPhase is the overall game lifecycle.
type SessionPhase int

const (
	SessionWaiting SessionPhase = iota
	SessionInRound
	SessionBetweenRounds
	SessionFinished
)

func (p SessionPhase) String() string {
	switch p {
	case SessionWaiting:
		return "waiting"
	case SessionInRound:
		return "in_round"
	case SessionBetweenRounds:
		return "between_rounds"
	case SessionFinished:
		return "finished"
	}
	return "unknown"
}

// LeaderboardEntry is a snapshot-friendly view of one player.
type LeaderboardEntry struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	Balance    int    `json:"balance"`
	Eliminated bool   `json:"eliminated"`
}

// Leaderboard is always recomputed from player balances, never stored.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
