package domain

// AudienceScope selects which connected clients receive an event.
type AudienceScope int

const (
	AudienceAll AudienceScope = iota
	AudiencePlayer
	AudienceAdmin
)

// Audience addresses an event to all players, one player, or the admin only.
type Audience struct {
	Scope    AudienceScope
	PlayerID string // set only when Scope == AudiencePlayer
}

func ToAll() Audience             { return Audience{Scope: AudienceAll} }
func ToPlayer(id string) Audience { return Audience{Scope: AudiencePlayer, PlayerID: id} }
func ToAdmin() Audience           { return Audience{Scope: AudienceAdmin} }

// Event is one (audience, payload) pair emitted by the orchestrator.
// Delivery is fire-and-forget; missed events are recoverable via the state query.
type Event struct {
	Audience Audience
	Type     string
	Payload  any
}

type RoundStartedPayload struct {
	Round      int `json:"round"`
	MinimumBet int `json:"minimumBet"`
}

type QuestionPostedPayload struct {
	Question QuestionView `json:"question"`
	// Seconds seeds the client-side display countdown; the server clock is authoritative.
	Seconds int `json:"seconds"`
}

type CountdownPausedPayload struct {
	RemainingMillis int64 `json:"remainingMillis"`
}

type CountdownResumedPayload struct {
	RemainingMillis int64 `json:"remainingMillis"`
}

// PlayerResultPayload is the per-player reveal: their own verdict plus the
// canonical answer, sent only after the question closes.
type PlayerResultPayload struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	Answered      bool   `json:"answered"`
	CorrectIndex  *int   `json:"correctIndex,omitempty"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
	Delta         int    `json:"delta"`
	Balance       int    `json:"balance"`
}

type PointsUpdatePayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Balance  int    `json:"balance"`
}

type ShortlistEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Balance  int    `json:"balance"`
}

type ShortlistPayload struct {
	AfterRound int              `json:"afterRound"`
	Entries    []ShortlistEntry `json:"entries"`
}

type RoundEndedPayload struct {
	Round int `json:"round"`
}

type SessionFinishedPayload struct {
	Leaderboard Leaderboard `json:"leaderboard"`
}

// BalanceClampedPayload is the admin-only audit record of a losing settlement
// that would have driven a balance negative.
type BalanceClampedPayload struct {
	PlayerID   string `json:"playerId"`
	QuestionID string `json:"questionId"`
	Stake      int    `json:"stake"`
	Before     int    `json:"before"`
}

// StateSnapshotPayload answers the idempotent "get current state" query; the
// full session state is always re-derivable from it.
type StateSnapshotPayload struct {
	Phase           string        `json:"phase"`
	Round           int           `json:"round,omitempty"`
	RoundPhase      string        `json:"roundPhase,omitempty"`
	Question        *QuestionView `json:"question,omitempty"`
	RemainingMillis int64         `json:"remainingMillis,omitempty"`
	Paused          bool          `json:"paused,omitempty"`
	You             *YouPayload   `json:"you,omitempty"`
	Leaderboard     Leaderboard   `json:"leaderboard"`
}

type YouPayload struct {
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	Balance    int    `json:"balance"`
	HasBet     bool   `json:"hasBet"`
	Eliminated bool   `json:"eliminated"`
}

// Event type names shared between the orchestrator and the transport layer.
const (
	EventRoundStarted     = "round_started"
	EventQuestionPosted   = "question_posted"
	EventCountdownPaused  = "countdown_paused"
	EventCountdownResumed = "countdown_resumed"
	EventPlayerResult     = "player_result"
	EventPointsUpdate     = "points_update"
	EventShortlist        = "shortlist"
	EventRoundEnded       = "round_ended"
	EventSessionFinished  = "session_finished"
	EventLeaderboard      = "leaderboard"
	EventBalanceClamped   = "balance_clamped"
	EventPlayersCleared   = "players_cleared"
	EventState            = "state"
)
