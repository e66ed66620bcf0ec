package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"trivia-arena/internal/domain"
	"trivia-arena/internal/game"
)

// WSHandler wires websocket connections into the session orchestrator: one
// endpoint for players, one for the admin console.
type WSHandler struct {
	session  *game.Session
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(session *game.Session, hub *Hub, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		session: session,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type betPayload struct {
	Amount int `json:"amount"`
}

type startRoundPayload struct {
	Round int `json:"round"`
}

type registeredPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Balance  int    `json:"balance"`
}

type ackPayload struct {
	Command string `json:"command"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errCode names a rejection for clients; unknown errors stay generic.
func errCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNameTaken):
		return "name_taken"
	case errors.Is(err, domain.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, domain.ErrInvalidBet):
		return "invalid_bet"
	case errors.Is(err, domain.ErrAlreadyBet):
		return "already_bet"
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return "already_answered"
	case errors.Is(err, domain.ErrWindowClosed):
		return "window_closed"
	case errors.Is(err, domain.ErrNotShortlisted):
		return "not_shortlisted"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrNoBet):
		return "no_bet"
	case errors.Is(err, domain.ErrNoQuestions):
		return "no_questions"
	case errors.Is(err, domain.ErrSessionHalted):
		return "session_halted"
	}
	return "internal"
}

// ServePlayer upgrades a player connection. A `name` query registers a new
// player; a `playerId` query resumes an existing one after a dropped socket.
func (h *WSHandler) ServePlayer(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	playerID := r.URL.Query().Get("playerId")
	if name == "" && playerID == "" {
		http.Error(w, "missing name or playerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	var player registeredPayload
	if playerID != "" {
		snap := h.session.StateSnapshot(playerID)
		if snap.You == nil {
			_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Code: "unknown_player", Message: domain.ErrUnknownPlayer.Error()}})
			return
		}
		player = registeredPayload{PlayerID: snap.You.PlayerID, Name: snap.You.Name, Balance: snap.You.Balance}
	} else {
		p, err := h.session.RegisterPlayer(name)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Code: errCode(err), Message: err.Error()}})
			return
		}
		player = registeredPayload{PlayerID: p.ID, Name: p.Name, Balance: p.Balance}
	}

	c := &client{playerID: player.PlayerID, send: make(chan outboundMessage, 16)}
	h.hub.register(c)
	defer h.hub.unregister(c)

	writerDone := make(chan struct{})
	go h.writer(conn, c, writerDone)

	c.send <- outboundMessage{Type: "registered", Payload: player}
	c.send <- outboundMessage{Type: domain.EventState, Payload: h.session.StateSnapshot(player.PlayerID)}

	h.readPlayer(conn, c, player.PlayerID)

	h.hub.unregister(c)
	<-writerDone
}

func (h *WSHandler) readPlayer(conn *websocket.Conn, c *client, playerID string) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "bet":
			var payload betPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.replyErr(c, errors.New("invalid bet payload"))
				continue
			}
			if err := h.session.PlaceBet(playerID, payload.Amount); err != nil {
				h.replyErr(c, err)
				continue
			}
			h.reply(c, outboundMessage{Type: "bet_accepted", Payload: payload})
		case "answer":
			var resp domain.Response
			if err := json.Unmarshal(inbound.Payload, &resp); err != nil {
				h.replyErr(c, errors.New("invalid answer payload"))
				continue
			}
			if err := h.session.SubmitAnswer(playerID, resp); err != nil {
				h.replyErr(c, err)
				continue
			}
			h.reply(c, outboundMessage{Type: "answer_accepted", Payload: struct{}{}})
		case "state":
			h.reply(c, outboundMessage{Type: domain.EventState, Payload: h.session.StateSnapshot(playerID)})
		default:
			h.replyErr(c, errors.New("unsupported message type"))
		}
	}
}

// ServeAdmin upgrades the privileged admin connection driving round
// progression.
func (h *WSHandler) ServeAdmin(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("admin ws upgrade failed")
		return
	}
	defer conn.Close()

	c := &client{admin: true, send: make(chan outboundMessage, 32)}
	h.hub.register(c)
	defer h.hub.unregister(c)

	writerDone := make(chan struct{})
	go h.writer(conn, c, writerDone)

	c.send <- outboundMessage{Type: domain.EventState, Payload: h.session.StateSnapshot("")}

	h.readAdmin(r.Context(), conn, c)

	h.hub.unregister(c)
	<-writerDone
}

func (h *WSHandler) readAdmin(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "start_round":
			var payload startRoundPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.replyErr(c, errors.New("invalid start_round payload"))
				continue
			}
			h.ack(c, "start_round", h.session.StartRound(ctx, payload.Round))
		case "advance":
			h.ack(c, "advance", h.session.AdvanceQuestion(ctx))
		case "pause":
			h.session.Pause()
			h.ack(c, "pause", nil)
		case "resume":
			h.session.Resume()
			h.ack(c, "resume", nil)
		case "end_round":
			h.ack(c, "end_round", h.session.EndRound(ctx))
		case "clear_players":
			h.session.ClearPlayers()
			h.ack(c, "clear_players", nil)
		case "leaderboard":
			h.reply(c, outboundMessage{Type: domain.EventLeaderboard, Payload: h.session.Leaderboard()})
		case "state":
			h.reply(c, outboundMessage{Type: domain.EventState, Payload: h.session.StateSnapshot("")})
		default:
			h.replyErr(c, errors.New("unsupported message type"))
		}
	}
}

func (h *WSHandler) ack(c *client, command string, err error) {
	if err != nil {
		h.replyErr(c, err)
		return
	}
	h.reply(c, outboundMessage{Type: "ok", Payload: ackPayload{Command: command}})
}

func (h *WSHandler) reply(c *client, msg outboundMessage) {
	select {
	case c.send <- msg:
	default:
		h.log.Debug().Str("type", msg.Type).Msg("dropped reply for slow client")
	}
}

func (h *WSHandler) replyErr(c *client, err error) {
	h.reply(c, outboundMessage{Type: "error", Payload: errorPayload{Code: errCode(err), Message: err.Error()}})
}

// writer is the single goroutine allowed to write to a connection.
func (h *WSHandler) writer(conn *websocket.Conn, c *client, done chan struct{}) {
	defer close(done)
	for msg := range c.send {
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Debug().Err(err).Msg("ws write error")
			return
		}
	}
}
