package http

import (
	"sync"

	"github.com/rs/zerolog"

	"trivia-arena/internal/domain"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// client is one connected socket's send side. Delivery is best-effort: a full
// buffer drops the oldest pending message rather than blocking the publisher.
type client struct {
	playerID string
	admin    bool
	send     chan outboundMessage
}

// Hub routes orchestrator events to connected sockets by audience. It
// implements game.Gateway; Publish never blocks, so broadcast can run inside
// the session's critical section.
type Hub struct {
	log zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish fans an event out to every connection in its audience.
func (h *Hub) Publish(evt domain.Event) {
	msg := outboundMessage{Type: evt.Type, Payload: evt.Payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !h.inAudience(c, evt.Audience) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// Slow consumer: drop the oldest pending message so the latest
			// state always gets through.
			select {
			case <-c.send:
			default:
			}
			select {
			case c.send <- msg:
			default:
				h.log.Debug().Str("type", evt.Type).Msg("dropped event for slow client")
			}
		}
	}
}

func (h *Hub) inAudience(c *client, a domain.Audience) bool {
	switch a.Scope {
	case domain.AudienceAll:
		// Admin consoles see the all-players stream too.
		return true
	case domain.AudiencePlayer:
		return c.playerID == a.PlayerID
	case domain.AudienceAdmin:
		return c.admin
	}
	return false
}
