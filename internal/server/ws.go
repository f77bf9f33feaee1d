package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Game clients are served from arbitrary origins; auth happens at
		// the game level via join codes.
		return true
	},
}

// Event is one push notification. State never travels over the socket;
// clients refetch their redacted view on game_updated.
type Event struct {
	Type    string `json:"type"`
	GameID  string `json:"gameId"`
	Player  string `json:"player,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client is one connected WebSocket subscriber.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	gameID string
	player string
}

// Hub fans events out to the subscribers of each game.
type Hub struct {
	log        *zap.Logger
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan Event
}

// NewHub builds a hub; the caller runs its loop.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, 64),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug("ws client registered",
				zap.String("game_id", client.gameID),
				zap.String("player", client.player),
			)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case ev := <-h.events:
			raw, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			for client := range h.clients {
				if client.gameID != ev.GameID {
					continue
				}
				select {
				case client.send <- raw:
				default:
					// Slow consumer; drop it rather than block the hub.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Notify queues an event for fan-out; drops it if the hub is saturated.
func (h *Hub) Notify(ev Event) {
	select {
	case h.events <- ev:
	default:
		h.log.Warn("ws event dropped", zap.String("game_id", ev.GameID))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 64),
		gameID: chi.URLParam(r, "gameID"),
		player: r.URL.Query().Get("player"),
	}
	s.hub.register <- client

	go client.writePump()
	go client.readPump(s.hub)
}

// readPump drains (and ignores) client frames; all commands arrive over
// HTTP. Its real job is detecting the close.
func (c *Client) readPump(hub *Hub) {
	defer func() {
		hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
