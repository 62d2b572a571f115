package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/aono31/jambox/internal/domain/event"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are left to the reverse proxy.
		return true
	},
}

// Client is one connected peer.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan event.Envelope
}

// ServeHTTP upgrades the connection and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		id:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan event.Envelope, 64),
	}
	h.add(c)
	zlog.Info().Msgf("peer connected: client_id=%s peers=%d", c.id, h.ClientCount())

	go c.writePump()
	go c.readPump()
}

// enqueue queues an envelope for delivery, dropping it when the client's
// buffer is full rather than blocking the bus.
func (c *Client) enqueue(env event.Envelope) {
	select {
	case c.send <- env:
	default:
		zlog.Warn().Msgf("dropping event for slow peer: client_id=%s type=%s", c.id, env.Type)
	}
}

// readPump reads envelopes from the peer and hands them to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
		zlog.Info().Msgf("peer disconnected: client_id=%s", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zlog.Warn().Err(err).Msgf("websocket read error: client_id=%s", c.id)
			}
			return
		}

		var env event.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			zlog.Warn().Err(err).Msgf("invalid envelope from peer: client_id=%s", c.id)
			continue
		}
		c.hub.receive(env)
	}
}

// writePump forwards queued envelopes to the peer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
