package hub

import (
	"time"

	"live-auction/utils"

	"github.com/gorilla/websocket"
)

// Client is one open real-time channel. It owns no auction state.
type Client struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	first       chan []byte // snapshot, delivered ahead of send
	connectedAt time.Time
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:          utils.ShortID(),
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, h.config.SendBuffer),
		first:       make(chan []byte, 1),
		connectedAt: time.Now(),
	}
}

// ID returns the client's connection identifier
func (c *Client) ID() string {
	return c.id
}

func (c *Client) closeConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// writePump sends queued messages and keeps the connection alive with pings
func (c *Client) writePump() {
	cfg := c.hub.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	if snapshot, ok := <-c.first; ok {
		c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, snapshot); err != nil {
			utils.Warn("hub: failed to write snapshot", map[string]any{"client_id": c.id, "error": err.Error()})
			return
		}
	}

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				// hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				utils.Warn("hub: failed to write message", map[string]any{"client_id": c.id, "error": err.Error()})
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads inbound messages until the connection fails
func (c *Client) readPump() {
	cfg := c.hub.config
	defer func() {
		c.hub.Unregister(c)
		c.closeConn()
	}()

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.Warn("hub: unexpected close", map[string]any{"client_id": c.id, "error": err.Error()})
			}
			return
		}

		c.hub.handleMessage(c, message)
		c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}
