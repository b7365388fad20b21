// Package hub tracks connected real-time clients, fans out events to all of them
// and relays their bid submissions into the bidding service.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"live-auction/internal/events"
	"live-auction/utils"

	"github.com/gorilla/websocket"
)

// Config holds the websocket connection settings
type Config struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConfig returns default websocket configuration
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Hub is the registry of connected clients
type Hub struct {
	submitter BidSubmitter
	snapshots SnapshotSource
	config    Config
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	// readers counts running read pumps; Close waits for them
	readers sync.WaitGroup
}

// New creates a hub; zero config fields fall back to DefaultConfig
func New(submitter BidSubmitter, snapshots SnapshotSource, cfg Config) *Hub {
	def := DefaultConfig()
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.CheckOrigin == nil {
		cfg.CheckOrigin = def.CheckOrigin
	}

	return &Hub{
		submitter: submitter,
		snapshots: snapshots,
		config:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		clients: make(map[*Client]struct{}),
	}
}

// ServeWS upgrades the request and starts the client's pumps
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Warn("hub: failed to upgrade connection", map[string]any{"error": err.Error()})
		return err
	}

	c := newClient(h, conn)
	if !h.Register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return nil
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	h.readers.Add(1)
	h.mu.Unlock()

	go c.writePump()
	go func() {
		defer h.readers.Done()
		c.readPump()
	}()
	return nil
}

// Register adds a client and hands it a fresh snapshot. The snapshot is written
// before anything queued by Broadcast; events that raced with it carry bid
// sequences the client can compare. It returns false once the hub is closed.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	// built outside the hub lock: ledger listeners broadcast while holding ledger locks
	snapshot, err := h.snapshotMessage()
	if err != nil {
		utils.Error("hub: failed to build snapshot", map[string]any{"client_id": c.id, "error": err.Error()})
		close(c.first)
	} else {
		c.first <- snapshot
	}

	utils.Info("hub: client connected", map[string]any{"client_id": c.id, "clients": total})
	return true
}

// Unregister removes a client; removing one twice is a no-op
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		utils.Info("hub: client disconnected", map[string]any{"client_id": c.id, "clients": total})
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers an envelope to every client without blocking. A client
// whose buffer is full is disconnected.
func (h *Hub) Broadcast(env events.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		utils.Error("hub: failed to marshal event", map[string]any{"type": string(env.Type), "error": err.Error()})
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	count := len(h.clients)
	h.mu.RUnlock()

	for _, c := range slow {
		utils.Warn("hub: client send buffer full, disconnecting", map[string]any{"client_id": c.id})
		h.Unregister(c)
		c.closeConn()
	}

	utils.Debug("hub: event broadcast", map[string]any{"type": string(env.Type), "clients": count})
}

// Send delivers an envelope to one client only
func (h *Hub) Send(c *Client, env events.Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		utils.Error("hub: failed to marshal event", map[string]any{"type": string(env.Type), "error": err.Error()})
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		utils.Warn("hub: client send buffer full, dropping message", map[string]any{"client_id": c.id, "type": string(env.Type)})
		return false
	}
}

// Stats reports connection statistics
func (h *Hub) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]any{
		"connected_clients": len(h.clients),
		"closed":            h.closed,
	}
}

// Close disconnects every client, refuses new ones and returns once no
// inbound message is still being handled.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	h.readers.Wait()
	utils.Info("hub: closed", map[string]any{"clients": len(clients)})
}

func (h *Hub) snapshotMessage() ([]byte, error) {
	env, err := events.New(events.TypeSnapshot, h.snapshots.Snapshot(), time.Now())
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func (h *Hub) sendSnapshot(c *Client) {
	env, err := events.New(events.TypeSnapshot, h.snapshots.Snapshot(), time.Now())
	if err != nil {
		utils.Error("hub: failed to build snapshot", map[string]any{"client_id": c.id, "error": err.Error()})
		return
	}
	h.Send(c, env)
}

// handleMessage dispatches one inbound message from a client
func (h *Hub) handleMessage(c *Client, raw []byte) {
	env, err := events.Decode(raw)
	if err != nil {
		h.reject(c, "", err)
		return
	}

	switch env.Type {
	case events.TypeJoin:
		h.sendSnapshot(c)
	case events.TypeSubmitBid, events.TypePlaceBid:
		req, err := events.DecodeSubmitBid(env)
		if err != nil {
			h.reject(c, "", err)
			return
		}
		// the bid stands even if this client goes away before the reply
		if _, err := h.submitter.PlaceBid(context.Background(), req); err != nil {
			h.reject(c, req.AuctionID, err)
		}
	}
}

func (h *Hub) reject(c *Client, auctionID string, err error) {
	payload := events.Rejection(auctionID, err)
	env, buildErr := events.New(events.TypeBidRejected, payload, time.Now())
	if buildErr != nil {
		utils.Error("hub: failed to build rejection", map[string]any{"client_id": c.id, "error": buildErr.Error()})
		return
	}
	h.Send(c, env)
	utils.Debug("hub: bid rejected", map[string]any{"client_id": c.id, "auction_id": auctionID, "reason": payload.Reason})
}
