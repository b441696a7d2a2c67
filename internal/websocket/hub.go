// Package websocket streams build events to browser clients. A Hub owns one
// goroutine that registers clients and fans messages out; each client has a
// read pump and a write pump.
package websocket

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/piza/prejst/internal/build"
	"github.com/piza/prejst/internal/logging"
)

const (
	sendBuffer   = 256
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Hub handles WebSocket connection management and broadcasting
//
// Invariants:
// - clients map access always protected by clientsMutex
// - a client's send channel is closed exactly once, by the hub goroutine
type Hub struct {
	clients      map[string]*Client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	originPatterns []string
	logger         logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
}

// NewHub creates a hub and starts its goroutine. originPatterns lists the
// hosts allowed to connect cross-origin; same-origin requests are always
// accepted.
func NewHub(logger logging.Logger, originPatterns ...string) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	hub := &Hub{
		clients:        make(map[string]*Client),
		broadcast:      make(chan []byte, 256),
		register:       make(chan *Client, 32),
		unregister:     make(chan *Client, 32),
		originPatterns: originPatterns,
		logger:         logger.WithComponent("websocket"),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	go hub.run()

	return hub
}

// ServeHTTP upgrades the request and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.IsShutdown() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	// Accept writes the error response itself, including 403 on a
	// disallowed origin.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.originPatterns,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	now := time.Now()
	client := &Client{
		id:           uuid.New().String(),
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		connectedAt:  now,
		lastActivity: now,
		remoteAddr:   r.RemoteAddr,
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusServiceRestart, "Server shutting down")
		return
	}

	go h.handleClient(client)
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)

		case <-h.ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	hello, err := json.Marshal(HelloMessage{Type: "hello", Client: client.id, Timestamp: client.connectedAt})
	if err == nil {
		client.send <- hello
	}

	h.clientsMutex.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.clientsMutex.Unlock()

	h.logger.Info(h.ctx, "WebSocket client connected", "client", client.id, "total", total)
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMutex.Lock()
	_, exists := h.clients[client.id]
	if exists {
		delete(h.clients, client.id)
		close(client.send)
	}
	total := len(h.clients)
	h.clientsMutex.Unlock()

	if exists {
		// Close waits for the peer's handshake; keep the hub loop free.
		go func() { _ = client.conn.Close(websocket.StatusNormalClosure, "") }()
		h.logger.Info(h.ctx, "WebSocket client disconnected", "client", client.id, "total", total)
	}
}

func (h *Hub) broadcastToClients(message []byte) {
	h.clientsMutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clientsMutex.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			// Slow client, drop it
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMutex.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.clientsMutex.Unlock()

	for _, client := range clients {
		close(client.send)
		go func(c *Client) { _ = c.conn.Close(websocket.StatusGoingAway, "Server shutdown") }(client)
	}
}

func (h *Hub) handleClient(client *Client) {
	go h.writePump(client)
	h.readPump(client)

	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
		_ = client.conn.CloseNow()
	}
}

// readPump discards client frames until the connection closes.
func (h *Hub) readPump(client *Client) {
	for {
		_, _, err := client.conn.Read(h.ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && h.ctx.Err() == nil {
				h.logger.Debug(h.ctx, "WebSocket read ended", "client", client.id, "error", err.Error())
			}
			return
		}
		client.lastActivity = time.Now()
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}

			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()

			if err != nil {
				h.logger.Debug(h.ctx, "WebSocket write failed", "client", client.id, "error", err.Error())
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := client.conn.Ping(ctx)
			cancel()

			if err != nil {
				return
			}

		case <-h.ctx.Done():
			return
		}
	}
}

// Broadcast queues message for every connected client. It drops the message
// when the hub is shut down or its queue is full.
func (h *Hub) Broadcast(message []byte) {
	select {
	case <-h.ctx.Done():
		return
	default:
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn(h.ctx, nil, "Broadcast queue full, dropping message")
	}
}

// Observe broadcasts e as JSON. It has the build.Observer signature.
func (h *Hub) Observe(e build.Event) {
	data, err := build.MarshalEvent(e)
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to encode event", "kind", e.Kind())
		return
	}
	h.Broadcast(data)
}

// ConnectedClients returns the number of connected clients
func (h *Hub) ConnectedClients() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Clients describes the connected clients, oldest first
func (h *Hub) Clients() []ClientInfo {
	h.clientsMutex.RLock()
	infos := make([]ClientInfo, 0, len(h.clients))
	for _, c := range h.clients {
		infos = append(infos, ClientInfo{ID: c.id, RemoteAddr: c.remoteAddr, ConnectedAt: c.connectedAt})
	}
	h.clientsMutex.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ConnectedAt.Before(infos[j].ConnectedAt) })
	return infos
}

// Shutdown stops the hub and closes every client connection
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(h.cancel)

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown reports whether Shutdown has been called
func (h *Hub) IsShutdown() bool {
	return h.ctx.Err() != nil
}
