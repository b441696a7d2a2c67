package websocket

import (
	"time"

	"github.com/coder/websocket"
)

// Client represents a WebSocket client connection
type Client struct {
	id           string
	conn         *websocket.Conn
	send         chan []byte
	connectedAt  time.Time
	lastActivity time.Time
	remoteAddr   string
}

// HelloMessage is the first frame a client receives
type HelloMessage struct {
	Type      string    `json:"type"`
	Client    string    `json:"client"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientInfo describes a connected client for monitoring
type ClientInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	ConnectedAt time.Time `json:"connectedAt"`
}
