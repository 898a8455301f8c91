// Package relay delivers wire frames to connected members. Each connection
// gets a buffered outbound queue drained by a single write pump, so frames
// enqueued in acceptance order are written in that order. A consumer that
// cannot keep up is disconnected rather than allowed to block or reorder the
// rest of the room.
package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/wire"
)

const (
	sendBufferSize = 256
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
)

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// stop ends the write pump but leaves the connection open.
func (c *client) stop() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

type Relay struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Relay {
	return &Relay{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Register attaches a connection under memberID and starts its write pump.
func (r *Relay) Register(memberID string, conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	r.clients[memberID] = c
	r.mu.Unlock()

	go c.writePump()
}

// Unregister detaches and closes the member's connection. Unknown ids are
// ignored so disconnect paths can race freely.
func (r *Relay) Unregister(memberID string) {
	r.mu.Lock()
	c, ok := r.clients[memberID]
	if ok {
		delete(r.clients, memberID)
	}
	r.mu.Unlock()

	if ok {
		c.close()
	}
}

// Detach removes the member and stops its write pump without closing the
// underlying connection, so the caller can still write a final frame on it.
// Used when a handshake fails after the connection was registered.
func (r *Relay) Detach(memberID string) {
	r.mu.Lock()
	c, ok := r.clients[memberID]
	if ok {
		delete(r.clients, memberID)
	}
	r.mu.Unlock()

	if ok {
		c.stop()
	}
}

// Broadcast delivers frame to every listed member currently connected.
func (r *Relay) Broadcast(roomCode string, memberIDs []string, frame wire.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		r.logger.Error("failed to marshal frame", "room_code", roomCode, "type", frame.Type, "error", err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, memberID := range memberIDs {
		if c, ok := r.clients[memberID]; ok {
			r.enqueue(c, memberID, data)
		}
	}
}

// SendTo delivers frame to exactly one member. A momentarily disconnected
// target misses the frame; nothing is buffered or retried.
func (r *Relay) SendTo(roomCode string, memberID string, frame wire.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		r.logger.Error("failed to marshal frame", "room_code", roomCode, "type", frame.Type, "error", err)
		return
	}

	r.mu.RLock()
	c, ok := r.clients[memberID]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug("targeted frame dropped, member not connected", "member_id", memberID, "type", frame.Type)
		return
	}

	r.enqueue(c, memberID, data)
}

func (r *Relay) enqueue(c *client, memberID string, data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	default:
		// the queue is full: dropping a single frame would break per-room
		// ordering for this member, so drop the member instead and let the
		// read loop turn it into a leave
		r.logger.Warn("send queue full, closing connection", "member_id", memberID)
		c.close()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
