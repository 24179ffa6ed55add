// Package hub provides the connection registry for WebSocket participants.
package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrBufferFull is returned when a connection's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// Connection represents one live participant. The ID doubles as the
// participant id used throughout the search core.
type Connection struct {
	ID         string
	Conn       *websocket.Conn
	Send       chan []byte
	CreatedAt  time.Time
	LastActive time.Time

	// Data carries arbitrary client-supplied metadata, merged from every
	// message the participant sends.
	Data map[string]interface{}

	hub *Hub
	mu  sync.Mutex
}

// Hub tracks live connections keyed by participant id.
type Hub struct {
	connections map[string]*Connection

	register   chan *Connection
	unregister chan *Connection

	log *zap.SugaredLogger
	mu  sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		log:         log,
	}
}

// Run services registration and unregistration until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			h.log.Infow("participant connected", "participant", conn.ID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				close(conn.Send)
			}
			h.mu.Unlock()
			h.log.Infow("participant disconnected", "participant", conn.ID)
		}
	}
}

// NewConnection issues a participant id and wraps the WebSocket connection.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	now := time.Now().UTC()
	return &Connection{
		ID:         "sess_" + uuid.New().String()[:8],
		Conn:       ws,
		Send:       make(chan []byte, 256),
		CreatedAt:  now,
		LastActive: now,
		Data:       make(map[string]interface{}),
		hub:        h,
	}
}

// Register records a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Get returns the connection for a participant, if present.
func (h *Hub) Get(participantID string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.connections[participantID]
	return conn, ok
}

// UpdateData merges client-supplied metadata into the participant's
// connection and refreshes its last-active time. Unknown participants are
// ignored.
func (h *Hub) UpdateData(participantID string, data map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.connections[participantID]
	if !ok {
		return
	}
	conn.mu.Lock()
	for k, v := range data {
		conn.Data[k] = v
	}
	conn.LastActive = time.Now().UTC()
	conn.mu.Unlock()
}

// SendTo delivers data to one participant. A missing participant is a silent
// no-op: they may have disconnected since the caller took its snapshot.
func (h *Hub) SendTo(participantID string, data []byte) {
	// Hold the read lock across the send. Run closes Send under the write
	// lock, so the channel cannot close between the lookup and the send,
	// and the default case keeps the send from ever blocking.
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.connections[participantID]
	if !ok {
		return
	}
	select {
	case conn.Send <- data:
	default:
		// Buffer full, drop the connection rather than block the sender.
		h.log.Warnw("send buffer full, closing connection", "participant", participantID)
		go h.Unregister(conn)
	}
}

// SendJSONTo marshals v and delivers it to one participant.
func (h *Hub) SendJSONTo(participantID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.SendTo(participantID, data)
	return nil
}

// SendToConnection queues data on a specific connection, bypassing the
// registry lookup. Used before registration has been serviced.
func (h *Hub) SendToConnection(conn *Connection, data []byte) error {
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSONToConnection marshals v and queues it on a specific connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToConnection(conn, data)
}

// BroadcastTo delivers v to every listed participant, best-effort. Missing
// participants are skipped.
func (h *Hub) BroadcastTo(participantIDs []string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	for _, id := range participantIDs {
		h.SendTo(id, data)
	}
	return nil
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// ParticipantIDs returns the ids of every live connection.
func (h *Hub) ParticipantIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	return ids
}

// SendDirect writes a message on the underlying connection with proper
// locking. Used by the pumps, not by broadcast paths.
func (c *Connection) SendDirect(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
