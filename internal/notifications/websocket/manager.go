// Package websocket pushes notification events to connected clients.
package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"docvault/backend/internal/notifications"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// Manager tracks live connections keyed by user and fans notification events
// out to them. A user may hold several connections (multiple tabs); each gets
// every event.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]map[*connection]bool
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

type connection struct {
	userID string
	conn   *websocket.Conn
	send   chan notifications.Message
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		connections: make(map[string]map[*connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The endpoint sits behind JWT auth; origin is not the gate here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleConnection upgrades the request and serves it until the client goes
// away. The caller must have authenticated userID already.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &connection{
		userID: userID.String(),
		conn:   ws,
		send:   make(chan notifications.Message, 64),
	}

	m.mu.Lock()
	if m.connections[c.userID] == nil {
		m.connections[c.userID] = make(map[*connection]bool)
	}
	m.connections[c.userID][c] = true
	m.mu.Unlock()

	go m.writePump(c)
	go m.readPump(c)
	return nil
}

// PushToUser delivers an event to every live connection of one user. Users
// without a connection simply miss the push; the persisted notification row
// is the durable copy.
func (m *Manager) PushToUser(userID uuid.UUID, msg notifications.Message) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for c := range m.connections[userID.String()] {
		select {
		case c.send <- msg:
		default:
			// Slow consumer; drop rather than block the pipeline.
			if m.logger != nil {
				m.logger.Warn("dropping websocket event", zap.String("user_id", c.userID))
			}
		}
	}
}

// ConnectionCount reports the number of live connections for a user.
func (m *Manager) ConnectionCount(userID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections[userID.String()])
}

func (m *Manager) remove(c *connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conns, ok := m.connections[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(m.connections, c.userID)
		}
	}
}

// readPump drains client frames; the protocol is push-only, so inbound
// payloads are discarded and only serve to keep the read deadline fresh.
func (m *Manager) readPump(c *connection) {
	defer func() {
		m.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && m.logger != nil {
				m.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (m *Manager) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
