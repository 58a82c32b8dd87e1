// Package websocket streams a session's workbench events to browser sockets.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// EventSubscriber is the subscription half of events.Publisher.
type EventSubscriber interface {
	Subscribe(ctx context.Context, sessionID, subscriberID string, filters ...types.EventType) (<-chan types.Event, error)
	Unsubscribe(ctx context.Context, sessionID, subscriberID string) error
}

// Hub tracks open event sockets. A session may have several (one per tab).
type Hub struct {
	log         *zap.SugaredLogger
	subscriber  EventSubscriber
	sendBuffer  int
	mu          sync.RWMutex
	connections map[string]*Connection
	bySession   map[string]map[string]struct{}
}

// Connection is one browser socket bound to a session.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn

	sendCh    chan types.Event
	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// HubConfig contains configuration options for the Hub.
type HubConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

// DefaultHubConfig returns sensible defaults for Hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   64,
	}
}

func NewHub(subscriber EventSubscriber, cfg ...HubConfig) *Hub {
	config := DefaultHubConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	return &Hub{
		log:         logger.GetLogger().Named("websocket_hub"),
		subscriber:  subscriber,
		sendBuffer:  config.SendBuffer,
		connections: make(map[string]*Connection),
		bySession:   make(map[string]map[string]struct{}),
	}
}

// Register subscribes a new socket to the session's events.
func (h *Hub) Register(ctx context.Context, sessionID string, conn *websocket.Conn, filters ...types.EventType) (*Connection, error) {
	subCtx, cancel := context.WithCancel(ctx)
	connection := &Connection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Conn:      conn,
		sendCh:    make(chan types.Event, h.sendBuffer),
		done:      make(chan struct{}),
		cancel:    cancel,
	}

	eventCh, err := h.subscriber.Subscribe(subCtx, sessionID, connection.ID, filters...)
	if err != nil {
		cancel()
		return nil, err
	}

	h.mu.Lock()
	h.connections[connection.ID] = connection
	if h.bySession[sessionID] == nil {
		h.bySession[sessionID] = make(map[string]struct{})
	}
	h.bySession[sessionID][connection.ID] = struct{}{}
	h.mu.Unlock()

	go h.forward(subCtx, connection, eventCh)

	h.log.Infow("Event socket registered", "sessionID", sessionID, "connectionID", connection.ID)
	return connection, nil
}

// forward copies subscription events into the connection's send buffer.
func (h *Hub) forward(ctx context.Context, conn *Connection, eventCh <-chan types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.done:
			return
		case event, ok := <-eventCh:
			if !ok {
				h.Unregister(conn.ID, "event stream ended")
				return
			}
			select {
			case conn.sendCh <- event:
			default:
				h.log.Warnw("Connection send buffer full, dropping event",
					"sessionID", conn.SessionID,
					"connectionID", conn.ID,
					"eventType", event.Type)
			}
		}
	}
}

// Unregister removes a socket and closes it with reason.
func (h *Hub) Unregister(connectionID, reason string) {
	h.mu.Lock()
	conn, ok := h.connections[connectionID]
	if ok {
		delete(h.connections, connectionID)
		if ids := h.bySession[conn.SessionID]; ids != nil {
			delete(ids, connectionID)
			if len(ids) == 0 {
				delete(h.bySession, conn.SessionID)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		h.closeConnection(conn, reason)
	}
}

func (h *Hub) closeConnection(conn *Connection, reason string) {
	conn.closeOnce.Do(func() {
		close(conn.done)
		conn.cancel()
		if err := h.subscriber.Unsubscribe(context.Background(), conn.SessionID, conn.ID); err != nil {
			h.log.Debugw("Unsubscribe after close failed", "connectionID", conn.ID, "error", err)
		}
		_ = conn.Conn.Close(websocket.StatusNormalClosure, reason)
		h.log.Infow("Event socket closed", "sessionID", conn.SessionID, "connectionID", conn.ID, "reason", reason)
	})
}

// CloseSession closes every socket of a closed session.
func (h *Hub) CloseSession(ctx context.Context, sessionID string) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.bySession[sessionID]))
	for id := range h.bySession[sessionID] {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Unregister(id, "session closed")
	}
}

// SessionConnections returns the number of sockets open for a session.
func (h *Hub) SessionConnections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bySession[sessionID])
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Shutdown closes every socket.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.RLock()
	ids := make([]string, 0, len(h.connections))
	for id := range h.connections {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Unregister(id, "server shutdown")
	}
	h.log.Info("WebSocket hub shutdown complete")
	return nil
}

// SendChannel returns the buffered events awaiting write.
func (c *Connection) SendChannel() <-chan types.Event {
	return c.sendCh
}

// Done is closed once the connection has been unregistered.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// IsClosed returns whether the connection is closed.
func (c *Connection) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
