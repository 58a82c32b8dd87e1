package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/NomadCrew/ap-workbench/config"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// SessionChecker confirms a session exists before a socket is accepted.
type SessionChecker interface {
	Exists(ctx context.Context, sessionID string) error
}

// Handler upgrades GET /sessions/:sid/events to a WebSocket.
type Handler struct {
	log            *zap.SugaredLogger
	hub            *Hub
	sessions       SessionChecker
	pingInterval   time.Duration
	writeTimeout   time.Duration
	allowedOrigins []string
	isDevelopment  bool
}

func NewHandler(hub *Hub, sessions SessionChecker, serverCfg *config.ServerConfig, cfg ...HubConfig) *Handler {
	hubCfg := DefaultHubConfig()
	if len(cfg) > 0 {
		hubCfg = cfg[0]
	}
	return &Handler{
		log:            logger.GetLogger().Named("websocket_handler"),
		hub:            hub,
		sessions:       sessions,
		pingInterval:   hubCfg.PingInterval,
		writeTimeout:   hubCfg.WriteTimeout,
		allowedOrigins: serverCfg.AllowedOrigins,
		isDevelopment:  serverCfg.Environment == config.EnvDevelopment,
	}
}

// getAcceptOptions allows every origin in development and the configured
// ones otherwise.
func (h *Handler) getAcceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if h.isDevelopment || containsWildcard(h.allowedOrigins) {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = originPatterns(h.allowedOrigins)
	}
	return opts
}

// ClientMessage represents a message from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message to the client.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Message types on the socket.
const (
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeEvent     = "event"
	MessageTypeConnected = "connected"
	MessageTypeError     = "error"
)

// HandleEvents godoc
// @Summary Stream the session's events over a WebSocket
// @Description The optional types query parameter is a comma-separated event type filter
// @Tags events
// @Param sid path string true "Session ID"
// @Param types query string false "Event types, e.g. job_finished,dossier_loaded"
// @Success 101
// @Failure 404 {object} types.ErrorResponse "Session not found"
// @Router /sessions/{sid}/events [get]
func (h *Handler) HandleEvents(c *gin.Context) {
	sessionID := c.Param("sid")
	if err := h.sessions.Exists(c.Request.Context(), sessionID); err != nil {
		_ = c.Error(err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, h.getAcceptOptions())
	if err != nil {
		h.log.Errorw("Failed to accept WebSocket connection", "sessionID", sessionID, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	connection, err := h.hub.Register(ctx, sessionID, conn, parseFilters(c.Query("types"))...)
	if err != nil {
		h.log.Errorw("Failed to register WebSocket connection", "sessionID", sessionID, "error", err)
		_ = conn.Close(websocket.StatusInternalError, "registration failed")
		return
	}
	defer h.hub.Unregister(connection.ID, "client disconnected")

	if err := h.sendMessage(ctx, conn, ServerMessage{
		Type:    MessageTypeConnected,
		Payload: map[string]string{"sessionId": sessionID, "connectionId": connection.ID},
	}); err != nil {
		h.log.Warnw("Failed to send connected message", "sessionID", sessionID, "error", err)
		return
	}

	errCh := make(chan error, 3)
	go func() { errCh <- h.readLoop(ctx, conn) }()
	go func() { errCh <- h.writeLoop(ctx, conn, connection) }()
	go func() { errCh <- h.pingLoop(ctx, conn) }()

	err = <-errCh
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
		h.log.Warnw("WebSocket connection error", "sessionID", sessionID, "error", err)
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		switch msg.Type {
		case MessageTypePing:
			_ = h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypePong})
		default:
			_ = h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypeError, Error: "unsupported message type " + msg.Type})
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, connection *Connection) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-connection.Done():
			return nil
		case event := <-connection.SendChannel():
			if err := h.sendMessage(ctx, conn, ServerMessage{Type: MessageTypeEvent, Payload: event}); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) sendMessage(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

// ActiveConnections reports open sockets for the health check.
func (h *Handler) ActiveConnections() int {
	return h.hub.GetConnectionCount()
}

func parseFilters(raw string) []types.EventType {
	if raw == "" {
		return nil
	}
	var filters []types.EventType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			filters = append(filters, types.EventType(strings.ToUpper(part)))
		}
	}
	return filters
}

// originPatterns strips schemes; the accept check matches on host.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		out = append(out, o)
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
