package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// InboundMessage is a client frame received over a websocket.
type InboundMessage struct {
	Type   string                 `json:"type"`
	UserID string                 `json:"user_id"`
	Data   map[string]interface{} `json:"data"`
}

// InboundHandler processes client frames (send_chat, user_presence, request_state).
type InboundHandler func(connID string, msg *InboundMessage)

// DisconnectHandler is called when a client connection closes.
type DisconnectHandler func(connID string)

// SnapshotFunc produces the world-state payload sent to new connections.
type SnapshotFunc func() map[string]interface{}

// wsConn is a Listener backed by a single websocket connection.
type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Deliver(ev *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(ev)
}

// WSServer upgrades HTTP requests to websocket listeners on the hub.
type WSServer struct {
	hub          *Hub
	upgrader     websocket.Upgrader
	onInbound    InboundHandler
	onDisconnect DisconnectHandler
	snapshot     SnapshotFunc
	logger       *zap.Logger
}

// NewWSServer creates a websocket endpoint bound to the hub.
func NewWSServer(h *Hub, snapshot SnapshotFunc, logger *zap.Logger) *WSServer {
	return &WSServer{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		snapshot: snapshot,
		logger:   logger,
	}
}

// OnInbound sets the handler for client frames.
func (s *WSServer) OnInbound(h InboundHandler) { s.onInbound = h }

// OnDisconnect sets the handler for closed connections.
func (s *WSServer) OnDisconnect(h DisconnectHandler) { s.onDisconnect = h }

// ServeHTTP upgrades the connection, registers it on the hub, sends the
// current world snapshot, then pumps inbound frames until the peer closes.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsConn{id: uuid.New().String(), conn: conn}
	s.hub.Add(c)

	if s.snapshot != nil {
		c.Deliver(&Event{
			Type:      EventWorldState,
			Data:      s.snapshot(),
			Timestamp: time.Now(),
		})
	}

	go s.readLoop(c)
}

func (s *WSServer) readLoop(c *wsConn) {
	defer func() {
		c.conn.Close()
		s.hub.Remove(c.id)
		if s.onDisconnect != nil {
			s.onDisconnect(c.id)
		}
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Debug("unparseable client frame", zap.String("conn", c.id))
			continue
		}
		if s.onInbound != nil {
			s.onInbound(c.id, &msg)
		}
	}
}
