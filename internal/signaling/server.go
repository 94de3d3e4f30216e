package signaling

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vidmesh/signal-relay/internal/config"
	"github.com/vidmesh/signal-relay/internal/hub"
	"github.com/vidmesh/signal-relay/internal/metrics"
	"github.com/vidmesh/signal-relay/internal/origin"
	"github.com/vidmesh/signal-relay/internal/ratelimit"
)

const writeTimeout = 10 * time.Second

// EventHandler consumes decoded inbound events. Handlers are invoked from the
// connection's read goroutine with the transport lock released, so they may
// call back into the Emitter freely.
type EventHandler interface {
	HandleRegister(conn, identity string)
	HandleCreateRoom(conn, host, roomID string)
	HandleInvite(conn, roomID string, invited []string, from string)
	HandleJoinRoom(conn, roomID, username string)
	HandleSignal(conn, to string, data json.RawMessage)
	HandleLeaveRoom(conn, roomID, username string)
	HandleDisconnect(conn string)
}

// Server owns all live WebSocket connections and the per-room delivery
// groups. It implements hub.Emitter.
type Server struct {
	log     *slog.Logger
	cfg     config.Config
	metrics *metrics.Metrics
	clock   ratelimit.Clock

	upgrader websocket.Upgrader

	mu      sync.Mutex
	handler EventHandler
	conns   map[string]*conn
	rooms   map[string]map[string]*conn
	closed  bool
}

type conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte

	// done is closed exactly once when the connection is dropped. The send
	// channel is never closed, so emitters racing a disconnect cannot panic.
	done     chan struct{}
	dropOnce sync.Once
}

func NewServer(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:     logger,
		cfg:     cfg,
		metrics: m,
		clock:   ratelimit.RealClock{},
		conns:   make(map[string]*conn),
		rooms:   make(map[string]map[string]*conn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetHandler wires the inbound event consumer. Must be called before the
// server accepts connections.
func (s *Server) SetHandler(h EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWS)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	rawOrigin := r.Header.Get("Origin")
	if rawOrigin == "" {
		// Non-browser clients send no Origin.
		return true
	}
	normalized, originHost, ok := origin.NormalizeHeader(rawOrigin)
	if !ok {
		return false
	}
	return origin.IsAllowed(normalized, originHost, r.Host, s.cfg.AllowedOrigins)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.log.Debug("websocket upgrade rejected", "remote_addr", r.RemoteAddr, "err", err)
		return
	}

	c := &conn{
		id:   newConnID(),
		ws:   ws,
		send: make(chan []byte, s.cfg.SendBufferSize),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ws.Close()
		return
	}
	handler := s.handler
	s.conns[c.id] = c
	s.mu.Unlock()

	s.count(metrics.ConnOpened)
	s.log.Info("websocket connected", "conn", c.id, "remote_addr", r.RemoteAddr)

	go s.writePump(c)
	s.readLoop(c, handler)

	s.dropConn(c)
	if handler != nil {
		handler.HandleDisconnect(c.id)
	}
	s.count(metrics.ConnClosed)
	s.log.Info("websocket disconnected", "conn", c.id)
}

// readLoop decodes frames until the peer goes away or breaks protocol.
// Malformed frames are counted and skipped; only rate-limit violations and
// transport errors end the connection.
func (s *Server) readLoop(c *conn, handler EventHandler) {
	c.ws.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))
	})

	perSecond := int64(s.cfg.MaxMessagesPerSecond)
	bucket := ratelimit.NewTokenBucket(s.clock, perSecond, perSecond)

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read error", "conn", c.id, "err", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))

		if perSecond > 0 && !bucket.Allow(1) {
			s.count(metrics.RateLimitedClose)
			s.log.Warn("closing rate-limited connection", "conn", c.id)
			s.writeClose(c, websocket.ClosePolicyViolation, "message rate limit exceeded")
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			s.count(metrics.MalformedMessage)
			s.log.Debug("malformed frame", "conn", c.id)
			continue
		}
		s.dispatch(c, handler, env)
	}
}

func (s *Server) dispatch(c *conn, handler EventHandler, env envelope) {
	if handler == nil {
		return
	}

	malformed := func() {
		s.count(metrics.MalformedMessage)
		s.log.Debug("malformed payload", "conn", c.id, "event", env.Event)
	}

	switch env.Event {
	case hub.EventRegister:
		var identity string
		if err := json.Unmarshal(env.Data, &identity); err != nil {
			malformed()
			return
		}
		handler.HandleRegister(c.id, identity)

	case hub.EventCreateRoom:
		var p createRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			malformed()
			return
		}
		handler.HandleCreateRoom(c.id, p.Host, p.RoomID)

	case hub.EventInviteUsers:
		var p inviteUsersPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			malformed()
			return
		}
		handler.HandleInvite(c.id, p.RoomID, p.Invited, p.From)

	case hub.EventJoinRoom:
		var p joinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			malformed()
			return
		}
		handler.HandleJoinRoom(c.id, p.RoomID, p.Username)

	case hub.EventSignal:
		var p signalPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			malformed()
			return
		}
		handler.HandleSignal(c.id, p.ToSocketID, p.Data)

	case hub.EventLeaveRoom:
		var p leaveRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			malformed()
			return
		}
		handler.HandleLeaveRoom(c.id, p.RoomID, p.Username)

	default:
		malformed()
	}
}

// writePump serializes all writes to the socket. It exits when done closes or
// a write fails; closing the socket then unblocks the read loop.
func (s *Server) writePump(c *conn) {
	ticker := time.NewTicker(s.cfg.WSPingInterval)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) writeClose(c *conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}

// dropConn removes c from the connection table and every room group and
// closes its done channel. Safe to call more than once.
func (s *Server) dropConn(c *conn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	for roomID, group := range s.rooms {
		delete(group, c.id)
		if len(group) == 0 {
			delete(s.rooms, roomID)
		}
	}
	s.mu.Unlock()

	c.dropOnce.Do(func() { close(c.done) })
	c.ws.Close()
}

// Close tears down every live connection. Used at shutdown after the HTTP
// listener stops accepting upgrades.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	open := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		open = append(open, c)
	}
	s.mu.Unlock()

	for _, c := range open {
		s.writeClose(c, websocket.CloseGoingAway, "server shutting down")
		s.dropConn(c)
	}
}

// ConnCount reports the number of live connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) count(name string) {
	if s.metrics != nil {
		s.metrics.Inc(name)
	}
}

func newConnID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf[:])
}
