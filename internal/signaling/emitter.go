package signaling

import (
	"encoding/json"

	"github.com/vidmesh/signal-relay/internal/metrics"
)

// The Emitter implementation. Delivery is fire-and-forget: a frame for a
// connection whose send buffer is full is dropped and counted, never awaited.

func (s *Server) ToConnection(connID, event string, payload any) {
	frame, ok := s.encode(event, payload)
	if !ok {
		return
	}

	s.mu.Lock()
	c := s.conns[connID]
	s.mu.Unlock()

	if c == nil {
		return
	}
	s.deliver(c, event, frame)
}

func (s *Server) ToRoom(roomID, except, event string, payload any) {
	frame, ok := s.encode(event, payload)
	if !ok {
		return
	}

	s.mu.Lock()
	group := make([]*conn, 0, len(s.rooms[roomID]))
	for id, c := range s.rooms[roomID] {
		if id != except {
			group = append(group, c)
		}
	}
	s.mu.Unlock()

	for _, c := range group {
		s.deliver(c, event, frame)
	}
}

func (s *Server) Broadcast(event string, payload any) {
	frame, ok := s.encode(event, payload)
	if !ok {
		return
	}

	s.mu.Lock()
	all := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		all = append(all, c)
	}
	s.mu.Unlock()

	for _, c := range all {
		s.deliver(c, event, frame)
	}
}

func (s *Server) JoinRoom(connID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.conns[connID]
	if c == nil {
		return
	}
	group := s.rooms[roomID]
	if group == nil {
		group = make(map[string]*conn)
		s.rooms[roomID] = group
	}
	group[connID] = c
}

func (s *Server) LeaveRoom(connID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group := s.rooms[roomID]
	if group == nil {
		return
	}
	delete(group, connID)
	if len(group) == 0 {
		delete(s.rooms, roomID)
	}
}

func (s *Server) encode(event string, payload any) ([]byte, bool) {
	frame, err := json.Marshal(wireEnvelope{Event: event, Data: payload})
	if err != nil {
		s.log.Error("encode outbound frame", "event", event, "err", err)
		return nil, false
	}
	return frame, true
}

func (s *Server) deliver(c *conn, event string, frame []byte) {
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		s.count(metrics.EmitDropped)
		s.log.Warn("send buffer full, frame dropped", "conn", c.id, "event", event)
	}
}
