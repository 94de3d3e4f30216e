package hub

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vidmesh/signal-relay/internal/metrics"
)

// Hub is the signaling coordinator. It owns the identity and room registries
// and turns inbound client events into registry mutations plus outbound
// emissions through the Emitter.
//
// Every handler runs to completion under one mutex, so no event can observe
// the registries in a half-updated state. Handlers never wait for delivery;
// malformed or stale input is a silent no-op rather than an error (a confused
// client must never corrupt registry invariants).
type Hub struct {
	log     *slog.Logger
	emitter Emitter
	metrics *metrics.Metrics

	mu         sync.Mutex
	identities *IdentityRegistry
	rooms      *RoomRegistry

	// newRoomID is swappable in tests.
	newRoomID func() string
}

func New(emitter Emitter, logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:        logger,
		emitter:    emitter,
		metrics:    m,
		identities: NewIdentityRegistry(),
		rooms:      NewRoomRegistry(),
		newRoomID:  uuid.NewString,
	}
}

// HandleRegister associates conn with identity and broadcasts the updated
// presence list to every connection. An empty identity is ignored.
func (h *Hub) HandleRegister(conn, identity string) {
	if identity == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.identities.Register(identity, conn)
	h.count(metrics.IdentityRegistered)
	h.log.Debug("identity registered", "identity", identity, "conn", conn)

	h.emitter.Broadcast(EventOnlineUsers, h.identities.AllIdentities())
}

// HandleCreateRoom creates (or re-enters) a room hosted by host and confirms
// the room id to the calling connection only. A fresh id is generated when
// the client supplies none.
func (h *Hub) HandleCreateRoom(conn, host, roomID string) {
	id := roomID
	if id == "" {
		id = h.newRoomID()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.rooms.Ensure(id, host)
	h.rooms.AddParticipant(id, host)
	h.count(metrics.RoomCreated)
	h.log.Debug("room created", "room", id, "host", host)

	h.emitter.JoinRoom(conn, id)
	h.emitter.ToConnection(conn, EventRoomCreated, RoomCreated{RoomID: id})
}

// HandleInvite relays an invitation to every open connection of each invited
// identity. An invitee with no open connection produces a userNotAvailable
// notice addressed to the inviter's first connection only.
func (h *Hub) HandleInvite(conn, roomID string, invited []string, from string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, username := range invited {
		targets := h.identities.ConnectionsOf(username)
		if len(targets) > 0 {
			for _, target := range targets {
				h.emitter.ToConnection(target, EventInvitation, Invitation{RoomID: roomID, From: from})
			}
			h.count(metrics.InvitationSent)
			continue
		}

		h.count(metrics.InviteeUnavailable)
		h.log.Debug("invitee not available", "invitee", username, "from", from, "room", roomID)
		if inviterConns := h.identities.ConnectionsOf(from); len(inviterConns) > 0 {
			h.emitter.ToConnection(inviterConns[0], EventUserNotAvailable, UserNotAvailable{Username: username})
		}
	}
}

// HandleJoinRoom adds username to roomID, creating the room with username as
// host when it does not exist yet. The caller always receives all-users (the
// connections of every other participant, plus the caller's own other
// connections); user-joined is announced to the rest of the room on a first
// join only, never on a re-join.
func (h *Hub) HandleJoinRoom(conn, roomID, username string) {
	if roomID == "" || username == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.rooms.Ensure(roomID, username)
	joined := h.rooms.AddParticipant(roomID, username)

	// Connections of all participants, excluding only the calling connection.
	// Non-nil so a lone joiner receives an empty list, not null.
	others := []string{}
	for _, p := range h.rooms.ParticipantsOf(roomID) {
		for _, c := range h.identities.ConnectionsOf(p) {
			if c != conn {
				others = append(others, c)
			}
		}
	}
	sort.Strings(others)

	if joined {
		h.count(metrics.RoomJoined)
		h.log.Debug("joined room", "room", roomID, "identity", username, "conn", conn)
		h.emitter.JoinRoom(conn, roomID)
	}
	h.emitter.ToConnection(conn, EventAllUsers, others)
	if joined {
		h.emitter.ToRoom(roomID, conn, EventUserJoined, UserJoined{SocketID: conn, Username: username})
	}
}

// HandleSignal relays an opaque negotiation payload to a single target
// connection, stamped with the sender's connection id. The payload is passed
// through unchanged. Missing target or empty payload is ignored.
func (h *Hub) HandleSignal(conn, to string, data json.RawMessage) {
	if to == "" || len(data) == 0 {
		return
	}
	h.count(metrics.SignalRelayed)
	h.emitter.ToConnection(to, EventSignal, SignalRelay{From: conn, Data: data})
}

// HandleLeaveRoom removes username from roomID and announces user-left to the
// remaining members. The room is deleted once its last participant leaves.
func (h *Hub) HandleLeaveRoom(conn, roomID, username string) {
	if roomID == "" || username == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.rooms.Exists(roomID) {
		return
	}
	h.rooms.RemoveParticipant(roomID, username)
	h.count(metrics.RoomLeft)
	h.log.Debug("left room", "room", roomID, "identity", username)

	h.emitter.LeaveRoom(conn, roomID)
	h.emitter.ToRoom(roomID, conn, EventUserLeft, UserLeft{SocketID: conn, Username: username})
}

// HandleDisconnect runs the cleanup for a closed connection: the connection
// is unregistered, and the owning identity leaves its rooms only if this was
// its last open connection (an identity with another open tab stays put).
// Safe to invoke redundantly for an already-cleaned connection.
func (h *Hub) HandleDisconnect(conn string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	identity, online, ok := h.identities.UnregisterConnection(conn)
	if !ok {
		return
	}
	h.count(metrics.DisconnectCleanup)
	h.log.Debug("connection cleaned up", "conn", conn, "identity", identity, "still_online", online)

	if !online {
		for _, roomID := range h.rooms.RoomsWith(identity) {
			h.rooms.RemoveParticipant(roomID, identity)
			h.emitter.ToRoom(roomID, conn, EventUserLeft, UserLeft{SocketID: conn, Username: identity})
		}
	}

	h.emitter.Broadcast(EventOnlineUsers, h.identities.AllIdentities())
}

// OnlineIdentities returns the current presence snapshot.
func (h *Hub) OnlineIdentities() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.identities.AllIdentities()
}

// RoomParticipants returns the participant identities of roomID.
func (h *Hub) RoomParticipants(roomID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms.ParticipantsOf(roomID)
}

// RoomHost returns the host recorded for roomID.
func (h *Hub) RoomHost(roomID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms.Host(roomID)
}

func (h *Hub) count(name string) {
	if h.metrics != nil {
		h.metrics.Inc(name)
	}
}
