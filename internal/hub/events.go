package hub

import "encoding/json"

// Inbound event names accepted from clients.
const (
	EventRegister    = "register"
	EventCreateRoom  = "create-room"
	EventInviteUsers = "invite-users"
	EventJoinRoom    = "join-room"
	EventSignal      = "signal"
	EventLeaveRoom   = "leave-room"
)

// Outbound event names. EventSignal is reused verbatim for relayed payloads.
const (
	EventOnlineUsers      = "onlineUsers"
	EventRoomCreated      = "room-created"
	EventInvitation       = "invitation"
	EventUserNotAvailable = "userNotAvailable"
	EventAllUsers         = "all-users"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
)

type RoomCreated struct {
	RoomID string `json:"roomId"`
}

type Invitation struct {
	RoomID string `json:"roomId"`
	From   string `json:"from"`
}

type UserNotAvailable struct {
	Username string `json:"username"`
}

type UserJoined struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

type UserLeft struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

// SignalRelay wraps an opaque negotiation payload with the sending
// connection's id. Data is never inspected.
type SignalRelay struct {
	From string          `json:"from"`
	Data json.RawMessage `json:"data"`
}

// Emitter is the transport-side delivery surface the hub drives. All methods
// are fire-and-forget: implementations must not block, because the hub calls
// them while holding its lock and never waits for delivery.
//
// Room groups are kept by the transport (the hub's RoomRegistry holds
// identities, not connections); JoinRoom and LeaveRoom maintain them.
type Emitter interface {
	// ToConnection delivers event to a single connection. Unknown connection
	// ids are dropped silently.
	ToConnection(conn, event string, payload any)

	// ToRoom delivers event to every connection joined to roomID's transport
	// group except the given connection (pass "" to exclude nobody).
	ToRoom(roomID, except, event string, payload any)

	// Broadcast delivers event to every open connection.
	Broadcast(event string, payload any)

	JoinRoom(conn, roomID string)
	LeaveRoom(conn, roomID string)
}
