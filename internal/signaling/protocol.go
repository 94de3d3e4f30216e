package signaling

import "encoding/json"

// envelope is the inbound wire frame. Data stays raw until the event name
// selects a payload shape.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wireEnvelope is the outbound wire frame.
type wireEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// register carries a bare JSON string as its data, no struct needed.

type createRoomPayload struct {
	Host   string `json:"host"`
	RoomID string `json:"roomId"`
}

type inviteUsersPayload struct {
	RoomID  string   `json:"roomId"`
	Invited []string `json:"invited"`
	From    string   `json:"from"`
}

type joinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type signalPayload struct {
	ToSocketID string          `json:"toSocketId"`
	Data       json.RawMessage `json:"data"`
}

type leaveRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}
