package hub

import "sort"

type room struct {
	host         string
	participants map[string]struct{}
}

// RoomRegistry tracks rooms and their participant identities.
//
// Membership is per identity, never per connection; fan-out to connections is
// computed on demand through the IdentityRegistry. A room with an empty
// participant set is deleted immediately, so an empty room is never
// observable.
//
// Like IdentityRegistry, access is serialized by the Hub.
type RoomRegistry struct {
	rooms map[string]*room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]*room)}
}

// Ensure creates roomID with the given host if it does not exist. The host of
// an existing room is never overwritten.
func (r *RoomRegistry) Ensure(roomID, host string) {
	if _, ok := r.rooms[roomID]; ok {
		return
	}
	r.rooms[roomID] = &room{
		host:         host,
		participants: make(map[string]struct{}),
	}
}

// AddParticipant adds identity to roomID, creating the room with identity as
// host if needed. It reports whether identity was newly added, which callers
// use to tell a first join from a re-join.
func (r *RoomRegistry) AddParticipant(roomID, identity string) bool {
	r.Ensure(roomID, identity)
	rm := r.rooms[roomID]
	if _, ok := rm.participants[identity]; ok {
		return false
	}
	rm.participants[identity] = struct{}{}
	return true
}

// RemoveParticipant removes identity from roomID and deletes the room once
// its participant set becomes empty. Unknown rooms and non-participants are a
// no-op.
func (r *RoomRegistry) RemoveParticipant(roomID, identity string) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(rm.participants, identity)
	if len(rm.participants) == 0 {
		delete(r.rooms, roomID)
	}
}

// ParticipantsOf returns a sorted snapshot of roomID's participant
// identities, empty when the room does not exist.
func (r *RoomRegistry) ParticipantsOf(roomID string) []string {
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rm.participants))
	for p := range rm.participants {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RoomsWith returns the ids of every room identity currently participates
// in, sorted for deterministic cleanup order.
func (r *RoomRegistry) RoomsWith(identity string) []string {
	var out []string
	for id, rm := range r.rooms {
		if _, ok := rm.participants[identity]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Host returns the host identity recorded when roomID was created.
func (r *RoomRegistry) Host(roomID string) (string, bool) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return "", false
	}
	return rm.host, true
}

// Exists reports whether roomID is present.
func (r *RoomRegistry) Exists(roomID string) bool {
	_, ok := r.rooms[roomID]
	return ok
}
