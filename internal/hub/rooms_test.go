package hub

import (
	"reflect"
	"testing"
)

func TestRoomEnsureKeepsFirstHost(t *testing.T) {
	r := NewRoomRegistry()
	r.Ensure("r1", "alice")
	r.Ensure("r1", "bob")

	if host, ok := r.Host("r1"); !ok || host != "alice" {
		t.Fatalf("Host=%q/%v, want alice/true", host, ok)
	}
}

func TestRoomAddParticipantReportsFirstJoin(t *testing.T) {
	r := NewRoomRegistry()

	if !r.AddParticipant("r1", "alice") {
		t.Fatalf("first add reported false")
	}
	if r.AddParticipant("r1", "alice") {
		t.Fatalf("re-add reported true")
	}
	if got := r.ParticipantsOf("r1"); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("participants=%v, want [alice]", got)
	}
}

func TestRoomAddParticipantLazyCreates(t *testing.T) {
	r := NewRoomRegistry()
	r.AddParticipant("r1", "alice")

	if host, ok := r.Host("r1"); !ok || host != "alice" {
		t.Fatalf("Host=%q/%v, want alice as lazy-create host", host, ok)
	}
}

func TestRoomRemoveLastParticipantDeletesRoom(t *testing.T) {
	r := NewRoomRegistry()
	r.AddParticipant("r1", "alice")
	r.AddParticipant("r1", "bob")

	r.RemoveParticipant("r1", "alice")
	if !r.Exists("r1") {
		t.Fatalf("room deleted while a participant remains")
	}

	r.RemoveParticipant("r1", "bob")
	if r.Exists("r1") {
		t.Fatalf("empty room not deleted")
	}
	if got := r.ParticipantsOf("r1"); got != nil {
		t.Fatalf("ParticipantsOf deleted room=%v, want nil", got)
	}
}

func TestRoomRemoveUnknownIsNoOp(t *testing.T) {
	r := NewRoomRegistry()
	r.RemoveParticipant("nope", "alice")

	r.AddParticipant("r1", "alice")
	r.RemoveParticipant("r1", "stranger")
	if !r.Exists("r1") {
		t.Fatalf("room deleted by removing a non-participant")
	}
}

func TestRoomsWith(t *testing.T) {
	r := NewRoomRegistry()
	r.AddParticipant("r2", "alice")
	r.AddParticipant("r1", "alice")
	r.AddParticipant("r3", "bob")

	if got := r.RoomsWith("alice"); !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Fatalf("RoomsWith(alice)=%v, want [r1 r2]", got)
	}
	if got := r.RoomsWith("nobody"); got != nil {
		t.Fatalf("RoomsWith(nobody)=%v, want nil", got)
	}
}
