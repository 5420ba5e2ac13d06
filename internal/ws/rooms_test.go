package ws

import "testing"

func newRoomsFixture(t *testing.T) (*Registry, *Rooms) {
	t.Helper()
	reg := NewRegistry()
	return reg, NewRooms(reg)
}

func TestRoomsJoinAndMembers(t *testing.T) {
	reg, rooms := newRoomsFixture(t)
	a := reg.Register(&fakeSocket{}, "user-1", "tenant-1")
	b := reg.Register(&fakeSocket{}, "user-2", "tenant-1")

	rooms.Join(a, "chat-1")
	rooms.Join(b, "chat-1")

	members := rooms.Members("chat-1")
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	info, _ := reg.Get(a)
	if info.RoomID != "chat-1" {
		t.Fatalf("expected room snapshot on connection, got %q", info.RoomID)
	}
}

func TestRoomsJoinLeavesPreviousRoom(t *testing.T) {
	reg, rooms := newRoomsFixture(t)
	connID := reg.Register(&fakeSocket{}, "user-1", "tenant-1")

	rooms.Join(connID, "chat-1")
	rooms.Join(connID, "chat-2")

	if members := rooms.Members("chat-1"); len(members) != 0 {
		t.Fatalf("expected chat-1 to be empty, got %v", members)
	}
	if members := rooms.Members("chat-2"); len(members) != 1 {
		t.Fatalf("expected chat-2 to hold the connection, got %v", members)
	}
	// The emptied room must be gone, not linger as an empty entry.
	if rooms.Count() != 1 {
		t.Fatalf("expected 1 active room, got %d", rooms.Count())
	}

	info, _ := reg.Get(connID)
	if info.RoomID != "chat-2" {
		t.Fatalf("expected room snapshot chat-2, got %q", info.RoomID)
	}
}

func TestRoomsRejoinSameRoomIsNoOp(t *testing.T) {
	reg, rooms := newRoomsFixture(t)
	connID := reg.Register(&fakeSocket{}, "user-1", "tenant-1")

	rooms.Join(connID, "chat-1")
	rooms.Join(connID, "chat-1")

	if members := rooms.Members("chat-1"); len(members) != 1 {
		t.Fatalf("expected single membership, got %v", members)
	}
}

func TestRoomsLeaveRemovesEmptyRoom(t *testing.T) {
	reg, rooms := newRoomsFixture(t)
	connID := reg.Register(&fakeSocket{}, "user-1", "tenant-1")

	rooms.Join(connID, "chat-1")
	rooms.Leave(connID)

	if rooms.Count() != 0 {
		t.Fatalf("expected no active rooms, got %d", rooms.Count())
	}
	if _, ok := rooms.Room(connID); ok {
		t.Fatal("expected connection to have no room")
	}

	info, _ := reg.Get(connID)
	if info.RoomID != "" {
		t.Fatalf("expected cleared room snapshot, got %q", info.RoomID)
	}

	// Leaving again is a no-op.
	rooms.Leave(connID)
}

func TestRoomsBroadcastExcludesSender(t *testing.T) {
	reg, rooms := newRoomsFixture(t)
	sockA := &fakeSocket{}
	sockB := &fakeSocket{}
	a := reg.Register(sockA, "user-1", "tenant-1")
	b := reg.Register(sockB, "user-2", "tenant-1")
	rooms.Join(a, "chat-1")
	rooms.Join(b, "chat-1")

	rooms.Broadcast("chat-1", NewEnvelope(KindUserTyping, TypingPayload{ChatID: "chat-1", UserID: "user-1"}), a)

	if len(sockA.kinds()) != 0 {
		t.Fatalf("expected sender to receive nothing, got %v", sockA.kinds())
	}
	if kinds := sockB.kinds(); len(kinds) != 1 || kinds[0] != KindUserTyping {
		t.Fatalf("expected peer to receive user_typing, got %v", kinds)
	}
}

func TestRoomsBroadcastIsIsolatedPerRoom(t *testing.T) {
	reg, rooms := newRoomsFixture(t)
	sockA := &fakeSocket{}
	sockB := &fakeSocket{}
	a := reg.Register(sockA, "user-1", "tenant-1")
	b := reg.Register(sockB, "user-2", "tenant-1")
	rooms.Join(a, "chat-1")
	rooms.Join(b, "chat-2")

	rooms.Broadcast("chat-1", NewEnvelope(KindPong, nil), "")

	if len(sockA.kinds()) != 1 {
		t.Fatal("expected chat-1 member to receive the envelope")
	}
	if len(sockB.kinds()) != 0 {
		t.Fatal("expected chat-2 member to receive nothing")
	}
}

func TestRoomsUnregisterReleasesMembership(t *testing.T) {
	reg, rooms := newRoomsFixture(t)
	connID := reg.Register(&fakeSocket{}, "user-1", "tenant-1")
	rooms.Join(connID, "chat-1")

	reg.Unregister(connID)

	if rooms.Count() != 0 {
		t.Fatalf("expected no active rooms after unregister, got %d", rooms.Count())
	}
	if members := rooms.Members("chat-1"); len(members) != 0 {
		t.Fatalf("expected no members, got %v", members)
	}
}
