package ws

import (
	"log"
	"sync"
)

type room struct {
	mu      sync.RWMutex
	members map[string]struct{}
}

// Rooms maps chat ids to the connections watching them. Built on the
// Registry: joining updates the connection's room snapshot, and
// unregistration releases membership through the registry hook.
//
// A connection belongs to at most one room, joining a new chat leaves the
// previous one. A room exists only while it has members.
type Rooms struct {
	reg *Registry

	mu     sync.RWMutex
	rooms  map[string]*room
	byConn map[string]string
}

func NewRooms(reg *Registry) *Rooms {
	rm := &Rooms{
		reg:    reg,
		rooms:  make(map[string]*room),
		byConn: make(map[string]string),
	}
	reg.onUnregister = rm.Leave
	return rm
}

// Join places the connection in the chat's room, leaving any previous room
// first. Joining the current room is a no-op.
func (rm *Rooms) Join(connID, chatID string) {
	if chatID == "" {
		return
	}

	rm.mu.Lock()
	prev := rm.byConn[connID]
	if prev == chatID {
		rm.mu.Unlock()
		return
	}
	if prev != "" {
		rm.removeLocked(connID, prev)
	}

	rt, ok := rm.rooms[chatID]
	if !ok {
		rt = &room{members: make(map[string]struct{})}
		rm.rooms[chatID] = rt
	}
	rt.mu.Lock()
	rt.members[connID] = struct{}{}
	rt.mu.Unlock()
	rm.byConn[connID] = chatID
	rm.mu.Unlock()

	rm.reg.setRoom(connID, chatID)
	log.Printf("[ws] connection %s joined chat %s", connID, chatID)
}

// Leave removes the connection from its room, if any.
func (rm *Rooms) Leave(connID string) {
	rm.mu.Lock()
	chatID := rm.byConn[connID]
	if chatID == "" {
		rm.mu.Unlock()
		return
	}
	rm.removeLocked(connID, chatID)
	rm.mu.Unlock()

	rm.reg.setRoom(connID, "")
	log.Printf("[ws] connection %s left chat %s", connID, chatID)
}

// removeLocked drops the connection from a room and reaps the room when it
// empties. Caller holds rm.mu.
func (rm *Rooms) removeLocked(connID, chatID string) {
	delete(rm.byConn, connID)
	rt, ok := rm.rooms[chatID]
	if !ok {
		return
	}
	rt.mu.Lock()
	delete(rt.members, connID)
	empty := len(rt.members) == 0
	rt.mu.Unlock()
	if empty {
		delete(rm.rooms, chatID)
	}
}

// Members returns a snapshot of the connection ids in the chat's room.
func (rm *Rooms) Members(chatID string) []string {
	rm.mu.RLock()
	rt, ok := rm.rooms[chatID]
	rm.mu.RUnlock()
	if !ok {
		return nil
	}

	rt.mu.RLock()
	defer rt.mu.RUnlock()
	ids := make([]string, 0, len(rt.members))
	for id := range rt.members {
		ids = append(ids, id)
	}
	return ids
}

// Room returns the chat id the connection is watching, if any.
func (rm *Rooms) Room(connID string) (string, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	chatID, ok := rm.byConn[connID]
	return chatID, ok && chatID != ""
}

// Broadcast sends an envelope to every member of the chat's room except
// excludeConnID. Writes happen outside the directory locks so a slow room
// never stalls an unrelated one.
func (rm *Rooms) Broadcast(chatID string, v any, excludeConnID string) {
	for _, id := range rm.Members(chatID) {
		if id == excludeConnID {
			continue
		}
		rm.reg.Send(id, v)
	}
}

// Count returns the number of active rooms.
func (rm *Rooms) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
