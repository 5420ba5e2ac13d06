package ws

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Socket is the slice of a websocket connection the registry needs. Satisfied
// by *websocket.Conn.
type Socket interface {
	WriteJSON(v any) error
	Close() error
}

// ConnInfo is a snapshot of a live connection's metadata.
type ConnInfo struct {
	ID            string
	UserID        string
	TenantID      string
	RoomID        string
	ConnectedAt   time.Time
	LastHeartbeat time.Time
}

type connection struct {
	sock Socket
	// writeMu serializes writes, gorilla connections allow one writer at a
	// time.
	writeMu sync.Mutex
	info    ConnInfo
}

// Registry tracks every live connection for the process, keyed by an opaque
// connection id assigned at registration.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection

	// onUnregister runs before a connection is dropped, set by NewRooms so
	// room membership is released first.
	onUnregister func(connID string)
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*connection)}
}

// Register records a connection and returns its assigned id.
func (r *Registry) Register(sock Socket, userID, tenantID string) string {
	now := time.Now()
	conn := &connection{
		sock: sock,
		info: ConnInfo{
			ID:            uuid.New().String(),
			UserID:        userID,
			TenantID:      tenantID,
			ConnectedAt:   now,
			LastHeartbeat: now,
		},
	}

	r.mu.Lock()
	r.conns[conn.info.ID] = conn
	r.mu.Unlock()

	log.Printf("[ws] connection registered: %s (user %s)", conn.info.ID, userID)
	return conn.info.ID
}

// Unregister drops a connection, releasing its room membership first.
// Unknown ids are a no-op, so disconnect paths may race with eviction.
func (r *Registry) Unregister(connID string) {
	if r.onUnregister != nil {
		r.onUnregister(connID)
	}

	r.mu.Lock()
	_, ok := r.conns[connID]
	delete(r.conns, connID)
	r.mu.Unlock()

	if ok {
		log.Printf("[ws] connection unregistered: %s", connID)
	}
}

// Get returns a snapshot of the connection's metadata.
func (r *Registry) Get(connID string) (ConnInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connID]
	if !ok {
		return ConnInfo{}, false
	}
	return conn.info, true
}

// Touch refreshes the connection's heartbeat timestamp.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[connID]; ok {
		conn.info.LastHeartbeat = time.Now()
	}
}

// Send delivers one envelope to one connection. Failures are logged and
// dropped, a dead socket is reaped by the heartbeat monitor.
func (r *Registry) Send(connID string, v any) {
	r.mu.RLock()
	conn, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	conn.writeMu.Lock()
	err := conn.sock.WriteJSON(v)
	conn.writeMu.Unlock()
	if err != nil {
		log.Printf("[ws] write to %s failed: %v", connID, err)
	}
}

// BroadcastToTenant sends an envelope to every connection of a tenant.
func (r *Registry) BroadcastToTenant(tenantID string, v any) {
	r.mu.RLock()
	ids := make([]string, 0)
	for id, conn := range r.conns {
		if conn.info.TenantID == tenantID {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Send(id, v)
	}
}

// Stale returns the ids of connections whose last heartbeat is older than
// the timeout.
func (r *Registry) Stale(timeout time.Duration) []string {
	cutoff := time.Now().Add(-timeout)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, conn := range r.conns {
		if conn.info.LastHeartbeat.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Evict unregisters a connection and closes its socket.
func (r *Registry) Evict(connID string) {
	r.mu.RLock()
	conn, ok := r.conns[connID]
	r.mu.RUnlock()

	r.Unregister(connID)
	if ok {
		_ = conn.sock.Close()
	}
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) setRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[connID]; ok {
		conn.info.RoomID = roomID
	}
}
