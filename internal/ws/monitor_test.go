package ws

import (
	"testing"
	"time"
)

func TestMonitorSweepEvictsStaleConnections(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRooms(reg)

	staleSock := &fakeSocket{}
	freshSock := &fakeSocket{}
	stale := reg.Register(staleSock, "user-1", "tenant-1")
	fresh := reg.Register(freshSock, "user-2", "tenant-1")
	rooms.Join(stale, "chat-1")

	time.Sleep(30 * time.Millisecond)
	reg.Touch(fresh)

	monitor := NewMonitor(reg, time.Minute, 20*time.Millisecond)
	monitor.Sweep()

	if _, ok := reg.Get(stale); ok {
		t.Fatal("expected stale connection to be evicted")
	}
	if !staleSock.isClosed() {
		t.Fatal("expected stale socket to be closed")
	}
	if _, ok := reg.Get(fresh); !ok {
		t.Fatal("expected fresh connection to survive")
	}
	if freshSock.isClosed() {
		t.Fatal("expected fresh socket to stay open")
	}
	// Eviction releases room membership too.
	if rooms.Count() != 0 {
		t.Fatalf("expected no active rooms, got %d", rooms.Count())
	}
}

func TestMonitorDefaults(t *testing.T) {
	monitor := NewMonitor(NewRegistry(), 0, 0)
	if monitor.interval != 30*time.Second {
		t.Fatalf("unexpected default interval: %v", monitor.interval)
	}
	if monitor.timeout != 60*time.Second {
		t.Fatalf("unexpected default timeout: %v", monitor.timeout)
	}
}
