package ws

import (
	"context"
	"log"
	"time"
)

// Monitor sweeps the registry on a fixed interval and evicts connections
// whose heartbeat has gone silent for longer than the timeout.
type Monitor struct {
	reg      *Registry
	interval time.Duration
	timeout  time.Duration
}

func NewMonitor(reg *Registry, interval, timeout time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Monitor{reg: reg, interval: interval, timeout: timeout}
}

// Run blocks until the context is cancelled, sweeping once per interval.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep evicts every stale connection once.
func (m *Monitor) Sweep() {
	for _, id := range m.reg.Stale(m.timeout) {
		log.Printf("[ws] evicting stale connection %s", id)
		m.reg.Evict(id)
	}
}
