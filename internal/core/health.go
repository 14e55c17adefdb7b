package core

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// healthMonitor periodically sweeps the registry for clients with no
// inbound activity past the idle timeout. Most disconnects are caught by
// the connection manager's close path; the sweep exists for half-open
// sockets the transport has not reported closed yet. Idle but still-open
// clients get a transport-level ping request; a failed ping evicts them on
// the write loop's error path. Entries already closed are removed directly.
type healthMonitor struct {
	reg   *Registry
	clock clockwork.Clock
	log   *zerolog.Logger

	interval    time.Duration
	idleTimeout time.Duration

	// remove evicts a lingering client. Set by the hub.
	remove func(c *Client, reason string)
}

func (m *healthMonitor) run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.sweep()
		}
	}
}

func (m *healthMonitor) sweep() {
	now := m.clock.Now()
	m.reg.ForEach(func(c *Client) {
		idle := now.Sub(c.LastActivity())
		if idle < m.idleTimeout {
			return
		}
		switch c.State() {
		case StateClosing, StateClosed:
			if m.remove != nil {
				m.remove(c, "stale")
			}
		default:
			m.log.Debug().Str("client_id", c.ID).Dur("idle", idle).Msg("pinging idle client")
			c.RequestPing()
		}
	})
}
