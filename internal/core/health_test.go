package core

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHealthMonitor(reg *Registry, fc *clockwork.FakeClock, remove func(*Client, string)) *healthMonitor {
	return &healthMonitor{
		reg:         reg,
		clock:       fc,
		log:         testLogger(),
		interval:    30 * time.Second,
		idleTimeout: 60 * time.Second,
		remove:      remove,
	}
}

func TestHealthSweepPingsIdleClients(t *testing.T) {
	reg := NewRegistry()
	fc := clockwork.NewFakeClock()
	m := testHealthMonitor(reg, fc, nil)

	idle := NewClient("idle", 8)
	active := NewClient("active", 8)
	require.NoError(t, reg.Add(idle))
	require.NoError(t, reg.Add(active))

	idle.Touch(fc.Now())
	active.Touch(fc.Now())

	// Half the timeout: nobody is pinged yet.
	fc.Advance(30 * time.Second)
	m.sweep()
	assert.Empty(t, idle.Pings())
	assert.Empty(t, active.Pings())

	// Past the timeout: only the silent client is pinged.
	fc.Advance(31 * time.Second)
	active.Touch(fc.Now())
	m.sweep()

	assert.Len(t, idle.Pings(), 1)
	assert.Empty(t, active.Pings())
	assert.Equal(t, 2, reg.Len())
}

func TestHealthSweepRemovesLingeringClosedClients(t *testing.T) {
	reg := NewRegistry()
	fc := clockwork.NewFakeClock()

	var removed []string
	m := testHealthMonitor(reg, fc, func(c *Client, reason string) {
		removed = append(removed, c.ID)
		reg.Remove(c.ID)
	})

	c := NewClient("half-open", 8)
	require.NoError(t, reg.Add(c))
	c.Touch(fc.Now())

	// Transport stopped reporting but the registry entry lingered.
	c.beginClose()

	fc.Advance(61 * time.Second)
	m.sweep()

	assert.Equal(t, []string{"half-open"}, removed)
	assert.Equal(t, 0, reg.Len())
}

func TestHealthSweepCollapsesPingRequests(t *testing.T) {
	reg := NewRegistry()
	fc := clockwork.NewFakeClock()
	m := testHealthMonitor(reg, fc, nil)

	c := NewClient("idle", 8)
	require.NoError(t, reg.Add(c))
	c.Touch(fc.Now())

	fc.Advance(2 * time.Minute)
	m.sweep()
	m.sweep()

	// A write loop that has not drained yet sees one pending request.
	assert.Len(t, c.Pings(), 1)
}
