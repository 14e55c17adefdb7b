package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddAndDuplicate(t *testing.T) {
	reg := NewRegistry()

	c := NewClient("c1", 8)
	require.Equal(t, StateConnecting, c.State())
	require.NoError(t, reg.Add(c))
	assert.Equal(t, StateOpen, c.State())
	assert.Equal(t, 1, reg.Len())

	dup := NewClient("c1", 8)
	err := reg.Add(dup)
	require.ErrorIs(t, err, ErrDuplicateClient)
	assert.Equal(t, 1, reg.Len())

	// The original entry survives a failed add.
	got, ok := reg.Get("c1")
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	c := NewClient("c1", 8)
	require.NoError(t, reg.Add(c))

	removed := reg.Remove("c1")
	require.Same(t, c, removed)
	assert.Equal(t, StateClosed, c.State())

	// The close path and a health eviction may race to remove the same id.
	assert.Nil(t, reg.Remove("c1"))
	assert.Nil(t, reg.Remove("ghost"))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistrySubscribeUnknownIDIsNoOp(t *testing.T) {
	reg := NewRegistry()
	reg.Subscribe("ghost", []string{ChannelPredictions})
	reg.Unsubscribe("ghost", []string{ChannelPredictions})
	assert.Equal(t, 0, reg.Len())
}

func TestRegistrySubscriptionMatching(t *testing.T) {
	reg := NewRegistry()
	c := NewClient("c1", 8)
	require.NoError(t, reg.Add(c))

	// Default subscription is the catch-all.
	assert.True(t, c.Subscribed(ChannelPredictions))
	assert.True(t, c.Subscribed(ChannelAlerts))

	// First explicit subscribe replaces the catch-all default.
	reg.Subscribe("c1", []string{ChannelPredictions})
	assert.True(t, c.Subscribed(ChannelPredictions))
	assert.False(t, c.Subscribed(ChannelAlerts))

	reg.Subscribe("c1", []string{ChannelAlerts})
	assert.True(t, c.Subscribed(ChannelPredictions))
	assert.True(t, c.Subscribed(ChannelAlerts))

	reg.Unsubscribe("c1", []string{ChannelPredictions})
	assert.False(t, c.Subscribed(ChannelPredictions))

	// Re-subscribing to "all" restores the catch-all.
	reg.Subscribe("c1", []string{ChannelAll})
	assert.True(t, c.Subscribed(ChannelPredictions))
}

func TestRegistryForEachToleratesRemovalDuringIteration(t *testing.T) {
	reg := NewRegistry()
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		require.NoError(t, reg.Add(NewClient(id, 8)))
	}

	visited := 0
	reg.ForEach(func(c *Client) {
		visited++
		// Removing mid-iteration must not corrupt the sweep or skip
		// unrelated entries.
		reg.Remove(c.ID)
	})

	assert.Equal(t, len(ids), visited)
	assert.Equal(t, 0, reg.Len())
}
