package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDispatcher(t *testing.T, opts Options) (*Dispatcher, *Registry, *clockwork.FakeClock) {
	t.Helper()

	reg := NewRegistry()
	fc := clockwork.NewFakeClock()
	d := newDispatcher(reg, fc, testLogger(), opts.withDefaults())
	return d, reg, fc
}

// startFlushLoop runs the dispatcher loop and waits until its ticker is
// armed so the fake clock can be advanced deterministically.
func startFlushLoop(t *testing.T, d *Dispatcher, fc *clockwork.FakeClock) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.run(ctx)
	fc.BlockUntil(1)
}

// awaitFlushDone spins until the current flush released its guard.
func awaitFlushDone(t *testing.T, d *Dispatcher) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for d.flushing.Load() {
		if time.Now().After(deadline) {
			t.Fatal("flush did not finish")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPublishHighPriorityDeliversImmediately(t *testing.T) {
	d, reg, _ := testDispatcher(t, Options{})
	c := NewClient("c1", 8)
	require.NoError(t, reg.Add(c))

	// No flush loop is running: only the immediate path can deliver.
	d.Publish(NewMessage("urgent_alert", ChannelAlerts, NotificationPayload{Title: "t"}, 9))

	f := mustFrame(t, c.Frames())
	assert.Equal(t, "urgent_alert", f.Type)
	assert.Zero(t, d.QueueDepth())
}

func TestPublishBelowThresholdWaitsForTick(t *testing.T) {
	d, reg, fc := testDispatcher(t, Options{})
	c := NewClient("c1", 8)
	require.NoError(t, reg.Add(c))

	d.Publish(NewMessage("metric_tick", ChannelMetrics, nil, 5))
	noFrame(t, c.Frames())
	assert.Equal(t, 1, d.QueueDepth())

	startFlushLoop(t, d, fc)
	fc.Advance(10 * time.Millisecond)

	f := mustFrame(t, c.Frames())
	assert.Equal(t, "metric_tick", f.Type)
	assert.Zero(t, d.QueueDepth())
}

func TestImmediatePathPreservesArrivalOrder(t *testing.T) {
	d, reg, _ := testDispatcher(t, Options{})
	c := NewClient("c1", 8)
	require.NoError(t, reg.Add(c))

	d.Publish(NewMessage("first", ChannelAlerts, nil, 9))
	d.Publish(NewMessage("second", ChannelAlerts, nil, 9))

	assert.Equal(t, "first", mustFrame(t, c.Frames()).Type)
	assert.Equal(t, "second", mustFrame(t, c.Frames()).Type)
}

func TestThresholdBoundary(t *testing.T) {
	d, reg, _ := testDispatcher(t, Options{})
	c := NewClient("c1", 8)
	require.NoError(t, reg.Add(c))

	d.Publish(NewMessage("at_threshold", ChannelAlerts, nil, 8))
	assert.Equal(t, "at_threshold", mustFrame(t, c.Frames()).Type)

	d.Publish(NewMessage("below_threshold", ChannelAlerts, nil, 7))
	noFrame(t, c.Frames())
	assert.Equal(t, 1, d.QueueDepth())
}

func TestNoDuplicateDeliveryForAllAndExplicitMatch(t *testing.T) {
	d, reg, _ := testDispatcher(t, Options{})
	c := NewClient("c1", 8)
	require.NoError(t, reg.Add(c))

	// Subscribed to both "all" and the explicit channel.
	c.Subscribe(ChannelAll, ChannelPredictions)

	d.Publish(NewMessage("new_prediction", ChannelPredictions, nil, 9))

	mustFrame(t, c.Frames())
	noFrame(t, c.Frames())
}

func TestBatchRespectsBatchSizeAcrossTicks(t *testing.T) {
	d, reg, fc := testDispatcher(t, Options{})
	c := NewClient("c1", 256)
	require.NoError(t, reg.Add(c))

	// 150 normal-priority messages inside one tick window, mixed priorities.
	for i := 0; i < 150; i++ {
		d.Publish(NewMessage(fmt.Sprintf("m%d", i), ChannelMetrics, nil, i%8))
	}
	require.Equal(t, 150, d.QueueDepth())

	startFlushLoop(t, d, fc)
	fc.Advance(10 * time.Millisecond)

	first := collectFrames(t, c.Frames(), 100)
	assertDescendingPriority(t, d, first)
	noFrame(t, c.Frames())
	awaitFlushDone(t, d)
	assert.Equal(t, 50, d.QueueDepth())

	fc.Advance(10 * time.Millisecond)
	collectFrames(t, c.Frames(), 50)
	noFrame(t, c.Frames())
	assert.Zero(t, d.QueueDepth())
}

func collectFrames(t *testing.T, ch <-chan []byte, n int) []frame {
	t.Helper()

	out := make([]frame, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, mustFrame(t, ch))
	}
	return out
}

// assertDescendingPriority checks that the batch was delivered most urgent
// first. Priorities are recovered from the event names used in the test.
func assertDescendingPriority(t *testing.T, d *Dispatcher, frames []frame) {
	t.Helper()

	prev := MaxPriority
	for _, f := range frames {
		var idx int
		_, err := fmt.Sscanf(f.Type, "m%d", &idx)
		require.NoError(t, err)
		prio := idx % 8
		assert.LessOrEqual(t, prio, prev, "batch must be delivered in descending priority order")
		prev = prio
	}
}

func TestSlowConsumerIsEvictedWithoutDisturbingOthers(t *testing.T) {
	d, reg, _ := testDispatcher(t, Options{})

	var evicted []string
	d.evict = func(c *Client, reason string) {
		evicted = append(evicted, c.ID)
		reg.Remove(c.ID)
	}

	slow := NewClient("slow", 1)
	healthy := NewClient("healthy", 8)
	require.NoError(t, reg.Add(slow))
	require.NoError(t, reg.Add(healthy))

	// The first message fills the slow client's buffer; nothing drains it.
	d.Publish(NewMessage("first", ChannelAlerts, nil, 9))
	d.Publish(NewMessage("second", ChannelAlerts, nil, 9))

	assert.Equal(t, []string{"slow"}, evicted)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, StateClosed, slow.State())

	// The healthy client still received both messages.
	assert.Equal(t, "first", mustFrame(t, healthy.Frames()).Type)
	assert.Equal(t, "second", mustFrame(t, healthy.Frames()).Type)
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	d, _, _ := testDispatcher(t, Options{MaxPending: 3})

	for i := 0; i < 3; i++ {
		d.Publish(NewMessage(fmt.Sprintf("m%d", i), ChannelMetrics, nil, 5))
	}
	assert.Equal(t, 3, d.QueueDepth())

	// Equal urgency is rejected; higher urgency displaces.
	d.Publish(NewMessage("rejected", ChannelMetrics, nil, 5))
	assert.Equal(t, 3, d.QueueDepth())
	d.Publish(NewMessage("displacer", ChannelMetrics, nil, 7))
	assert.Equal(t, 3, d.QueueDepth())

	assert.Equal(t, uint64(2), d.dropped.Load())
}

func TestDeliverSkipsClosedClients(t *testing.T) {
	d, reg, _ := testDispatcher(t, Options{})
	c := NewClient("c1", 8)
	require.NoError(t, reg.Add(c))
	reg.Remove("c1")

	// Late-arriving broadcast for a closed client is a silent no-op.
	d.Publish(NewMessage("late", ChannelAlerts, nil, 9))
	assert.Zero(t, d.delivered.Load())
}
