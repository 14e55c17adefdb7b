package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/courtside-live/broadcast-server/internal/metrics"
	"github.com/courtside-live/broadcast-server/internal/proto"
)

// Dispatcher decides immediate versus batched delivery and performs the
// fan-out. Messages at or above the high-priority threshold are delivered
// synchronously from Publish; everything else waits for the next flush
// tick. Because Publish delivers immediate messages on the caller's
// goroutine, arrival order is preserved on the immediate path; batched
// messages are ordered by priority within a tick and are not globally
// ordered against immediate ones.
type Dispatcher struct {
	reg   *Registry
	clock clockwork.Clock
	log   *zerolog.Logger

	threshold int
	batchSize int
	interval  time.Duration

	mu    sync.Mutex
	queue *pendingQueue

	flushing atomic.Bool

	// evict is invoked outside delivery for clients whose send buffer
	// overflowed. Set by the hub.
	evict func(c *Client, reason string)

	delivered atomic.Uint64
	bytes     atomic.Uint64
	dropped   atomic.Uint64
}

func newDispatcher(reg *Registry, clock clockwork.Clock, logger *zerolog.Logger, opts Options) *Dispatcher {
	return &Dispatcher{
		reg:       reg,
		clock:     clock,
		log:       logger,
		threshold: opts.HighPriorityThreshold,
		batchSize: opts.FlushBatchSize,
		interval:  opts.FlushInterval,
		queue:     newPendingQueue(opts.MaxPending),
	}
}

// Publish routes one message: immediate delivery above the threshold,
// otherwise into the bounded pending queue.
func (d *Dispatcher) Publish(msg Message) {
	if msg.Priority >= d.threshold {
		d.deliver(msg)
		return
	}

	d.mu.Lock()
	outcome := d.queue.push(msg)
	depth := d.queue.len()
	d.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	switch outcome {
	case pushDisplaced:
		d.dropped.Add(1)
		metrics.MessagesDropped.WithLabelValues("displaced").Inc()
		d.log.Debug().Str("channel", msg.Channel).Msg("pending queue full, displaced lowest-priority message")
	case pushRejected:
		d.dropped.Add(1)
		metrics.MessagesDropped.WithLabelValues("queue_full").Inc()
		d.log.Debug().Str("channel", msg.Channel).Int("priority", msg.Priority).Msg("pending queue full, message rejected")
	}
}

// deliver fans one message out to every subscribed client. The frame is
// serialized once and the same bytes reused for all recipients. A send
// failure never reaches the caller: slow consumers are collected and
// evicted after the fan-out so remaining clients still receive the message.
func (d *Dispatcher) deliver(msg Message) {
	frame, err := proto.MarshalBroadcast(msg.Event, msg.Payload, msg.Timestamp)
	if err != nil {
		d.log.Error().Err(err).Str("event", msg.Event).Msg("marshal broadcast frame")
		return
	}

	var slow []*Client
	recipients := 0
	d.reg.ForEach(func(c *Client) {
		if !c.Subscribed(msg.Channel) {
			return
		}
		queued, open := c.EnqueueFrame(frame)
		if !open {
			// Client closed between snapshot and send: silent no-op.
			return
		}
		if !queued {
			slow = append(slow, c)
			return
		}
		recipients++
	})

	for _, c := range slow {
		d.log.Warn().Str("client_id", c.ID).Msg("send buffer full, evicting slow consumer")
		if d.evict != nil {
			d.evict(c, "slow_consumer")
		}
	}

	if recipients > 0 {
		d.delivered.Add(uint64(recipients))
		d.bytes.Add(uint64(recipients * len(frame)))
		metrics.MessagesDelivered.Add(float64(recipients))
		metrics.BytesSent.Add(float64(recipients * len(frame)))
	}
}

// run drives the fixed-rate flush loop until the context is cancelled.
func (d *Dispatcher) run(ctx context.Context) {
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			d.flush()
		}
	}
}

// flush pops up to one batch and delivers it in queue order. The guard
// skips a tick that fires while a previous flush is still running, so
// overlapping ticks cannot double-send.
func (d *Dispatcher) flush() {
	if !d.flushing.CompareAndSwap(false, true) {
		return
	}
	defer d.flushing.Store(false)

	d.mu.Lock()
	batch := d.queue.popBatch(d.batchSize)
	depth := d.queue.len()
	d.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	metrics.FlushBatchSize.Observe(float64(len(batch)))

	for _, msg := range batch {
		d.deliver(msg)
	}
}

// QueueDepth returns the number of messages awaiting the next tick.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.len()
}
