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

// Options tunes the hub's dispatch and health policies. Zero values fall
// back to the production defaults.
type Options struct {
	FlushInterval         time.Duration
	FlushBatchSize        int
	MaxPending            int
	HighPriorityThreshold int
	HealthInterval        time.Duration
	IdleTimeout           time.Duration
}

func (o Options) withDefaults() Options {
	if o.FlushInterval <= 0 {
		o.FlushInterval = 10 * time.Millisecond
	}
	if o.FlushBatchSize <= 0 {
		o.FlushBatchSize = 100
	}
	if o.MaxPending <= 0 {
		o.MaxPending = 1024
	}
	if o.HighPriorityThreshold <= 0 {
		o.HighPriorityThreshold = 8
	}
	if o.HealthInterval <= 0 {
		o.HealthInterval = 30 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 60 * time.Second
	}
	return o
}

// Hub owns the client registry, the priority dispatcher, and the health
// monitor. It is the single synchronization boundary for broadcaster state;
// transports and the ingest adapter only ever talk to the hub. A client
// that is evicted must reconnect and re-subscribe: the hub holds no session
// state across a disconnect.
type Hub struct {
	log   *zerolog.Logger
	clock clockwork.Clock
	opts  Options

	reg    *Registry
	disp   *Dispatcher
	health *healthMonitor

	ctx    context.Context
	cancel context.CancelFunc

	shutdownOnce sync.Once
	evicted      atomic.Uint64
}

// NewHub wires the registry, dispatcher, and health monitor. A nil clock
// means wall-clock time.
func NewHub(opts Options, logger *zerolog.Logger, clock clockwork.Clock) *Hub {
	opts = opts.withDefaults()
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		log:    logger,
		clock:  clock,
		opts:   opts,
		reg:    NewRegistry(),
		ctx:    ctx,
		cancel: cancel,
	}

	h.disp = newDispatcher(h.reg, clock, logger, opts)
	h.disp.evict = h.evict

	h.health = &healthMonitor{
		reg:         h.reg,
		clock:       clock,
		log:         logger,
		interval:    opts.HealthInterval,
		idleTimeout: opts.IdleTimeout,
		remove:      h.evict,
	}

	return h
}

// Run starts the flush and health loops and blocks until the given context
// is cancelled, then shuts down.
func (h *Hub) Run(ctx context.Context) {
	go h.disp.run(h.ctx)
	go h.health.run(h.ctx)

	select {
	case <-ctx.Done():
		h.Shutdown()
	case <-h.ctx.Done():
	}
}

// Register adds a newly connected client; on success the client is OPEN.
// A duplicate id is an internal invariant violation: counted, logged, and
// the add aborted.
func (h *Hub) Register(c *Client) error {
	if err := h.reg.Add(c); err != nil {
		metrics.InvariantViolations.Inc()
		h.log.Error().Err(err).Str("client_id", c.ID).Msg("registry add failed")
		return err
	}
	h.log.Info().Str("client_id", c.ID).Msg("client connected")
	return nil
}

// Unregister removes a client after its transport closed or errored.
// Idempotent: the close path and a health eviction may race here.
func (h *Hub) Unregister(id string) {
	if h.reg.Remove(id) != nil {
		h.log.Info().Str("client_id", id).Msg("client disconnected")
	}
}

// Publish hands a message to the priority dispatcher.
func (h *Hub) Publish(msg Message) {
	h.disp.Publish(msg)
}

// Subscribe adds channels to a client's subscription set; unknown ids are
// silently ignored.
func (h *Hub) Subscribe(id string, channels []string) {
	h.reg.Subscribe(id, channels)
}

// Unsubscribe removes channels from a client's subscription set.
func (h *Hub) Unsubscribe(id string, channels []string) {
	h.reg.Unsubscribe(id, channels)
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	return h.reg.Len()
}

// Shutdown broadcasts a shutdown notice on the immediate path, closes every
// client, and stops the flush and health timers. Idempotent: a second call
// finds nothing to close and no timers to stop.
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() {
		h.log.Info().Int("clients", h.reg.Len()).Msg("hub shutting down")

		// Immediate path so the notice cannot queue behind pending batches.
		h.disp.deliver(NewMessage(proto.OutboundTypeShutdown, ChannelAll, ShutdownPayload{Reason: "server shutting down"}, MaxPriority))

		h.reg.ForEach(func(c *Client) {
			if h.reg.Remove(c.ID) != nil {
				metrics.ClientsEvicted.WithLabelValues("shutdown").Inc()
			}
		})

		h.cancel()
	})
}

// Evict force-removes a client for cause, e.g. a failed keepalive ping.
func (h *Hub) Evict(c *Client, reason string) {
	h.evict(c, reason)
}

// evict force-removes a client. No-op when the close path got there first.
func (h *Hub) evict(c *Client, reason string) {
	if h.reg.Remove(c.ID) == nil {
		return
	}
	h.evicted.Add(1)
	metrics.ClientsEvicted.WithLabelValues(reason).Inc()
	h.log.Warn().Str("client_id", c.ID).Str("reason", reason).Msg("client evicted")
}

// Stats is a point-in-time snapshot of the hub's counters for external
// observability.
type Stats struct {
	ActiveClients     int    `json:"activeClients"`
	MessagesDelivered uint64 `json:"messagesDelivered"`
	BytesSent         uint64 `json:"bytesSent"`
	QueueDepth        int    `json:"queueDepth"`
	MessagesDropped   uint64 `json:"messagesDropped"`
	ClientsEvicted    uint64 `json:"clientsEvicted"`
}

// Stats reads the current counters without mutating broadcaster state.
func (h *Hub) Stats() Stats {
	return Stats{
		ActiveClients:     h.reg.Len(),
		MessagesDelivered: h.disp.delivered.Load(),
		BytesSent:         h.disp.bytes.Load(),
		QueueDepth:        h.disp.QueueDepth(),
		MessagesDropped:   h.disp.dropped.Load(),
		ClientsEvicted:    h.evicted.Load(),
	}
}
