package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// State tracks a client's connection lifecycle. Transitions only move
// forward: CONNECTING -> OPEN -> CLOSING -> CLOSED. Any event arriving for
// a CLOSED client is a silent no-op.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

// Client is one connected consumer as seen by the core layer. The transport
// handle itself never appears here: the connection manager owns it
// exclusively and drains the client's frame buffer from its write loop.
type Client struct {
	ID       string
	Priority ClientPriority

	frames chan []byte
	pings  chan struct{}
	done   chan struct{}

	state        atomic.Int32
	lastActivity atomic.Int64

	closeOnce sync.Once

	mu       sync.RWMutex
	subs     map[string]struct{}
	explicit bool
}

// NewClient constructs a client in CONNECTING state with the default
// subscription set {"all"} and a normal priority hint.
func NewClient(id string, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	c := &Client{
		ID:       id,
		Priority: ClientPriorityNormal,
		frames:   make(chan []byte, sendBuffer),
		pings:    make(chan struct{}, 1),
		done:     make(chan struct{}),
		subs:     map[string]struct{}{ChannelAll: {}},
	}
	c.lastActivity.Store(time.Now().UnixNano())
	return c
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// open promotes CONNECTING to OPEN. Called by the registry on add.
func (c *Client) open() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// beginClose moves the client into CLOSING. The first caller wins; later
// callers see false.
func (c *Client) beginClose() bool {
	for {
		s := c.state.Load()
		if State(s) == StateClosing || State(s) == StateClosed {
			return false
		}
		if c.state.CompareAndSwap(s, int32(StateClosing)) {
			return true
		}
	}
}

// finishClose marks the client CLOSED and releases the write loop.
func (c *Client) finishClose() {
	c.state.Store(int32(StateClosed))
	c.closeOnce.Do(func() { close(c.done) })
}

// Touch records inbound activity for the health sweep.
func (c *Client) Touch(t time.Time) {
	c.lastActivity.Store(t.UnixNano())
}

// LastActivity returns the time of the most recent inbound frame.
func (c *Client) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// Subscribe adds channels to the subscription set. The first explicit
// subscribe replaces the implicit catch-all default, so a client asking for
// specific channels stops receiving everything; re-subscribing to "all"
// restores the catch-all.
func (c *Client) Subscribe(channels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.explicit {
		delete(c.subs, ChannelAll)
		c.explicit = true
	}
	for _, ch := range channels {
		if ch == "" {
			continue
		}
		c.subs[ch] = struct{}{}
	}
}

// Unsubscribe removes channels from the subscription set.
func (c *Client) Unsubscribe(channels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		delete(c.subs, ch)
	}
}

// Subscribed reports whether a broadcast on the given channel should reach
// this client, honoring the reserved "all" subscription.
func (c *Client) Subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.subs[ChannelAll]; ok {
		return true
	}
	_, ok := c.subs[channel]
	return ok
}

// Subscriptions returns a copy of the current subscription set.
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		out = append(out, ch)
	}
	return out
}

// EnqueueFrame queues a serialized frame for the write loop without
// blocking. open reports whether the client was still OPEN; queued whether
// the frame was accepted. An open client with a full buffer is a slow
// consumer.
func (c *Client) EnqueueFrame(frame []byte) (queued, open bool) {
	if c.State() != StateOpen {
		return false, false
	}
	select {
	case c.frames <- frame:
		return true, true
	default:
		return false, true
	}
}

// RequestPing asks the write loop to send a transport-level ping. Collapses
// to a single pending request.
func (c *Client) RequestPing() {
	select {
	case c.pings <- struct{}{}:
	default:
	}
}

// Frames exposes the outbound frame buffer to the write loop.
func (c *Client) Frames() <-chan []byte { return c.frames }

// Pings exposes pending ping requests to the write loop.
func (c *Client) Pings() <-chan struct{} { return c.pings }

// Done is closed when the client reaches CLOSED.
func (c *Client) Done() <-chan struct{} { return c.done }
