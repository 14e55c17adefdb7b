package core

import "time"

// Reserved and known channel names. A client subscribed to ChannelAll
// receives every broadcast regardless of channel.
const (
	ChannelAll           = "all"
	ChannelPredictions   = "predictions"
	ChannelNotifications = "notifications"
	ChannelGameEvents    = "game-events"
	ChannelAlerts        = "alerts"
	ChannelMetrics       = "metrics"
)

// KnownChannels returns every channel name a client may subscribe to,
// as advertised in the welcome frame.
func KnownChannels() []string {
	return []string{
		ChannelAll,
		ChannelPredictions,
		ChannelNotifications,
		ChannelGameEvents,
		ChannelAlerts,
		ChannelMetrics,
	}
}

// ClientPriority is a client-level fairness hint. Currently advisory only.
type ClientPriority string

const (
	ClientPriorityHigh   ClientPriority = "high"
	ClientPriorityNormal ClientPriority = "normal"
	ClientPriorityLow    ClientPriority = "low"
)

// Message priority bounds. Messages at or above the dispatcher's threshold
// bypass batching entirely.
const (
	MinPriority = 0
	MaxPriority = 10
)

// Message is an immutable unit of outbound data. It carries no recipient
// list; recipients are computed at send time against the registry. Event is
// the wire-frame type (e.g. "new_prediction"), Channel the subscription
// topic it matches against.
type Message struct {
	Event     string
	Channel   string
	Payload   any
	Timestamp time.Time
	Priority  int
}

// NewMessage builds a message stamped with the current time. Priority is
// clamped to [MinPriority, MaxPriority].
func NewMessage(event, channel string, payload any, priority int) Message {
	if priority < MinPriority {
		priority = MinPriority
	}
	if priority > MaxPriority {
		priority = MaxPriority
	}
	return Message{
		Event:     event,
		Channel:   channel,
		Payload:   payload,
		Timestamp: time.Now(),
		Priority:  priority,
	}
}
