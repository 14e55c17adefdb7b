package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/courtside-live/broadcast-server/internal/core"
)

// Upstream topics with a dedicated transformation. Anything else is passed
// through as a generic envelope rather than dropped.
const (
	TopicPredictions   = "predictions"
	TopicNotifications = "notifications"
	TopicGameEvents    = "game-events"
)

// Broadcast event names produced by the transformation table.
const (
	EventNewPrediction = "new_prediction"
	EventNotification  = "notification"
	EventGameUpdate    = "game_update"
	EventKafkaEvent    = "kafka_event"
)

// Default priorities per topic. Urgent notifications and score changes are
// raised above the dispatcher's immediate threshold.
const (
	priorityPrediction  = 7
	priorityNotify      = 5
	priorityUrgent      = 9
	priorityWarning     = 7
	priorityGameEvent   = 5
	priorityScoreChange = 8
	priorityEnvelope    = 3
)

// Transform maps one upstream event to a broadcast message using the fixed
// per-topic table. A malformed payload returns an error so the caller can
// log and skip it without stalling the consumer.
func Transform(topic string, value []byte) (core.Message, error) {
	switch topic {
	case TopicPredictions:
		var p core.PredictionPayload
		if err := json.Unmarshal(value, &p); err != nil {
			return core.Message{}, fmt.Errorf("decode prediction event: %w", err)
		}
		return core.NewMessage(EventNewPrediction, core.ChannelPredictions, p, priorityPrediction), nil

	case TopicNotifications:
		var n core.NotificationPayload
		if err := json.Unmarshal(value, &n); err != nil {
			return core.Message{}, fmt.Errorf("decode notification event: %w", err)
		}
		prio := priorityNotify
		switch n.Severity {
		case core.SeverityUrgent:
			prio = priorityUrgent
		case core.SeverityWarning:
			prio = priorityWarning
		}
		return core.NewMessage(EventNotification, core.ChannelNotifications, n, prio), nil

	case TopicGameEvents:
		var g core.GameEventPayload
		if err := json.Unmarshal(value, &g); err != nil {
			return core.Message{}, fmt.Errorf("decode game event: %w", err)
		}
		prio := priorityGameEvent
		if g.EventType == core.GameEventScoreChange {
			prio = priorityScoreChange
		}
		return core.NewMessage(EventGameUpdate, core.ChannelGameEvents, g, prio), nil

	default:
		if !json.Valid(value) {
			return core.Message{}, fmt.Errorf("invalid JSON on topic %q", topic)
		}
		env := core.EventEnvelope{Topic: topic, Payload: json.RawMessage(value)}
		return core.NewMessage(EventKafkaEvent, topic, env, priorityEnvelope), nil
	}
}
