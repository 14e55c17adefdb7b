package core

import "encoding/json"

// Broadcast payloads form a tagged union keyed by channel: one concrete
// schema per known channel, plus EventEnvelope for everything else.

// Notification severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityUrgent  = "urgent"
)

// Game event types.
const (
	GameEventScoreChange  = "score_change"
	GameEventStatusChange = "status_change"
)

// PredictionPayload is the normalized shape of a "new_prediction" broadcast.
type PredictionPayload struct {
	GameID          int64   `json:"gameId"`
	Confidence      float64 `json:"confidence"`
	PredictedWinner string  `json:"predictedWinner,omitempty"`
}

// NotificationPayload is the shape of a "notification" broadcast.
type NotificationPayload struct {
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// GameEventPayload is the shape of a "game_update" broadcast.
type GameEventPayload struct {
	GameID    int64  `json:"gameId"`
	EventType string `json:"eventType"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
	Detail    string `json:"detail,omitempty"`
}

// EventEnvelope wraps an event from an unrecognized upstream topic so it is
// passed through rather than dropped.
type EventEnvelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// ShutdownPayload is broadcast on the immediate path before the server
// closes client connections.
type ShutdownPayload struct {
	Reason string `json:"reason"`
}
