package websocket

import (
	"encoding/json"

	"github.com/isdelr/sheetcharts-be/internal/models"
)

// Message types sent to admin clients.
const (
	ActionEvent         = "event"
	ActionStatsSnapshot = "stats.snapshot"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// Encode marshals the message for the wire.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// NewEventMessage wraps an activity log entry.
func NewEventMessage(e models.Event) Message {
	return Message{Action: ActionEvent, Payload: e}
}

// NewStatsMessage wraps a usage snapshot.
func NewStatsMessage(s models.Stats) Message {
	return Message{Action: ActionStatsSnapshot, Payload: s}
}
