package ws

import (
	"encoding/json"
	"time"

	"github.com/vedran77/statusd/internal/domain"
)

// Event types - Client → Server
const (
	EventTypePing = "ping"
)

// Event types - Server → Client
const (
	EventTypeStatusCreated = "status.created"
	EventTypeStatusUpdated = "status.updated"
	EventTypeStatusDeleted = "status.deleted"
	EventTypePong          = "pong"
	EventTypeError         = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Server → Client payloads ---

type StatusPayload struct {
	domain.StatusPublic
}

type StatusDeletedPayload struct {
	ID string `json:"id"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}

// MarshalStatusEvent encodes a created or updated event ready for the wire.
func MarshalStatusEvent(eventType string, st *domain.StatusPublic) ([]byte, error) {
	evt, err := NewEvent(eventType, StatusPayload{StatusPublic: *st})
	if err != nil {
		return nil, err
	}
	return json.Marshal(evt)
}

func MarshalDeletedEvent(id string) ([]byte, error) {
	evt, err := NewEvent(EventTypeStatusDeleted, StatusDeletedPayload{ID: id})
	if err != nil {
		return nil, err
	}
	return json.Marshal(evt)
}
