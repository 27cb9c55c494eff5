package debate

import (
	"encoding/json"
	"time"

	"debatearena/models"

	"github.com/google/uuid"
)

// Event types pushed to spectators.
const (
	EventArgumentSubmitted = "argument_submitted"
	EventRoundAdvance      = "round_advance"
	EventDebateConcluded   = "debate_concluded"
)

// Event is the envelope broadcast to spectators of a debate.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	DebateID  string          `json:"debateId"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// ConcludedPayload is the payload of a debate_concluded event.
type ConcludedPayload struct {
	DebateID string              `json:"debateId"`
	Result   models.DebateResult `json:"result"`
}

// NewEvent creates a new event with timestamp
func NewEvent(eventType, debateID string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		DebateID:  debateID,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// MarshalEvent marshals an event to a JSON string.
func MarshalEvent(event *Event) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEvent unmarshals a JSON string to an Event
func UnmarshalEvent(data string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ArgumentEvent and its siblings build the envelopes shared by the in-process
// and stream broadcasters.
func ArgumentEvent(ev ArgumentSubmitted) (*Event, error) {
	return NewEvent(EventArgumentSubmitted, ev.DebateID, ev)
}

func RoundAdvanceEvent(ev RoundAdvance) (*Event, error) {
	return NewEvent(EventRoundAdvance, ev.DebateID, ev)
}

func ConcludedEvent(debateID string, result models.DebateResult) (*Event, error) {
	return NewEvent(EventDebateConcluded, debateID, ConcludedPayload{DebateID: debateID, Result: result})
}
