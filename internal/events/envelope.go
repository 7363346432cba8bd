package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published on a session channel.
const (
	TypeSearchComplete  = "search_complete"
	TypeDetailsFetched  = "details_fetched"
	TypeSessionDisposed = "session_disposed"
)

// Envelope is the JSON message carried on a session channel.
type Envelope struct {
	EventID    string          `json:"event_id"`
	Type       string          `json:"type"`
	SessionKey string          `json:"session_key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// ValidateBasic ensures mandatory envelope fields are present.
func (e *Envelope) ValidateBasic() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	if e.SessionKey == "" {
		return fmt.Errorf("session_key is required")
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if len(e.Data) == 0 {
		e.Data = json.RawMessage("{}")
	}
	return nil
}

// UnmarshalEnvelope parses JSON bytes into an Envelope and validates required fields.
func UnmarshalEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if err := env.ValidateBasic(); err != nil {
		return env, err
	}
	return env, nil
}

// Channel names the pub/sub channel of a session.
func Channel(sessionKey string) string {
	return "session_" + sessionKey
}
