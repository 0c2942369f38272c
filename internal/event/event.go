package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event is a lifecycle event emitted by the editor/agent host.
type Event struct {
	Type    string
	Payload any // decoded JSON value; usually map[string]any
}

type wireEvent struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
	Payload    json.RawMessage `json:"payload"`
}

// UnmarshalJSON accepts both the {type, properties} and {type, payload} forms.
// When both members are present properties wins.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Type = w.Type
	e.Payload = nil

	raw := w.Properties
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = w.Payload
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var p any
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decoding payload of %q: %w", w.Type, err)
	}
	e.Payload = p
	return nil
}

// MarshalJSON writes the event in the {type, properties} form.
func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": e.Type}
	if e.Payload != nil {
		out["properties"] = e.Payload
	}
	return json.Marshal(out)
}

// Decode parses a single JSON event.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("decoding event: missing type")
	}
	return e, nil
}
