package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/amirasaad/finboard/pkg/eventbus"
)

// envelope is the wire form of an event that leaves the process.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEvent(event eventbus.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.Type(), err)
	}
	return json.Marshal(envelope{Type: event.Type(), Payload: payload})
}

func decodeEvent(raw []byte, types map[string]func() eventbus.Event) (eventbus.Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	constructor, ok := types[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	evt := constructor()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return evt, nil
}
