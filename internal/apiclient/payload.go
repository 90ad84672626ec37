package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is a response body as received. JSON bodies are flagged; anything
// else is kept as raw text.
type Payload struct {
	raw    []byte
	isJSON bool
}

// NewPayload classifies raw as JSON or text.
func NewPayload(raw []byte) Payload {
	trimmed := bytes.TrimSpace(raw)
	return Payload{raw: raw, isJSON: len(trimmed) > 0 && json.Valid(trimmed)}
}

// Raw returns the body bytes.
func (p Payload) Raw() []byte {
	return p.raw
}

// Text returns the body as a string.
func (p Payload) Text() string {
	return string(p.raw)
}

// IsJSON reports whether the body decoded as JSON.
func (p Payload) IsJSON() bool {
	return p.isJSON
}

// Empty reports whether the body is empty or whitespace.
func (p Payload) Empty() bool {
	return len(bytes.TrimSpace(p.raw)) == 0
}

// Decode unmarshals a JSON payload into v.
func (p Payload) Decode(v any) error {
	if !p.isJSON {
		return fmt.Errorf("payload is not JSON (%d bytes)", len(p.raw))
	}
	if err := json.Unmarshal(p.raw, v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}
