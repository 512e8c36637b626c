package domain

import (
	"bytes"
	"encoding/json"
)

// Observation is an opaque simulator state as reported by the control plane.
// The zero value is the "unknown" observation.
type Observation struct {
	raw json.RawMessage
}

// UnknownObservation is returned whenever the simulator state is not available,
// e.g. right after Reset or when a step fails.
var UnknownObservation = Observation{}

// NewObservation wraps a raw JSON value. A missing or null value yields UnknownObservation.
func NewObservation(raw json.RawMessage) Observation {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return UnknownObservation
	}
	cp := make(json.RawMessage, len(trimmed))
	copy(cp, trimmed)
	return Observation{raw: cp}
}

// Known reports whether the observation carries a value.
func (o Observation) Known() bool {
	return len(o.raw) > 0
}

// Raw returns the untouched JSON value, or nil for an unknown observation.
func (o Observation) Raw() json.RawMessage {
	return o.raw
}

// Decode unmarshals the observation into v. Decoding an unknown observation is a no-op.
func (o Observation) Decode(v any) error {
	if !o.Known() {
		return nil
	}
	return json.Unmarshal(o.raw, v)
}

// MarshalJSON encodes an unknown observation as null.
func (o Observation) MarshalJSON() ([]byte, error) {
	if !o.Known() {
		return []byte("null"), nil
	}
	return o.raw, nil
}

// UnmarshalJSON keeps the value verbatim.
func (o *Observation) UnmarshalJSON(data []byte) error {
	*o = NewObservation(data)
	return nil
}

func (o Observation) String() string {
	if !o.Known() {
		return "<unknown>"
	}
	return string(o.raw)
}
