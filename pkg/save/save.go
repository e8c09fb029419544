package save

import (
	"encoding/json"
	"fmt"
	"time"
)

// Component is one serialized component record produced by the game's
// serialization layer. The engine never looks inside Data.
type Component struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Data is the structured save payload.
// JSON uses snake_case field names so payloads stay readable by external
// tooling across versions.
type Data struct {
	Version    string            `json:"version"`
	Timestamp  time.Time         `json:"timestamp"`
	GameName   string            `json:"game_name"`
	PlayerName string            `json:"player_name"`
	Level      int               `json:"level"`
	Playtime   uint64            `json:"playtime"`
	Components []Component       `json:"components,omitempty"`
	Resources  map[string][]byte `json:"resources,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// New returns a Data with identity fields set and empty maps ready for
// population.
func New(gameName, playerName string) *Data {
	return &Data{
		Version:    "0.0.0",
		Timestamp:  time.Now().UTC(),
		GameName:   gameName,
		PlayerName: playerName,
		Level:      1,
		Resources:  make(map[string][]byte),
		Metadata:   make(map[string]string),
	}
}

// Clone returns a deep copy. Migrations operate on clones so a failed
// chain never leaves a payload half-transformed.
func (d *Data) Clone() *Data {
	out := *d
	if d.Components != nil {
		out.Components = make([]Component, len(d.Components))
		for i, c := range d.Components {
			out.Components[i] = Component{Name: c.Name, Data: append([]byte(nil), c.Data...)}
		}
	}
	if d.Resources != nil {
		out.Resources = make(map[string][]byte, len(d.Resources))
		for k, v := range d.Resources {
			out.Resources[k] = append([]byte(nil), v...)
		}
	}
	if d.Metadata != nil {
		out.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// SetMeta records a free-form metadata entry, allocating the map on first
// use so migrations can call it on sparse payloads.
func (d *Data) SetMeta(key, value string) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]string)
	}
	d.Metadata[key] = value
}

// DropComponent removes every component record with the given name and
// reports whether any were removed.
func (d *Data) DropComponent(name string) bool {
	kept := d.Components[:0]
	dropped := false
	for _, c := range d.Components {
		if c.Name == name {
			dropped = true
			continue
		}
		kept = append(kept, c)
	}
	d.Components = kept
	return dropped
}

// Encode serializes the payload to its stored byte form.
func (d *Data) Encode() ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode save payload: %w", err)
	}
	return b, nil
}

// Decode parses a payload previously produced by Encode.
func Decode(b []byte) (*Data, error) {
	var d Data
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode save payload: %w", err)
	}
	return &d, nil
}
