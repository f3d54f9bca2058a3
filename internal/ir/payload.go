package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Payload is a JSON object whose values are kept as raw JSON.
//
// Holding raw values (instead of decoded Go maps) is what lets nested
// objects keep their supplied key order through storage and hashing.
// Use SortedKeys() for deterministic iteration.
type Payload map[string]json.RawMessage

// NewPayload builds a Payload from Go values.
// Each value is encoded with encoding/json; nested Go maps therefore come
// out with sorted keys, which is the only deterministic order a Go map has.
func NewPayload(fields map[string]any) (Payload, error) {
	p := make(Payload, len(fields))
	for k, v := range fields {
		if err := p.Set(k, v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// MustPayload is like NewPayload but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPayload(fields map[string]any) Payload {
	p, err := NewPayload(fields)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePayload decodes a JSON object into a Payload.
// Anything other than a JSON object is rejected.
func ParsePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	var p Payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// Set encodes v and stores it under key.
func (p Payload) Set(key string, v any) error {
	if raw, ok := v.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return fmt.Errorf("payload key %q: invalid raw JSON", key)
		}
		p[key] = slices.Clone(raw)
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("payload key %q: %w", key, err)
	}
	p[key] = json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
	return nil
}

// Clone returns a copy that shares no backing arrays with p.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = slices.Clone(v)
	}
	return out
}

// Without returns a copy of p with the given keys removed.
func (p Payload) Without(keys ...string) Payload {
	out := p.Clone()
	if out == nil {
		out = Payload{}
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Has reports whether key is present.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the value of key when it is a JSON string.
func (p Payload) String(key string) (string, bool) {
	raw, ok := p[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Number returns the value of key when it is a JSON number.
func (p Payload) Number(key string) (float64, bool) {
	raw, ok := p[key]
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

// Strings returns the value of key when it is a JSON array of strings.
func (p Payload) Strings(key string) ([]string, bool) {
	raw, ok := p[key]
	if !ok {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Decode returns the payload as generic Go values, for display and
// schema validation. Numbers decode as json.Number.
func (p Payload) Decode() (map[string]any, error) {
	out := make(map[string]any, len(p))
	for k, raw := range p {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("payload key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Equal reports whether both payloads canonicalize to the same bytes.
func (p Payload) Equal(other Payload) bool {
	a, err := MarshalCanonical(p)
	if err != nil {
		return false
	}
	b, err := MarshalCanonical(other)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// SortedKeys returns keys in UTF-16 code unit order.
// This is the order Array.prototype.sort produces for string keys, which the
// recorded hashes depend on. It matches code point order for every key made
// of BMP characters.
func (p Payload) SortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// compareKeysUTF16 compares strings by UTF-16 code units.
// Go's native string comparison uses UTF-8 bytes which orders supplementary
// characters differently.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON writes the payload in canonical form.
func (p Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return MarshalCanonical(p)
}

// UnmarshalJSON keeps every value as raw JSON.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = make(Payload, len(raw))
	for k, v := range raw {
		(*p)[k] = slices.Clone(v)
	}
	return nil
}
