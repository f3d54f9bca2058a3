package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"
)

// MarshalCanonical produces the canonical byte form of a payload for hashing.
// CRITICAL: This is the ONLY serialization that may be used for content
// hashes.
//
// The format reproduces JSON.stringify over an object rebuilt with sorted
// top-level keys:
//  1. Top-level keys sorted by UTF-16 code units
//  2. Nested objects keep their supplied key order (no deep sort)
//  3. No whitespace
//  4. Numbers in ECMAScript Number#toString form
//  5. Strings escape only quote, backslash and control characters
func MarshalCanonical(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range p.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeCanonicalString(&buf, k)
		buf.WriteByte(':')

		if err := writeCanonicalValue(&buf, p[k]); err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MustMarshalCanonical is like MarshalCanonical but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMarshalCanonical(p Payload) []byte {
	data, err := MarshalCanonical(p)
	if err != nil {
		panic(err)
	}
	return data
}

// writeCanonicalValue re-encodes one raw JSON value token by token so that
// object members come out in the order they appear in raw.
func writeCanonicalValue(buf *bytes.Buffer, raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("empty JSON value")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := writeCanonicalToken(buf, dec); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func writeCanonicalToken(buf *bytes.Buffer, dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			buf.WriteByte('{')
			for first := true; dec.More(); first = false {
				if !first {
					buf.WriteByte(',')
				}
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, ok := keyTok.(string)
				if !ok {
					return fmt.Errorf("unexpected object key %v", keyTok)
				}
				writeCanonicalString(buf, key)
				buf.WriteByte(':')
				if err := writeCanonicalToken(buf, dec); err != nil {
					return fmt.Errorf("key %q: %w", key, err)
				}
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			buf.WriteByte('}')
		case '[':
			buf.WriteByte('[')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err := writeCanonicalToken(buf, dec); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			buf.WriteByte(']')
		default:
			return fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		writeCanonicalString(buf, t)
	case json.Number:
		s, err := formatCanonicalNumber(t)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("unsupported JSON token %T", tok)
	}
	return nil
}

// formatCanonicalNumber renders n the way Number#toString does.
// encoding/json formats float64 with the same shortest round-trip rules
// (fixed notation in [1e-6, 1e21), exponent otherwise), so only negative
// zero needs special handling.
func formatCanonicalNumber(n json.Number) (string, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return "", fmt.Errorf("number %s: %w", n, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", fmt.Errorf("number %s is not finite", n)
	}
	if f == 0 {
		return "0", nil
	}
	out, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("number %s: %w", n, err)
	}
	return string(out), nil
}

const hexDigits = "0123456789abcdef"

// writeCanonicalString quotes s with JSON.stringify escaping rules.
// No HTML escaping and no escaping of U+2028/U+2029. Invalid UTF-8 bytes are
// written as U+FFFD.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0xF])
				continue
			}
			var tmp [utf8.UTFMax]byte
			n := utf8.EncodeRune(tmp[:], r)
			buf.Write(tmp[:n])
		}
	}
	buf.WriteByte('"')
}
