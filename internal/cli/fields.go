package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/marketledger/internal/ir"
)

// parseFields builds a payload from a --json object and repeated --set
// key=value pairs. --set wins over --json for the same key.
//
// A --set value that is valid JSON keeps its JSON type (price=3000 is a
// number, organic=true a bool); anything else is a string (crop=Rice).
func parseFields(jsonArg string, sets []string) (ir.Payload, error) {
	fields := ir.Payload{}
	if strings.TrimSpace(jsonArg) != "" {
		p, err := ir.ParsePayload([]byte(jsonArg))
		if err != nil {
			return nil, fmt.Errorf("invalid --json: %w", err)
		}
		fields = p
	}

	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", set)
		}
		fields[key] = setValue(value)
	}
	return fields, nil
}

func setValue(value string) json.RawMessage {
	if json.Valid([]byte(value)) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(value)); err == nil {
			return buf.Bytes()
		}
	}
	data, _ := json.Marshal(value)
	return data
}
