package testutil

import (
	"bytes"
	"encoding/json"
	"testing"
)

const normalized = "<normalized>"

// volatileFields change between runs and are masked before comparison.
var volatileFields = map[string]bool{
	"timestamp":  true,
	"version":    true,
	"durationMs": true,
	"requestID":  true,
}

// NormalizeJSON masks volatile fields in a JSON document and re-encodes it
// with sorted keys, two-space indentation and a trailing newline.
func NormalizeJSON(t *testing.T, data []byte) []byte {
	t.Helper()

	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("NormalizeJSON: invalid JSON %q: %v", data, err)
	}

	out, err := json.MarshalIndent(mask(v), "", "  ")
	if err != nil {
		t.Fatalf("NormalizeJSON: marshal: %v", err)
	}
	return append(out, '\n')
}

func mask(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if volatileFields[k] {
				val[k] = normalized
				continue
			}
			val[k] = mask(child)
		}
		return val
	case []any:
		for i, child := range val {
			val[i] = mask(child)
		}
		return val
	default:
		return v
	}
}
