// Package validate checks persisted documents before they are trusted.
// Every externally supplied document (import file, migration payload, cloud
// response) is scrubbed of dangerous keys and bounds-checked here before
// any other component sees it.
package validate

import (
	"encoding/json"
	"strings"
)

// dangerousKeys are object keys that must never survive scrubbing, at any
// nesting depth. They exist to neutralize prototype-pollution style payloads
// produced by or destined for JavaScript clients.
var dangerousKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// IsDangerousKey reports whether a key must be stripped from documents.
// Keys starting with "$" are reserved and also stripped.
func IsDangerousKey(key string) bool {
	return dangerousKeys[key] || strings.HasPrefix(key, "$")
}

// ScrubValue recursively removes dangerous keys from a decoded JSON value.
// Maps are scrubbed in place; slices are walked element by element. Scalars
// pass through untouched.
func ScrubValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if IsDangerousKey(k) {
				delete(val, k)
				continue
			}
			val[k] = ScrubValue(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = ScrubValue(inner)
		}
		return val
	default:
		return v
	}
}

// ScrubJSON decodes raw JSON into a generic value, scrubs it, and returns
// the cleaned value. The input is not modified.
func ScrubJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return ScrubValue(v), nil
}
