// Package redact masks sensitive values in payloads before they reach logs
// or telemetry.
package redact

import "strings"

// Placeholder replaces any value stored under a sensitive key.
const Placeholder = "[REDACTED]"

// sensitiveMarkers are matched case-insensitively as substrings of map keys.
var sensitiveMarkers = []string{"api", "key", "token", "secret", "auth", "password"}

// IsSensitiveKey reports whether values under the given map key should be
// masked. Matching is case-insensitive and substring-based, so "apiKey",
// "Authorization" and "CLIENT_SECRET" all count.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Sensitive returns a copy of v with every value under a sensitive key
// replaced by Placeholder, whatever its type. Nested maps and slices are
// walked recursively. The input is never mutated, and applying Sensitive
// twice yields the same result as applying it once.
func Sensitive(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if IsSensitiveKey(k) {
				out[k] = Placeholder
				continue
			}
			out[k] = Sensitive(child)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, child := range t {
			if IsSensitiveKey(k) {
				out[k] = Placeholder
				continue
			}
			out[k] = child
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = Sensitive(child)
		}
		return out
	default:
		return v
	}
}

// Map redacts a payload map. Nil stays nil.
func Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return Sensitive(m).(map[string]any)
}
