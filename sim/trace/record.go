// Package trace reads back the JSON-lines event traces written by a run.
// It does not import sim/ and decodes plain data types only.
package trace

import "time"

// Record is one traced engine event.
type Record struct {
	Kind  string         `json:"kind"`
	At    time.Time      `json:"at"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// String returns the attribute as a string, or "" when absent.
func (r Record) String(key string) string {
	s, _ := r.Attrs[key].(string)
	return s
}

// Int returns a numeric attribute truncated to int64. JSON numbers decode as
// float64; absent or non-numeric attributes yield 0.
func (r Record) Int(key string) int64 {
	switch v := r.Attrs[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
