package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Layouts accepted when reading stored timestamps. Values without an offset are UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp is a UTC instant that tolerates the offset, "Z" and naive ISO-8601
// forms on input and always writes RFC 3339.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t converted to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// ParseTimestamp parses an ISO-8601 timestamp with an offset, a "Z" suffix or no
// zone at all, treating the latter as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}

	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// MarshalJSON writes the instant as an RFC 3339 string, or null when unset.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON never fails on an unparseable string; the value is left zero so a
// single corrupt field cannot discard a whole statistics file.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}

	parsed, err := ParseTimestamp(raw)
	if err != nil {
		t.Time = time.Time{}
		return nil
	}

	t.Time = parsed
	return nil
}
