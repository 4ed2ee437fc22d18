package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// StoreTimeLayout is the layout the content store uses for publication dates.
const StoreTimeLayout = "2006-01-02T15:04:05-0700"

// Timestamp is a publication date as delivered by the content store.
// A string that cannot be parsed decodes to the zero time instead of an error.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// ParseTimestamp parses either the store layout or RFC 3339.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(StoreTimeLayout, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := ParseTimestamp(raw)
	if err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(StoreTimeLayout))
}

// Valid reports whether the timestamp is set and parsed
func (t *Timestamp) Valid() bool {
	return t != nil && !t.IsZero()
}
