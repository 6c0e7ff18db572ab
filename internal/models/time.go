package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// TimeLayout is the on-disk timestamp format: ISO-8601, UTC, millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var isoMillis = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)

// Time is a time.Time that serializes as TimeLayout.
type Time struct {
	time.Time
}

// Now returns the current UTC time truncated to milliseconds, so a value
// survives a persist/load cycle unchanged.
func Now() Time {
	return NewTime(time.Now())
}

// NewTime converts t to UTC at millisecond precision.
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC().Truncate(time.Millisecond)}
}

// IsTimestamp reports whether s has exactly the TimeLayout shape.
func IsTimestamp(s string) bool {
	return isoMillis.MatchString(s)
}

func (t Time) String() string {
	return t.UTC().Format(TimeLayout)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler. Only strings matching
// TimeLayout exactly decode; anything else is rejected.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if !IsTimestamp(s) {
		return fmt.Errorf("invalid timestamp %q: want %s", s, TimeLayout)
	}
	parsed, err := time.Parse(TimeLayout, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*t = NewTime(parsed)
	return nil
}

// Before reports whether t is before u.
func (t Time) Before(u Time) bool { return t.Time.Before(u.Time) }
