package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayout is ISO-8601 in UTC with microsecond precision and an
// explicit Z suffix. Trailing zero fractions are dropped.
const timestampLayout = "2006-01-02T15:04:05.999999Z"

// UTCTime is a time.Time that is always stored in UTC at microsecond
// precision and always serializes with a trailing "Z".
//
// Normalizing at construction makes a manifest round-trip exact: the value
// read back compares equal to the value written.
type UTCTime struct {
	time.Time
}

// NewUTCTime normalizes t to UTC and truncates it to microseconds.
// Truncate also strips the monotonic clock reading.
func NewUTCTime(t time.Time) UTCTime {
	return UTCTime{Time: t.UTC().Truncate(time.Microsecond)}
}

// Now returns the current time as a UTCTime.
func Now() UTCTime {
	return NewUTCTime(time.Now())
}

// String formats the time as ISO-8601 with a Z suffix.
func (t UTCTime) String() string {
	return t.UTC().Format(timestampLayout)
}

// MarshalJSON implements json.Marshaler.
func (t UTCTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
// It accepts the layout written by MarshalJSON as well as any RFC 3339
// timestamp, and a naive timestamp without zone which is taken as UTC.
func (t *UTCTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// timestampFormats lists accepted input layouts, most specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses s using the accepted layouts.
// Timestamps without a zone are interpreted as UTC.
func ParseTimestamp(s string) (UTCTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampFormats {
		if parsed, err := time.Parse(layout, s); err == nil {
			return NewUTCTime(parsed), nil
		}
	}
	return UTCTime{}, fmt.Errorf("unrecognized timestamp %q", s)
}
