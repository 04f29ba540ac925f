package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// TestUTCTimeMarshal tests that timestamps always carry a Z suffix.
func TestUTCTimeMarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "whole seconds",
			in:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			want: `"2024-03-01T12:00:00Z"`,
		},
		{
			name: "microseconds kept",
			in:   time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC),
			want: `"2024-03-01T12:00:00.123456Z"`,
		},
		{
			name: "nanoseconds truncated",
			in:   time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC),
			want: `"2024-03-01T12:00:00.123456Z"`,
		},
		{
			name: "offset converted to UTC",
			in:   time.Date(2024, 3, 1, 21, 0, 0, 0, time.FixedZone("JST", 9*3600)),
			want: `"2024-03-01T12:00:00Z"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := json.Marshal(NewUTCTime(tt.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, expected %s", got, tt.want)
			}
		})
	}
}

// TestUTCTimeUnmarshal tests the accepted input layouts.
func TestUTCTimeUnmarshal(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 1, 12, 0, 0, 500000000, time.UTC)

	inputs := []string{
		`"2024-03-01T12:00:00.5Z"`,
		`"2024-03-01T12:00:00.500000Z"`,
		`"2024-03-01T14:00:00.5+02:00"`,
		`"2024-03-01T12:00:00.5"`,
		`"2024-03-01 12:00:00.5"`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			var got UTCTime
			if err := json.Unmarshal([]byte(in), &got); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("got %v, expected %v", got, want)
			}
			if got.Location() != time.UTC {
				t.Errorf("expected UTC location, got %v", got.Location())
			}
		})
	}

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()

		var got UTCTime
		if err := json.Unmarshal([]byte(`"yesterday"`), &got); err == nil {
			t.Error("expected error")
		}
		if err := json.Unmarshal([]byte(`12`), &got); err == nil {
			t.Error("expected error for non-string")
		}
	})
}

// TestNow tests that Now is UTC and already truncated.
func TestNow(t *testing.T) {
	t.Parallel()

	now := Now()
	if now.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", now.Location())
	}
	if now.Nanosecond()%1000 != 0 {
		t.Errorf("expected microsecond precision, got %d ns", now.Nanosecond())
	}
	if !strings.HasSuffix(now.String(), "Z") {
		t.Errorf("expected Z suffix, got %q", now.String())
	}
}
