package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseInstant covers every accepted input shape.
func TestParseInstant(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want time.Time
	}{
		{"epoch millis number", json.Number("1700000000000"),
			time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)},
		{"epoch millis float", float64(1700000000000),
			time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)},
		{"epoch millis string", "1700000000000",
			time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)},
		{"rfc3339", "2024-01-01T10:00:00Z",
			time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"zone-less iso", "2024-01-01T10:00:00",
			time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"space separated gmt", "2024-01-01 10:00:00",
			time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"date only gets midnight utc", "2024-01-15",
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"passthrough", time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstant(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestParseInstantErrors verifies unusable values produce a TimestampError
// rather than a zero time.
func TestParseInstantErrors(t *testing.T) {
	for _, in := range []any{nil, true, "not a date", "", []any{1}, "99-99-99"} {
		_, err := ParseInstant(in)
		require.Error(t, err, "%v", in)

		var tsErr *TimestampError
		assert.True(t, errors.As(err, &tsErr), "%v", in)
	}
}

// TestDay truncates in UTC regardless of the input zone.
func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	in := time.Date(2024, 1, 16, 3, 30, 0, 0, loc) // 2024-01-15T18:30Z
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Day(in))
}

// TestSleepID is deterministic for a given user and start instant.
func TestSleepID(t *testing.T) {
	start := time.UnixMilli(1700000000000).UTC()
	assert.Equal(t, "user-1_1700000000000", SleepID("user-1", start))
	assert.Equal(t, SleepID("user-1", start), SleepID("user-1", start))
}
