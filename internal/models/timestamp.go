package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampError reports a value that could not be interpreted as an instant.
// Records carrying one are dropped, never defaulted.
type TimestampError struct {
	Value any
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("cannot interpret %v (%T) as a timestamp", e.Value, e.Value)
}

// Layouts accepted for string timestamps. Garmin exports mix RFC 3339 with
// zone-less GMT strings; all are treated as UTC.
var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

const dateOnlyLayout = "2006-01-02"

// ParseInstant converts a raw value of unknown shape into a UTC instant.
// Integers are epoch milliseconds; strings with a time component parse as
// date-times; bare dates get midnight UTC appended. Anything else yields a
// *TimestampError. Pure and deterministic.
func ParseInstant(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		if f, err := t.Float64(); err == nil {
			return time.UnixMilli(int64(f)).UTC(), nil
		}
		return time.Time{}, &TimestampError{Value: v}
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case int:
		return time.UnixMilli(int64(t)).UTC(), nil
	case string:
		return parseInstantString(t)
	}
	return time.Time{}, &TimestampError{Value: v}
}

func parseInstantString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &TimestampError{Value: s}
	}

	// Numeric string: epoch milliseconds (seen in heuristic key scans).
	if isDigits(s) {
		var ms int64
		if _, err := fmt.Sscanf(s, "%d", &ms); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
	}

	// No time separator at all: a bare calendar date. Append midnight UTC
	// so the result is a full instant.
	if !strings.ContainsAny(s, "T:") {
		t, err := time.Parse(time.RFC3339, s+"T00:00:00Z")
		if err != nil {
			return time.Time{}, &TimestampError{Value: s}
		}
		return t.UTC(), nil
	}

	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, &TimestampError{Value: s}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Day truncates an instant to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
