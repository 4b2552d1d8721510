package classify

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// PayloadShape describes the top-level structure of a raw export payload.
// It is decided once per file, before any record is touched.
type PayloadShape int

const (
	ShapeUnknown          PayloadShape = iota
	ShapeArray                         // bare JSON array
	ShapeObject                        // bare JSON object (single record)
	ShapeNumber                        // bare number (daily steps total)
	ShapeWrappedValues                 // {"heartRateValues": [...]}
	ShapeWrappedData                   // {"data": [...]}
	ShapeWrappedReadings               // {"readings": [...]}
	ShapeWrappedSleepData              // {"sleepData": [...]}
	ShapeComposite                     // {"dailySleepDTO": {...}, "sleepMovement": [...], ...}
)

// probeKeys unmarshals just the top-level keys of an object payload.
func probeKeys(raw []byte) (map[string]json.RawMessage, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false
	}
	return probe, true
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// DetectHeartRateShape examines a heart-rate payload and returns its shape.
func DetectHeartRateShape(raw []byte) PayloadShape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ShapeUnknown
	}
	if trimmed[0] == '[' {
		return ShapeArray
	}
	probe, ok := probeKeys(trimmed)
	if !ok {
		return ShapeUnknown
	}
	if v, ok := probe["heartRateValues"]; ok && isArray(v) {
		return ShapeWrappedValues
	}
	if v, ok := probe["data"]; ok && isArray(v) {
		return ShapeWrappedData
	}
	if v, ok := probe["readings"]; ok && isArray(v) {
		return ShapeWrappedReadings
	}
	return ShapeUnknown
}

// DetectSleepShape examines a sleep payload and returns its shape.
// A bare object with none of the wrapper keys is a single record.
func DetectSleepShape(raw []byte) PayloadShape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ShapeUnknown
	}
	if trimmed[0] == '[' {
		return ShapeArray
	}
	probe, ok := probeKeys(trimmed)
	if !ok {
		return ShapeUnknown
	}
	if v, ok := probe["sleepData"]; ok && isArray(v) {
		return ShapeWrappedSleepData
	}
	if v, ok := probe["data"]; ok && isArray(v) {
		return ShapeWrappedData
	}
	if _, ok := probe["dailySleepDTO"]; ok {
		return ShapeComposite
	}
	return ShapeObject
}

// DetectStepsShape examines a steps payload. Steps files are the only ones
// that may hold a bare number (one day's total).
func DetectStepsShape(raw []byte) PayloadShape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ShapeUnknown
	}
	switch trimmed[0] {
	case '[':
		return ShapeArray
	case '{':
		return ShapeObject
	}
	if _, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
		return ShapeNumber
	}
	return ShapeUnknown
}
