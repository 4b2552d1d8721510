// Package resolve locates logical fields across the aliased, irregularly
// nested shapes found in raw export records.
package resolve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is a JSON object that preserves the order its keys appeared in.
// Nested objects decode as *Record, arrays as []any, and numbers as
// json.Number so that integer timestamps survive without float rounding.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord creates an empty Record.
func NewRecord() *Record {
	return &Record{values: map[string]any{}}
}

// UnmarshalJSON decodes a JSON object while recording key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	rec, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

// MarshalJSON encodes the record with keys in their recorded order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshaling key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Set adds or replaces a key. New keys append to the order.
func (r *Record) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for a key and whether the key is present.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r *Record) Len() int {
	return len(r.keys)
}

// Without returns a copy of the record with the excluded keys removed.
// Order of the remaining keys is preserved.
func (r *Record) Without(exclude ...string) *Record {
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}
	out := NewRecord()
	for _, k := range r.keys {
		if skip[k] {
			continue
		}
		out.Set(k, r.values[k])
	}
	return out
}

// DecodeValue decodes a JSON document of unknown top-level shape. Objects
// become *Record, arrays []any, numbers json.Number.
func DecodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		// string, json.Number, bool, or nil
		return tok, nil
	}
}

func decodeObject(dec *json.Decoder) (*Record, error) {
	rec := NewRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		rec.Set(key, val)
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}
	return rec, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	var out []any
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return nil, err
	}
	return out, nil
}

// First returns the first present non-null value among the candidate keys,
// in priority order.
func First(rec *Record, names ...string) (any, bool) {
	for _, name := range names {
		if v, ok := rec.Get(name); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Number coerces a decoded JSON value to float64.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}

// String coerces a decoded JSON value to a string.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// FirstNumber resolves the first candidate key holding a numeric value.
func FirstNumber(rec *Record, names ...string) (float64, bool) {
	for _, name := range names {
		if v, ok := rec.Get(name); ok && v != nil {
			if f, ok := Number(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// FirstString resolves the first candidate key holding a string value.
func FirstString(rec *Record, names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := rec.Get(name); ok && v != nil {
			if s, ok := String(v); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// Candidate is a heuristically discovered key/value pair.
type Candidate struct {
	Key   string
	Value any
}

// ScanKeys is the last-resort discovery path: it returns, in insertion
// order, every key whose lowercased name contains one of the substrings and
// whose value is a non-null number or string.
func ScanKeys(rec *Record, substrings ...string) []Candidate {
	var out []Candidate
	for _, k := range rec.Keys() {
		lower := strings.ToLower(k)
		matched := false
		for _, sub := range substrings {
			if strings.Contains(lower, sub) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		v, _ := rec.Get(k)
		if v == nil {
			continue
		}
		switch v.(type) {
		case string, json.Number, float64, int64, int:
			out = append(out, Candidate{Key: k, Value: v})
		}
	}
	return out
}
