package resolve

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecordKeyOrder verifies keys survive a decode in document order, not
// map order.
func TestRecordKeyOrder(t *testing.T) {
	rec := NewRecord()
	err := json.Unmarshal([]byte(`{"zebra":1,"apple":2,"mango":{"inner":3},"banana":[4,5]}`), rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"zebra", "apple", "mango", "banana"}, rec.Keys())

	inner, ok := rec.Get("mango")
	require.True(t, ok)
	innerRec, ok := inner.(*Record)
	require.True(t, ok)
	assert.Equal(t, []string{"inner"}, innerRec.Keys())
}

// TestRecordRoundTrip keeps key order through marshal.
func TestRecordRoundTrip(t *testing.T) {
	in := `{"b":1,"a":"two","c":[1,2],"d":null}`
	rec := NewRecord()
	require.NoError(t, json.Unmarshal([]byte(in), rec))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":"two","c":[1,2],"d":null}`, string(out))
}

// TestRecordNumbersStayPrecise verifies large integer timestamps do not
// round through float64.
func TestRecordNumbersStayPrecise(t *testing.T) {
	rec := NewRecord()
	require.NoError(t, json.Unmarshal([]byte(`{"ts":1700000000001}`), rec))

	v, ok := rec.Get("ts")
	require.True(t, ok)
	n, ok := v.(json.Number)
	require.True(t, ok)
	i, err := n.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000001), i)
}

// TestFirst resolves candidates in priority order and skips nulls.
func TestFirst(t *testing.T) {
	rec := NewRecord()
	require.NoError(t, json.Unmarshal(
		[]byte(`{"startTimeLocal":"local","sleepStartTimestampGMT":null,"startTimeGMT":"gmt"}`), rec))

	v, ok := First(rec, "sleepStartTimestampGMT", "startTimeGMT", "startTimeLocal")
	require.True(t, ok)
	assert.Equal(t, "gmt", v)

	_, ok = First(rec, "missing", "alsoMissing")
	assert.False(t, ok)
}

// TestScanKeys returns matches in insertion order, filtering out nulls and
// non-scalar values.
func TestScanKeys(t *testing.T) {
	rec := NewRecord()
	require.NoError(t, json.Unmarshal([]byte(`{
		"calendarDate": "2024-01-15",
		"sleepTimeSeconds": 27000,
		"wakeupTime": null,
		"timestamps": [1, 2],
		"name": "nap",
		"bedTime": 1700000000000
	}`), rec))

	got := ScanKeys(rec, "time", "date")
	require.Len(t, got, 3)
	assert.Equal(t, "calendarDate", got[0].Key)
	assert.Equal(t, "sleepTimeSeconds", got[1].Key)
	assert.Equal(t, "bedTime", got[2].Key)
}

// TestWithout drops named keys while preserving the rest in order.
func TestWithout(t *testing.T) {
	rec := NewRecord()
	require.NoError(t, json.Unmarshal(
		[]byte(`{"activityId":1,"ownerId":7,"startTimeGMT":"x","steps":9}`), rec))

	got := rec.Without("activityId", "startTimeGMT", "notPresent")
	assert.Equal(t, []string{"ownerId", "steps"}, got.Keys())

	// Original untouched.
	assert.Equal(t, 4, rec.Len())
}

// TestDecodeValueShapes covers the three top-level shapes a payload can take.
func TestDecodeValueShapes(t *testing.T) {
	obj, err := DecodeValue([]byte(`{"a":1}`))
	require.NoError(t, err)
	_, ok := obj.(*Record)
	assert.True(t, ok)

	arr, err := DecodeValue([]byte(`[1,2,3]`))
	require.NoError(t, err)
	_, ok = arr.([]any)
	assert.True(t, ok)

	num, err := DecodeValue([]byte(`8452`))
	require.NoError(t, err)
	_, ok = num.(json.Number)
	assert.True(t, ok)
}

// TestFirstNumberAndString exercise the coercing resolvers.
func TestFirstNumberAndString(t *testing.T) {
	rec := NewRecord()
	require.NoError(t, json.Unmarshal(
		[]byte(`{"heartRate":null,"value":"72","bpm":72}`), rec))

	// "72" is a string, not a number; resolution falls through to bpm.
	n, ok := FirstNumber(rec, "heartRate", "value", "bpm")
	require.True(t, ok)
	assert.Equal(t, 72.0, n)

	s, ok := FirstString(rec, "heartRate", "value")
	require.True(t, ok)
	assert.Equal(t, "72", s)
}
