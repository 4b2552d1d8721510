package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auri-health/data-pipeline/internal/models"
)

// TestStepsBareNumber merges a bare total into today's summary.
func TestStepsBareNumber(t *testing.T) {
	c := NewStepsClassifier(models.DefaultDeviceID, models.SourceGarmin, testLogger())
	c.now = func() time.Time { return time.Date(2024, 1, 15, 18, 30, 0, 0, time.UTC) }

	batch, stats, err := c.Classify("user-1", []byte(` 8452 `))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)

	require.NotNil(t, batch.StepsTotal)
	assert.Equal(t, int64(8452), batch.StepsTotal.Steps)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), batch.StepsTotal.Date)
	assert.Empty(t, batch.StepReadings)
}

// TestStepsArray produces discrete readings from tuple and object samples.
func TestStepsArray(t *testing.T) {
	content := `[
		[1700000000000, 120],
		{"timestamp": 1700000060000, "steps": 140},
		{"startTimeGMT": "2024-01-01T10:00:00Z", "value": 90},
		{"steps": 100}
	]`

	c := NewStepsClassifier(models.DefaultDeviceID, models.SourceGarmin, testLogger())
	batch, stats, err := c.Classify("user-1", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)

	require.Len(t, batch.StepReadings, 3)
	assert.Equal(t, int64(120), batch.StepReadings[0].Steps)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), batch.StepReadings[0].Timestamp)
	assert.Equal(t, int64(140), batch.StepReadings[1].Steps)
	assert.Equal(t, int64(90), batch.StepReadings[2].Steps)
	assert.Nil(t, batch.StepsTotal)
}

// TestStepsObjectTotal takes the date from the object's own timestamp.
func TestStepsObjectTotal(t *testing.T) {
	content := `{"steps": 10200, "date": "2024-01-10"}`

	c := NewStepsClassifier(models.DefaultDeviceID, models.SourceGarmin, testLogger())
	batch, stats, err := c.Classify("user-1", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)

	require.NotNil(t, batch.StepsTotal)
	assert.Equal(t, int64(10200), batch.StepsTotal.Steps)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), batch.StepsTotal.Date)
}

// TestStepsUnknownShape yields an empty batch for valid-but-unusable JSON,
// and an error for payloads that do not parse at all.
func TestStepsUnknownShape(t *testing.T) {
	c := NewStepsClassifier(models.DefaultDeviceID, models.SourceGarmin, testLogger())
	batch, stats, err := c.Classify("user-1", []byte(`"nope"`))
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Nil(t, batch.StepsTotal)
	assert.Empty(t, batch.StepReadings)

	_, _, err = c.Classify("user-1", []byte(`not json`))
	require.Error(t, err)
}
