package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auri-health/data-pipeline/internal/models"
)

// TestForFile routes filenames to classifiers by substring, first match wins.
func TestForFile(t *testing.T) {
	tests := []struct {
		name string
		want any
	}{
		{"activities-2024-01-15.json", &ActivityClassifier{}},
		{"heart-rate-2024-01-15.json", &HeartRateClassifier{}},
		{"sleep-2024-01-15.json", &SleepClassifier{}},
		{"steps-2024-01-15.json", &StepsClassifier{}},
	}
	for _, tt := range tests {
		c, ok := ForFile(tt.name, models.DefaultDeviceID, models.SourceGarmin, testLogger())
		require.True(t, ok, tt.name)
		assert.IsType(t, tt.want, c, tt.name)
	}

	_, ok := ForFile("user_summary_2024-01-15.json", models.DefaultDeviceID, models.SourceGarmin, testLogger())
	assert.False(t, ok)
	_, ok = ForFile("readme.txt", models.DefaultDeviceID, models.SourceGarmin, testLogger())
	assert.False(t, ok)
}
