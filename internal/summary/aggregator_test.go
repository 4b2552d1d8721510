package summary

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auri-health/data-pipeline/internal/models"
	"github.com/auri-health/data-pipeline/internal/resolve"
	"github.com/auri-health/data-pipeline/internal/storage"
)

type fakeStore struct {
	days       []storage.UserDay
	activities map[string][]models.ActivityRow

	heartRateStats *storage.HeartRateStats
	calorieStats   *storage.CalorieStats

	upserted []models.DailySummaryRow
}

func (f *fakeStore) ActivityDays(_ context.Context, _, _ time.Time) ([]storage.UserDay, error) {
	return f.days, nil
}

func (f *fakeStore) ActivitiesForDay(_ context.Context, userID string, day time.Time) ([]models.ActivityRow, error) {
	return f.activities[userID+"|"+day.Format("2006-01-02")], nil
}

func (f *fakeStore) DailyActivityStats(_ context.Context, _ string, _ time.Time) (*storage.ActivityStats, error) {
	return nil, nil
}

func (f *fakeStore) DailySleepStats(_ context.Context, _ string, _ time.Time) (*storage.SleepStats, error) {
	return nil, nil
}

func (f *fakeStore) DailyHeartRateStats(_ context.Context, _ string, _ time.Time) (*storage.HeartRateStats, error) {
	return f.heartRateStats, nil
}

func (f *fakeStore) DailyCalorieStats(_ context.Context, _ string, _ time.Time) (*storage.CalorieStats, error) {
	return f.calorieStats, nil
}

func (f *fakeStore) UpsertDailySummary(_ context.Context, row models.DailySummaryRow) error {
	f.upserted = append(f.upserted, row)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func metadata(pairs ...any) *resolve.Record {
	rec := resolve.NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		rec.Set(pairs[i].(string), pairs[i+1])
	}
	return rec
}

// TestAggregateActivities checks summing, null-vs-zero, last non-zero BMR,
// and the distinct activity count.
func TestAggregateActivities(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		days: []storage.UserDay{{UserID: "user-1", Date: day}},
		activities: map[string][]models.ActivityRow{
			"user-1|2024-01-15": {
				{ActivityID: 1, Calories: fptr(300), DistanceMeters: fptr(5000), Steps: iptr(6000),
					Metadata: metadata("bmrCalories", 1500.0)},
				{ActivityID: 2, Calories: fptr(0), Metadata: metadata("bmrCalories", 0.0)},
				{ActivityID: 2, Calories: fptr(150)}, // duplicate id, counted once
			},
		},
	}

	agg := New(store, testLogger(), Options{UserID: "user-1", DeviceID: models.DefaultDeviceID, Source: models.SourceGarmin})
	stats, err := agg.Run(context.Background(), day, day)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DaysSummarized)

	require.Len(t, store.upserted, 1)
	row := store.upserted[0]
	require.NotNil(t, row.TotalCalories)
	assert.Equal(t, 450.0, *row.TotalCalories)
	require.NotNil(t, row.TotalDistanceMeters)
	assert.Equal(t, 5000.0, *row.TotalDistanceMeters)
	require.NotNil(t, row.TotalSteps)
	assert.Equal(t, int64(6000), *row.TotalSteps)
	require.NotNil(t, row.ActivityCount)
	assert.Equal(t, int64(2), *row.ActivityCount)

	// Zero BMR does not displace the last real value.
	require.NotNil(t, row.BMRCalories)
	assert.Equal(t, 1500.0, *row.BMRCalories)

	// No contributing source means null, never zero.
	assert.Nil(t, row.SleepingSeconds)
	assert.Nil(t, row.AvgStressLevel)
}

// TestDerivedStatsFillGaps verifies rollup values only land where the
// activity sums left nothing.
func TestDerivedStatsFillGaps(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		days: []storage.UserDay{{UserID: "user-1", Date: day}},
		activities: map[string][]models.ActivityRow{
			"user-1|2024-01-15": {{ActivityID: 1, Calories: fptr(300)}},
		},
		heartRateStats: &storage.HeartRateStats{MinHeartRate: iptr(48), MaxHeartRate: iptr(172)},
		calorieStats:   &storage.CalorieStats{TotalCalories: fptr(9999), ActiveCalories: fptr(600)},
	}

	agg := New(store, testLogger(), Options{UserID: "user-1", DeviceID: models.DefaultDeviceID, Source: models.SourceGarmin})
	_, err := agg.Run(context.Background(), day, day)
	require.NoError(t, err)

	require.Len(t, store.upserted, 1)
	row := store.upserted[0]

	// Local sum wins over the rollup.
	assert.Equal(t, 300.0, *row.TotalCalories)
	// Gaps come from the rollups.
	assert.Equal(t, 600.0, *row.ActiveCalories)
	assert.Equal(t, 48.0, *row.MinHeartRate)
	assert.Equal(t, 172.0, *row.MaxHeartRate)
}

// TestFileFallback builds a summary from a wellness file for a day the
// store discovery missed, then archives the file.
func TestFileFallback(t *testing.T) {
	inputDir := t.TempDir()
	archiveDir := filepath.Join(t.TempDir(), "archive")

	content := `{
		"totalKilocalories": 2200.5,
		"activeKilocalories": 600,
		"bmrKilocalories": 1600.5,
		"totalSteps": 9800,
		"totalDistanceMeters": 7200.0,
		"sleepingSeconds": 27000,
		"minHeartRate": 47,
		"maxHeartRate": 165,
		"restingHeartRate": 52
	}`
	name := "user_summary_2024-01-15.json"
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, name), []byte(content), 0o644))

	store := &fakeStore{}
	agg := New(store, testLogger(), Options{
		UserID: "user-1", DeviceID: models.DefaultDeviceID, Source: models.SourceGarmin,
		InputDir: inputDir, ArchiveDir: archiveDir,
	})

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	stats, err := agg.Run(context.Background(), day, day)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DaysSummarized)
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 1, stats.FilesArchived)

	require.Len(t, store.upserted, 1)
	row := store.upserted[0]
	assert.Equal(t, "user-1", row.UserID)
	assert.Equal(t, day, row.Date)
	assert.Equal(t, 2200.5, *row.TotalCalories)
	assert.Equal(t, int64(9800), *row.TotalSteps)
	assert.Equal(t, int64(27000), *row.SleepingSeconds)
	assert.Equal(t, 52.0, *row.RestingHeartRate)
	assert.Nil(t, row.ModerateIntensityMinutes)

	// Consumed file moved out of the input dir.
	_, err = os.Stat(filepath.Join(inputDir, name))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(archiveDir, name))
	assert.NoError(t, err)
}

// TestFileFallbackSkipsSeenDay keeps the store-derived summary when a
// wellness file covers the same day.
func TestFileFallbackSkipsSeenDay(t *testing.T) {
	inputDir := t.TempDir()
	archiveDir := filepath.Join(t.TempDir(), "archive")
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	name := "user_summary_2024-01-15.json"
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, name), []byte(`{"totalSteps": 1}`), 0o644))

	store := &fakeStore{
		days: []storage.UserDay{{UserID: "user-1", Date: day}},
		activities: map[string][]models.ActivityRow{
			"user-1|2024-01-15": {{ActivityID: 1, Steps: iptr(6000)}},
		},
	}
	agg := New(store, testLogger(), Options{
		UserID: "user-1", DeviceID: models.DefaultDeviceID, Source: models.SourceGarmin,
		InputDir: inputDir, ArchiveDir: archiveDir,
	})

	stats, err := agg.Run(context.Background(), day, day)
	require.NoError(t, err)

	// One summary from the store, none from the file, file still archived.
	assert.Equal(t, 1, stats.DaysSummarized)
	assert.Equal(t, 0, stats.FilesProcessed)
	assert.Equal(t, 1, stats.FilesArchived)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, int64(6000), *store.upserted[0].TotalSteps)
}

// TestSummaryFileDate rejects names that do not match the expected pattern.
func TestSummaryFileDate(t *testing.T) {
	date, ok := summaryFileDate("user_summary_2024-01-15.json")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), date)

	for _, name := range []string{
		"summary_2024-01-15.json",
		"user_summary_2024-01-15.csv",
		"user_summary_not-a-date.json",
	} {
		_, ok := summaryFileDate(name)
		assert.False(t, ok, name)
	}
}
