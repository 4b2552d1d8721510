package storage

import (
	"context"

	"github.com/auri-health/data-pipeline/internal/models"
)

var sleepStageCols = []string{
	"user_id", "device_id", "source", "sleep_id", "timestamp", "stage",
	"duration_seconds", "resting_heart_rate", "has_skin_temp_data",
}

// sleepStageKey is the richer historical conflict key, including stage.
var sleepStageKey = []string{"user_id", "device_id", "source", "sleep_id", "timestamp", "stage"}

// InsertSleepStages batch-inserts sleep stage rows. Returns count inserted.
func (db *DB) InsertSleepStages(ctx context.Context, rows []models.SleepStageRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{
			r.UserID, r.DeviceID, r.Source, r.SleepID, r.Timestamp, r.Stage,
			r.DurationSeconds, r.RestingHeartRate, r.HasSkinTempData,
		}
	}
	return db.insertIgnore(ctx, "sleep_stages", sleepStageCols, sleepStageKey, vals)
}

var sleepMovementCols = []string{
	"user_id", "device_id", "source", "sleep_id", "timestamp", "movement_value",
}

// InsertSleepMovements batch-inserts sleep movement samples.
func (db *DB) InsertSleepMovements(ctx context.Context, rows []models.SleepMovementRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{r.UserID, r.DeviceID, r.Source, r.SleepID, r.Timestamp, r.MovementValue}
	}
	return db.insertIgnore(ctx, "sleep_movements", sleepMovementCols,
		[]string{"user_id", "device_id", "source", "sleep_id", "timestamp"}, vals)
}

var sleepLevelCols = []string{
	"user_id", "device_id", "source", "sleep_id", "start_time", "end_time", "activity_level",
}

// InsertSleepLevels batch-inserts sleep level intervals.
func (db *DB) InsertSleepLevels(ctx context.Context, rows []models.SleepLevelRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{r.UserID, r.DeviceID, r.Source, r.SleepID, r.StartTime, r.EndTime, r.ActivityLevel}
	}
	return db.insertIgnore(ctx, "sleep_levels", sleepLevelCols,
		[]string{"user_id", "device_id", "source", "sleep_id", "start_time"}, vals)
}

var sleepHeartRateCols = []string{
	"user_id", "device_id", "source", "sleep_id", "timestamp", "heart_rate",
}

// InsertSleepHeartRates batch-inserts per-sample sleep heart rates.
func (db *DB) InsertSleepHeartRates(ctx context.Context, rows []models.SleepHeartRateRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{r.UserID, r.DeviceID, r.Source, r.SleepID, r.Timestamp, r.HeartRate}
	}
	return db.insertIgnore(ctx, "sleep_heart_rates", sleepHeartRateCols,
		[]string{"user_id", "device_id", "source", "sleep_id", "timestamp"}, vals)
}
