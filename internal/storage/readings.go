package storage

import (
	"context"

	"github.com/auri-health/data-pipeline/internal/models"
)

var heartRateCols = []string{
	"user_id", "device_id", "source", "timestamp", "heart_rate", "reading_type",
}

// InsertHeartRates batch-inserts heart rate readings with insert-or-ignore
// semantics on (user_id, timestamp).
func (db *DB) InsertHeartRates(ctx context.Context, rows []models.HeartRateRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{r.UserID, r.DeviceID, r.Source, r.Timestamp, r.HeartRate, r.ReadingType}
	}
	return db.insertIgnore(ctx, "heart_rate_readings", heartRateCols,
		[]string{"user_id", "timestamp"}, vals)
}

var stepReadingCols = []string{"user_id", "device_id", "source", "timestamp", "steps"}

// InsertStepReadings batch-inserts discrete step samples with
// insert-or-ignore semantics on (user_id, timestamp).
func (db *DB) InsertStepReadings(ctx context.Context, rows []models.StepReadingRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	vals := make([][]any, len(rows))
	for i, r := range rows {
		vals[i] = []any{r.UserID, r.DeviceID, r.Source, r.Timestamp, r.Steps}
	}
	return db.insertIgnore(ctx, "step_readings", stepReadingCols,
		[]string{"user_id", "timestamp"}, vals)
}
