package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/auri-health/data-pipeline/internal/models"
)

// MergeStepsTotal overlays a day's step total onto that day's summary in one
// atomic statement: other summary fields are untouched, so the merge is safe
// to repeat and safe against future concurrent callers.
func (db *DB) MergeStepsTotal(ctx context.Context, userID, deviceID, source string, date time.Time, steps int64) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO daily_summaries (user_id, device_id, source, date, total_steps)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, date)
		 DO UPDATE SET total_steps = EXCLUDED.total_steps, updated_at = now()`,
		userID, deviceID, source, models.Day(date), steps)
	if err != nil {
		return fmt.Errorf("merging steps total for %s: %w", date.Format("2006-01-02"), err)
	}
	return nil
}

var dailySummaryCols = []string{
	"user_id", "device_id", "source", "date",
	"total_calories", "active_calories", "bmr_calories",
	"total_steps", "total_distance_meters",
	"highly_active_seconds", "active_seconds", "sedentary_seconds", "sleeping_seconds",
	"moderate_intensity_minutes", "vigorous_intensity_minutes",
	"min_heart_rate", "max_heart_rate", "resting_heart_rate",
	"activity_count", "avg_stress_level",
}

// UpsertDailySummary writes one summary keyed (user_id, date), overwriting
// any prior values for that day. Unlike the insert-only batches, the
// aggregator always produces a fresh snapshot on re-run.
func (db *DB) UpsertDailySummary(ctx context.Context, row models.DailySummaryRow) error {
	query := buildInsertQuery("daily_summaries", dailySummaryCols,
		[]string{"user_id", "date"}, 1, false)
	_, err := db.Pool.Exec(ctx, query,
		row.UserID, row.DeviceID, row.Source, models.Day(row.Date),
		row.TotalCalories, row.ActiveCalories, row.BMRCalories,
		row.TotalSteps, row.TotalDistanceMeters,
		row.HighlyActiveSeconds, row.ActiveSeconds, row.SedentarySeconds, row.SleepingSeconds,
		row.ModerateIntensityMinutes, row.VigorousIntensityMinutes,
		row.MinHeartRate, row.MaxHeartRate, row.RestingHeartRate,
		row.ActivityCount, row.AvgStressLevel)
	if err != nil {
		return fmt.Errorf("upserting daily summary for %s: %w", row.Date.Format("2006-01-02"), err)
	}
	return nil
}
