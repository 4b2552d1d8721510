package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/auri-health/data-pipeline/internal/models"
	"github.com/auri-health/data-pipeline/internal/resolve"
)

var activityCols = []string{
	"user_id", "activity_id", "activity_name", "activity_type", "start_time",
	"duration_seconds", "distance_meters", "calories",
	"average_heart_rate", "max_heart_rate", "steps",
	"average_cadence", "max_cadence", "device_id", "source", "metadata",
}

var activityKey = []string{"user_id", "activity_id"}

// InsertActivities batch-inserts activity rows with insert-or-ignore
// semantics on (user_id, activity_id). Returns the count actually inserted.
func (db *DB) InsertActivities(ctx context.Context, rows []models.ActivityRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	vals := make([][]any, len(rows))
	for i, r := range rows {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshaling activity %d metadata: %w", r.ActivityID, err)
		}
		vals[i] = []any{
			r.UserID, r.ActivityID, r.ActivityName, r.ActivityType, r.StartTime,
			r.DurationSeconds, r.DistanceMeters, r.Calories,
			r.AverageHeartRate, r.MaxHeartRate, r.Steps,
			r.AverageCadence, r.MaxCadence, r.DeviceID, r.Source, meta,
		}
	}
	return db.insertIgnore(ctx, "user_activities", activityCols, activityKey, vals)
}

// UserDay is one (user, calendar date) pair needing a daily summary.
type UserDay struct {
	UserID string
	Date   time.Time
}

// ActivityDays returns the distinct (user, date) pairs with at least one
// activity starting in [start, end).
func (db *DB) ActivityDays(ctx context.Context, start, end time.Time) ([]UserDay, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT user_id, (start_time AT TIME ZONE 'UTC')::date AS day
		 FROM user_activities
		 WHERE start_time >= $1 AND start_time < $2
		 ORDER BY day, user_id`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying activity days: %w", err)
	}
	defer rows.Close()

	var result []UserDay
	for rows.Next() {
		var d UserDay
		if err := rows.Scan(&d.UserID, &d.Date); err != nil {
			return nil, fmt.Errorf("scanning activity day: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// ActivitiesForDay returns a user's activities starting on the given UTC day.
func (db *DB) ActivitiesForDay(ctx context.Context, userID string, day time.Time) ([]models.ActivityRow, error) {
	dayStart := models.Day(day)
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, activity_id, activity_name, activity_type, start_time,
		        duration_seconds, distance_meters, calories,
		        average_heart_rate, max_heart_rate, steps,
		        average_cadence, max_cadence, device_id, source, metadata
		 FROM user_activities
		 WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
		 ORDER BY start_time ASC`,
		userID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("querying activities for day: %w", err)
	}
	defer rows.Close()

	var result []models.ActivityRow
	for rows.Next() {
		var r models.ActivityRow
		var meta []byte
		if err := rows.Scan(&r.UserID, &r.ActivityID, &r.ActivityName, &r.ActivityType, &r.StartTime,
			&r.DurationSeconds, &r.DistanceMeters, &r.Calories,
			&r.AverageHeartRate, &r.MaxHeartRate, &r.Steps,
			&r.AverageCadence, &r.MaxCadence, &r.DeviceID, &r.Source, &meta); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		if len(meta) > 0 {
			rec := resolve.NewRecord()
			if err := json.Unmarshal(meta, rec); err == nil {
				r.Metadata = rec
			}
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
