package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/auri-health/data-pipeline/internal/models"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// ActivityStats is a day's activity rollup computed in the database.
type ActivityStats struct {
	TotalCalories       *float64
	TotalDistanceMeters *float64
	TotalSteps          *int64
	ActivityCount       *int64
}

// SleepStats is a day's sleep rollup computed in the database.
type SleepStats struct {
	SleepingSeconds *int64
	DeepSeconds     *int64
	LightSeconds    *int64
	REMSeconds      *int64
	AwakeSeconds    *int64
}

// HeartRateStats is a day's heart rate rollup computed in the database.
type HeartRateStats struct {
	MinHeartRate     *int64
	MaxHeartRate     *int64
	RestingHeartRate *int64
}

// CalorieStats is a day's calorie rollup computed in the database.
type CalorieStats struct {
	TotalCalories  *float64
	ActiveCalories *float64
	BMRCalories    *float64
}

// DailyActivityStats computes a user's activity rollup for one UTC day.
// Returns nil with no error when the user has no data that day.
func (db *DB) DailyActivityStats(ctx context.Context, userID string, date time.Time) (*ActivityStats, error) {
	var s ActivityStats
	err := db.Pool.QueryRow(ctx,
		`SELECT * FROM get_daily_activity_stats($1, $2)`,
		userID, models.Day(date)).Scan(
		&s.TotalCalories, &s.TotalDistanceMeters, &s.TotalSteps, &s.ActivityCount)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("daily activity stats: %w", err)
	}
	return &s, nil
}

// DailySleepStats computes a user's sleep rollup for one UTC day.
func (db *DB) DailySleepStats(ctx context.Context, userID string, date time.Time) (*SleepStats, error) {
	var s SleepStats
	err := db.Pool.QueryRow(ctx,
		`SELECT * FROM get_daily_sleep_stats($1, $2)`,
		userID, models.Day(date)).Scan(
		&s.SleepingSeconds, &s.DeepSeconds, &s.LightSeconds, &s.REMSeconds, &s.AwakeSeconds)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("daily sleep stats: %w", err)
	}
	return &s, nil
}

// DailyHeartRateStats computes a user's heart rate rollup for one UTC day.
func (db *DB) DailyHeartRateStats(ctx context.Context, userID string, date time.Time) (*HeartRateStats, error) {
	var s HeartRateStats
	err := db.Pool.QueryRow(ctx,
		`SELECT * FROM get_daily_heart_rate_stats($1, $2)`,
		userID, models.Day(date)).Scan(
		&s.MinHeartRate, &s.MaxHeartRate, &s.RestingHeartRate)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("daily heart rate stats: %w", err)
	}
	return &s, nil
}

// DailyCalorieStats computes a user's calorie rollup for one UTC day.
func (db *DB) DailyCalorieStats(ctx context.Context, userID string, date time.Time) (*CalorieStats, error) {
	var s CalorieStats
	err := db.Pool.QueryRow(ctx,
		`SELECT * FROM get_daily_calorie_stats($1, $2)`,
		userID, models.Day(date)).Scan(
		&s.TotalCalories, &s.ActiveCalories, &s.BMRCalories)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("daily calorie stats: %w", err)
	}
	return &s, nil
}
