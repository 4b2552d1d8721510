// Package models defines the canonical rows the pipeline persists and the
// timestamp normalization shared by every classifier.
package models

import (
	"fmt"
	"time"

	"github.com/auri-health/data-pipeline/internal/resolve"
)

// Source tag for every row this pipeline produces.
const SourceGarmin = "garmin"

// DefaultDeviceID is used when an export file carries no device identifier.
const DefaultDeviceID = "0f96861e-49b1-4aa0-b499-45267084f68c"

// Sleep stage names as stored.
const (
	StageDeep  = "deep"
	StageLight = "light"
	StageREM   = "rem"
	StageAwake = "awake"
)

// ReadingTypeContinuous is the only reading type the vendor exports produce.
const ReadingTypeContinuous = "continuous"

// SleepID derives the deterministic session key from user and start instant,
// so re-running the same input reproduces the same key.
func SleepID(userID string, start time.Time) string {
	return fmt.Sprintf("%s_%d", userID, start.UTC().UnixMilli())
}

// ActivityRow is a row ready for insertion into user_activities.
// Natural key: (user_id, activity_id).
type ActivityRow struct {
	UserID           string
	ActivityID       int64
	ActivityName     string
	ActivityType     string
	StartTime        time.Time
	DurationSeconds  *float64
	DistanceMeters   *float64
	Calories         *float64
	AverageHeartRate *float64
	MaxHeartRate     *float64
	Steps            *int64
	AverageCadence   *float64
	MaxCadence       *float64
	DeviceID         string
	Source           string
	// Metadata holds every input field not mapped to a named column.
	// Invariant: it never contains a named column's source key.
	Metadata *resolve.Record
}

// HeartRateRow is a row for heart_rate_readings. Natural key: (user_id, timestamp).
type HeartRateRow struct {
	UserID      string
	DeviceID    string
	Source      string
	Timestamp   time.Time
	HeartRate   float64
	ReadingType string
}

// SleepStageRow is a row for sleep_stages.
// Natural key: (user_id, device_id, source, sleep_id, timestamp, stage).
type SleepStageRow struct {
	UserID           string
	DeviceID         string
	Source           string
	SleepID          string
	Timestamp        time.Time
	Stage            string
	DurationSeconds  float64
	RestingHeartRate *float64
	HasSkinTempData  bool
}

// SleepMovementRow is a row for sleep_movements.
// Natural key: (user_id, device_id, source, sleep_id, timestamp).
type SleepMovementRow struct {
	UserID        string
	DeviceID      string
	Source        string
	SleepID       string
	Timestamp     time.Time
	MovementValue float64
}

// SleepLevelRow is a row for sleep_levels (richer export variant only).
// Natural key: (user_id, device_id, source, sleep_id, start_time).
type SleepLevelRow struct {
	UserID        string
	DeviceID      string
	Source        string
	SleepID       string
	StartTime     time.Time
	EndTime       time.Time
	ActivityLevel float64
}

// SleepHeartRateRow is a row for sleep_heart_rates (richer export variant only).
// Natural key: (user_id, device_id, source, sleep_id, timestamp).
type SleepHeartRateRow struct {
	UserID    string
	DeviceID  string
	Source    string
	SleepID   string
	Timestamp time.Time
	HeartRate float64
}

// StepReadingRow is a discrete step sample. Natural key: (user_id, timestamp).
type StepReadingRow struct {
	UserID    string
	DeviceID  string
	Source    string
	Timestamp time.Time
	Steps     int64
}

// DailySummaryRow is the per-(user, date) aggregate. Numeric fields are nil
// when no contributing source had data, so "known zero" and "unknown" stay
// distinguishable.
type DailySummaryRow struct {
	UserID   string
	DeviceID string
	Source   string
	Date     time.Time

	TotalCalories       *float64
	ActiveCalories      *float64
	BMRCalories         *float64
	TotalSteps          *int64
	TotalDistanceMeters *float64

	HighlyActiveSeconds      *int64
	ActiveSeconds            *int64
	SedentarySeconds         *int64
	SleepingSeconds          *int64
	ModerateIntensityMinutes *int64
	VigorousIntensityMinutes *int64

	MinHeartRate     *float64
	MaxHeartRate     *float64
	RestingHeartRate *float64

	ActivityCount *int64

	// Never supplied by any input; always stored null.
	AvgStressLevel *float64
}
