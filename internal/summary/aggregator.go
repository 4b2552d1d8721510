// Package summary builds the per-(user, date) daily_summaries rows from
// imported activity data, database rollups, and vendor wellness files.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/auri-health/data-pipeline/internal/models"
	"github.com/auri-health/data-pipeline/internal/resolve"
	"github.com/auri-health/data-pipeline/internal/storage"
)

// Store is the database surface the aggregator needs.
type Store interface {
	ActivityDays(ctx context.Context, start, end time.Time) ([]storage.UserDay, error)
	ActivitiesForDay(ctx context.Context, userID string, day time.Time) ([]models.ActivityRow, error)
	DailyActivityStats(ctx context.Context, userID string, date time.Time) (*storage.ActivityStats, error)
	DailySleepStats(ctx context.Context, userID string, date time.Time) (*storage.SleepStats, error)
	DailyHeartRateStats(ctx context.Context, userID string, date time.Time) (*storage.HeartRateStats, error)
	DailyCalorieStats(ctx context.Context, userID string, date time.Time) (*storage.CalorieStats, error)
	UpsertDailySummary(ctx context.Context, row models.DailySummaryRow) error
}

// Options controls one aggregation run.
type Options struct {
	UserID   string
	DeviceID string
	Source   string

	// InputDir holds vendor wellness files named user_summary_<date>.json
	// for days with no imported activity data. ArchiveDir receives each
	// consumed file.
	InputDir   string
	ArchiveDir string
}

// Stats tracks aggregation progress across one run.
type Stats struct {
	DaysSummarized int
	FilesProcessed int
	FilesArchived  int
	Failures       int
}

// Aggregator builds daily summaries for a date range.
type Aggregator struct {
	store Store
	log   *slog.Logger
	opts  Options

	// seen marks (user, date) pairs already summarized this run, so the
	// file fallback never overwrites a store-derived summary.
	seen map[string]bool
}

// New creates an Aggregator.
func New(store Store, log *slog.Logger, opts Options) *Aggregator {
	return &Aggregator{store: store, log: log, opts: opts, seen: map[string]bool{}}
}

// Run summarizes every day in [start, end] (inclusive, UTC dates). Imported
// activity data is the primary source; local wellness files fill days the
// store knows nothing about. Per-day failures are counted, not fatal.
func (a *Aggregator) Run(ctx context.Context, start, end time.Time) (*Stats, error) {
	stats := &Stats{}
	dayStart := models.Day(start)
	dayEnd := models.Day(end).Add(24 * time.Hour)

	days, err := a.store.ActivityDays(ctx, dayStart, dayEnd)
	if err != nil {
		return stats, fmt.Errorf("discovering activity days: %w", err)
	}

	for _, day := range days {
		if err := a.summarizeDay(ctx, day.UserID, day.Date); err != nil {
			a.log.Warn("day summary failed", "user_id", day.UserID,
				"date", day.Date.Format("2006-01-02"), "error", err)
			stats.Failures++
			continue
		}
		stats.DaysSummarized++
	}

	if a.opts.InputDir != "" {
		a.runFileFallback(ctx, dayStart, dayEnd, stats)
	}
	return stats, nil
}

func seenKey(userID string, date time.Time) string {
	return userID + "|" + date.Format("2006-01-02")
}

// summarizeDay builds one summary from the day's activities plus the
// database rollups, then replaces any existing summary for that day.
func (a *Aggregator) summarizeDay(ctx context.Context, userID string, date time.Time) error {
	activities, err := a.store.ActivitiesForDay(ctx, userID, date)
	if err != nil {
		return fmt.Errorf("loading activities: %w", err)
	}

	row := models.DailySummaryRow{
		UserID:   userID,
		DeviceID: a.opts.DeviceID,
		Source:   a.opts.Source,
		Date:     models.Day(date),
	}
	applyActivities(&row, activities)
	a.applyDerivedStats(ctx, &row)

	if err := a.store.UpsertDailySummary(ctx, row); err != nil {
		return err
	}
	a.seen[seenKey(userID, date)] = true
	a.log.Info("daily summary written", "user_id", userID,
		"date", row.Date.Format("2006-01-02"), "activities", len(activities))
	return nil
}

// applyActivities folds a day's activities into the summary. A field stays
// nil unless at least one activity contributed to it; zero totals from real
// contributors are kept as zero.
func applyActivities(row *models.DailySummaryRow, activities []models.ActivityRow) {
	if len(activities) == 0 {
		return
	}

	var calories, distance float64
	var steps int64
	var calorieSeen, distanceSeen, stepsSeen bool
	var bmr *float64
	ids := map[int64]bool{}

	for _, act := range activities {
		ids[act.ActivityID] = true
		if act.Calories != nil {
			calories += *act.Calories
			calorieSeen = true
		}
		if act.DistanceMeters != nil {
			distance += *act.DistanceMeters
			distanceSeen = true
		}
		if act.Steps != nil {
			steps += *act.Steps
			stepsSeen = true
		}
		if act.Metadata != nil {
			if v, ok := resolve.FirstNumber(act.Metadata, "bmrCalories"); ok && v != 0 {
				bmr = &v
			}
		}
	}

	if calorieSeen {
		row.TotalCalories = &calories
	}
	if distanceSeen {
		row.TotalDistanceMeters = &distance
	}
	if stepsSeen {
		row.TotalSteps = &steps
	}
	row.BMRCalories = bmr
	count := int64(len(ids))
	row.ActivityCount = &count
}

// applyDerivedStats fills remaining gaps from the database rollup functions.
// Values computed from the day's own activities win; a rollup failure is
// logged and the summary still goes out with what it has.
func (a *Aggregator) applyDerivedStats(ctx context.Context, row *models.DailySummaryRow) {
	if stats, err := a.store.DailyActivityStats(ctx, row.UserID, row.Date); err != nil {
		a.log.Warn("activity rollup unavailable", "user_id", row.UserID, "error", err)
	} else if stats != nil {
		if row.TotalCalories == nil {
			row.TotalCalories = stats.TotalCalories
		}
		if row.TotalDistanceMeters == nil {
			row.TotalDistanceMeters = stats.TotalDistanceMeters
		}
		if row.TotalSteps == nil {
			row.TotalSteps = stats.TotalSteps
		}
		if row.ActivityCount == nil {
			row.ActivityCount = stats.ActivityCount
		}
	}

	if stats, err := a.store.DailySleepStats(ctx, row.UserID, row.Date); err != nil {
		a.log.Warn("sleep rollup unavailable", "user_id", row.UserID, "error", err)
	} else if stats != nil && row.SleepingSeconds == nil {
		row.SleepingSeconds = stats.SleepingSeconds
	}

	if stats, err := a.store.DailyHeartRateStats(ctx, row.UserID, row.Date); err != nil {
		a.log.Warn("heart rate rollup unavailable", "user_id", row.UserID, "error", err)
	} else if stats != nil {
		if row.MinHeartRate == nil {
			row.MinHeartRate = intToFloat(stats.MinHeartRate)
		}
		if row.MaxHeartRate == nil {
			row.MaxHeartRate = intToFloat(stats.MaxHeartRate)
		}
		if row.RestingHeartRate == nil {
			row.RestingHeartRate = intToFloat(stats.RestingHeartRate)
		}
	}

	if stats, err := a.store.DailyCalorieStats(ctx, row.UserID, row.Date); err != nil {
		a.log.Warn("calorie rollup unavailable", "user_id", row.UserID, "error", err)
	} else if stats != nil {
		if row.TotalCalories == nil {
			row.TotalCalories = stats.TotalCalories
		}
		if row.ActiveCalories == nil {
			row.ActiveCalories = stats.ActiveCalories
		}
		if row.BMRCalories == nil {
			row.BMRCalories = stats.BMRCalories
		}
	}
}

func intToFloat(v *int64) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

const summaryFilePrefix = "user_summary_"

// runFileFallback summarizes days from local wellness files that the store
// discovery did not cover, archiving each consumed file.
func (a *Aggregator) runFileFallback(ctx context.Context, dayStart, dayEnd time.Time, stats *Stats) {
	entries, err := os.ReadDir(a.opts.InputDir)
	if err != nil {
		if !os.IsNotExist(err) {
			a.log.Warn("could not read summary input dir", "dir", a.opts.InputDir, "error", err)
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		date, ok := summaryFileDate(entry.Name())
		if !ok {
			continue
		}
		if date.Before(dayStart) || !date.Before(dayEnd) {
			continue
		}

		path := filepath.Join(a.opts.InputDir, entry.Name())
		if a.seen[seenKey(a.opts.UserID, date)] {
			// The store already produced this day; the file is stale.
			a.archive(entry.Name(), stats)
			continue
		}

		if err := a.summarizeFromFile(ctx, path, date); err != nil {
			a.log.Warn("summary file failed", "file", entry.Name(), "error", err)
			stats.Failures++
			continue
		}
		stats.FilesProcessed++
		stats.DaysSummarized++
		a.archive(entry.Name(), stats)
	}
}

// summaryFileDate extracts the date from names like user_summary_2024-01-15.json.
func summaryFileDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, summaryFilePrefix) || !strings.HasSuffix(name, ".json") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, summaryFilePrefix), ".json")
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return date.UTC(), true
}

// summarizeFromFile builds one summary from a vendor wellness file.
func (a *Aggregator) summarizeFromFile(ctx context.Context, path string, date time.Time) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}

	value, err := resolve.DecodeValue(content)
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	rec, ok := value.(*resolve.Record)
	if !ok {
		return fmt.Errorf("expected a JSON object, got %T", value)
	}

	row := models.DailySummaryRow{
		UserID:   a.opts.UserID,
		DeviceID: a.opts.DeviceID,
		Source:   a.opts.Source,
		Date:     date,

		TotalCalories:       numberField(rec, "totalKilocalories"),
		ActiveCalories:      numberField(rec, "activeKilocalories"),
		BMRCalories:         numberField(rec, "bmrKilocalories"),
		TotalSteps:          intField(rec, "totalSteps"),
		TotalDistanceMeters: numberField(rec, "totalDistanceMeters"),

		HighlyActiveSeconds:      intField(rec, "highlyActiveSeconds"),
		ActiveSeconds:            intField(rec, "activeSeconds"),
		SedentarySeconds:         intField(rec, "sedentarySeconds"),
		SleepingSeconds:          intField(rec, "sleepingSeconds"),
		ModerateIntensityMinutes: intField(rec, "moderateIntensityMinutes"),
		VigorousIntensityMinutes: intField(rec, "vigorousIntensityMinutes"),

		MinHeartRate:     numberField(rec, "minHeartRate"),
		MaxHeartRate:     numberField(rec, "maxHeartRate"),
		RestingHeartRate: numberField(rec, "restingHeartRate"),
	}

	if err := a.store.UpsertDailySummary(ctx, row); err != nil {
		return err
	}
	a.seen[seenKey(a.opts.UserID, date)] = true
	a.log.Info("daily summary written from file", "user_id", a.opts.UserID,
		"date", date.Format("2006-01-02"), "file", filepath.Base(path))
	return nil
}

func numberField(rec *resolve.Record, key string) *float64 {
	if v, ok := resolve.FirstNumber(rec, key); ok {
		return &v
	}
	return nil
}

func intField(rec *resolve.Record, key string) *int64 {
	if v, ok := resolve.FirstNumber(rec, key); ok {
		n := int64(v)
		return &n
	}
	return nil
}

// archive moves a consumed file out of the input dir.
func (a *Aggregator) archive(name string, stats *Stats) {
	if a.opts.ArchiveDir == "" {
		return
	}
	if err := os.MkdirAll(a.opts.ArchiveDir, 0o755); err != nil {
		a.log.Warn("could not create archive dir", "dir", a.opts.ArchiveDir, "error", err)
		return
	}
	src := filepath.Join(a.opts.InputDir, name)
	dst := filepath.Join(a.opts.ArchiveDir, name)
	if err := os.Rename(src, dst); err != nil {
		a.log.Warn("could not archive summary file", "file", name, "error", err)
		return
	}
	stats.FilesArchived++
}
