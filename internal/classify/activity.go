package classify

import (
	"fmt"
	"log/slog"

	"github.com/auri-health/data-pipeline/internal/models"
	"github.com/auri-health/data-pipeline/internal/resolve"
)

// activityColumnKeys are the input fields mapped to named columns. They are
// excluded from the metadata bag so it never duplicates a column's source.
var activityColumnKeys = []string{
	"activityId",
	"activityName",
	"activityType",
	"startTimeGMT",
	"duration",
	"distance",
	"calories",
	"averageHR",
	"maxHR",
	"steps",
	"averageRunningCadenceInStepsPerMinute",
	"maxRunningCadenceInStepsPerMinute",
	"deviceId",
}

// ActivityClassifier maps an array of activity objects to ActivityRows.
type ActivityClassifier struct {
	deviceID string
	source   string
	log      *slog.Logger
}

// NewActivityClassifier creates an activity classifier.
func NewActivityClassifier(deviceID, source string, log *slog.Logger) *ActivityClassifier {
	return &ActivityClassifier{deviceID: deviceID, source: source, log: log}
}

// Classify converts one activities file into ActivityRows. A malformed
// element fails that record only; a non-array payload is structural.
func (c *ActivityClassifier) Classify(userID string, content []byte) (*Batch, Stats, error) {
	var stats Stats

	v, err := resolve.DecodeValue(content)
	if err != nil {
		return nil, stats, fmt.Errorf("parsing activities payload: %w", err)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, stats, fmt.Errorf("activities payload is not an array (got %T)", v)
	}

	batch := &Batch{}
	for i, item := range items {
		rec, ok := item.(*resolve.Record)
		if !ok {
			c.log.Warn("skipping activity: not an object", "index", i)
			stats.Failed++
			continue
		}
		row, err := c.activity(userID, rec)
		if err != nil {
			c.log.Warn("skipping activity", "index", i, "error", err)
			stats.Failed++
			continue
		}
		batch.Activities = append(batch.Activities, *row)
		stats.Succeeded++
	}
	return batch, stats, nil
}

func (c *ActivityClassifier) activity(userID string, rec *resolve.Record) (*models.ActivityRow, error) {
	id, ok := resolve.FirstNumber(rec, "activityId")
	if !ok {
		return nil, fmt.Errorf("missing activityId")
	}

	rawStart, ok := resolve.First(rec, "startTimeGMT")
	if !ok {
		return nil, fmt.Errorf("missing startTimeGMT")
	}
	start, err := models.ParseInstant(rawStart)
	if err != nil {
		return nil, err
	}

	row := &models.ActivityRow{
		UserID:     userID,
		ActivityID: int64(id),
		StartTime:  start,
		DeviceID:   c.deviceID,
		Source:     c.source,
		Metadata:   rec.Without(activityColumnKeys...),
	}

	row.ActivityName, _ = resolve.FirstString(rec, "activityName")
	row.ActivityType = activityType(rec)

	row.DurationSeconds = optNumber(rec, "duration")
	row.DistanceMeters = optNumber(rec, "distance")
	row.Calories = optNumber(rec, "calories")
	row.AverageHeartRate = optNumber(rec, "averageHR")
	row.MaxHeartRate = optNumber(rec, "maxHR")
	row.AverageCadence = optNumber(rec, "averageRunningCadenceInStepsPerMinute")
	row.MaxCadence = optNumber(rec, "maxRunningCadenceInStepsPerMinute")
	if steps, ok := resolve.FirstNumber(rec, "steps"); ok {
		n := int64(steps)
		row.Steps = &n
	}

	if dev, ok := resolve.FirstString(rec, "deviceId"); ok {
		row.DeviceID = dev
	}
	return row, nil
}

// activityType accepts both the flat string form and the nested
// {"typeKey": "running"} object some exports use.
func activityType(rec *resolve.Record) string {
	v, ok := resolve.First(rec, "activityType")
	if !ok {
		return ""
	}
	if s, ok := resolve.String(v); ok {
		return s
	}
	if nested, ok := v.(*resolve.Record); ok {
		if s, ok := resolve.FirstString(nested, "typeKey"); ok {
			return s
		}
	}
	return ""
}

func optNumber(rec *resolve.Record, names ...string) *float64 {
	if f, ok := resolve.FirstNumber(rec, names...); ok {
		return &f
	}
	return nil
}
